package itinerary

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/textfmt"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

var (
	dayHeader   = regexp.MustCompile(`(?i)(?:\*\*)?day\s+(\d+)(?:\*\*)?[:\-]`)
	firstNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

var transportKeywords = []string{"mtr", "station", "train", "bus", "taxi", "ferry", "tram"}

const (
	maxTransportLines      = 3
	fallbackDayCost        = 500
	fallbackDescriptionCap = 500
)

// Parser turns a model reply into day plans. Implementations never fail.
type Parser interface {
	Parse(reply string, duration int) []types.DayPlan
}

type TextParser struct{}

var _ Parser = TextParser{}

// Parse always returns exactly duration entries: parsed days are padded with
// empty days or truncated, and a reply without any day header is spread over
// synthetic days.
func (TextParser) Parse(reply string, duration int) []types.DayPlan {
	if duration <= 0 {
		return []types.DayPlan{}
	}
	cleaned := textfmt.CleanMarkdown(reply)

	days := parseDays(cleaned)
	if len(days) == 0 {
		days = fallbackDays(cleaned, duration)
	}
	for len(days) < duration {
		days = append(days, types.DayPlan{
			Day:        len(days) + 1,
			Activities: []types.Activity{},
		})
	}
	return days[:duration]
}

func parseDays(text string) []types.DayPlan {
	matches := dayHeader.FindAllStringSubmatchIndex(text, -1)
	days := make([]types.DayPlan, 0, len(matches))
	for i, m := range matches {
		num, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := text[m[1]:end]

		activities := parseActivities(body)
		var cost float64
		for _, a := range activities {
			cost += a.Cost
		}
		days = append(days, types.DayPlan{
			Day:                num,
			Activities:         activities,
			EstimatedCost:      cost,
			TransportationInfo: transportInfo(body),
		})
	}
	return days
}

func parseActivities(body string) []types.Activity {
	activities := []types.Activity{}
	var current *types.Activity
	period := ""

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if p := periodOf(line); p != "" {
			// Lines naming a period are never parsed as activities.
			if !strings.Contains(line, "Activity:") {
				period = p
			}
			continue
		}

		switch {
		case strings.Contains(line, "Activity:"):
			if current != nil {
				activities = append(activities, *current)
			}
			name := strings.TrimSpace(strings.SplitN(line, "Activity:", 2)[1])
			current = &types.Activity{Name: name, Description: name, Time: period}
		case current != nil && strings.HasPrefix(line, "-"):
			fillField(current, line)
		}
	}
	if current != nil {
		activities = append(activities, *current)
	}
	return activities
}

func periodOf(line string) string {
	lower := strings.ToLower(line)
	for _, p := range []string{"morning", "afternoon", "evening"} {
		if strings.Contains(lower, p) {
			return strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return ""
}

func fillField(a *types.Activity, line string) {
	after := func(label string) string {
		return strings.TrimSpace(strings.SplitN(line, label, 2)[1])
	}
	switch {
	case strings.Contains(line, "Duration:"):
		a.Duration = after("Duration:")
	case strings.Contains(line, "Cost:"):
		a.Cost = extractCost(after("Cost:"))
	case strings.Contains(line, "Transport:"):
		a.Transport = after("Transport:")
	case strings.Contains(line, "Tips:"):
		a.Tips = after("Tips:")
	}
}

// extractCost returns the first number in s with thousands separators removed.
func extractCost(s string) float64 {
	n := firstNumber.FindString(strings.ReplaceAll(s, ",", ""))
	if n == "" {
		return 0
	}
	v, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return 0
	}
	return v
}

func transportInfo(body string) string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		lower := strings.ToLower(line)
		for _, kw := range transportKeywords {
			if strings.Contains(lower, kw) {
				lines = append(lines, strings.TrimSpace(line))
				break
			}
		}
		if len(lines) == maxTransportLines {
			break
		}
	}
	return strings.Join(lines, "; ")
}

func fallbackDays(text string, duration int) []types.DayPlan {
	parts := strings.Split(text, "\n\n")
	size := max(1, len(parts)/duration)

	days := make([]types.DayPlan, 0, duration)
	for day := 1; day <= duration; day++ {
		start := min((day-1)*size, len(parts))
		end := min(day*size, len(parts))
		content := strings.Join(parts[start:end], "\n")
		if len([]rune(content)) > fallbackDescriptionCap {
			content = string([]rune(content)[:fallbackDescriptionCap]) + "..."
		}
		days = append(days, types.DayPlan{
			Day: day,
			Activities: []types.Activity{{
				Name:        "Day " + strconv.Itoa(day) + " Activities",
				Time:        "Full Day",
				Duration:    "8 hours",
				Cost:        fallbackDayCost,
				Description: content,
				Transport:   "MTR and walking",
				Tips:        "Check specific attraction opening hours",
			}},
			EstimatedCost:      fallbackDayCost,
			TransportationInfo: "Use MTR system with Octopus Card",
		})
	}
	return days
}
