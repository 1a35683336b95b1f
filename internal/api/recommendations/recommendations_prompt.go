package recommendations

import (
	"fmt"
	"strings"
)

// profile is the preference view the prompt needs.
type profile struct {
	Interests       []string
	Budget          string
	FoodPreferences []string
	ActivityLevel   string
	GroupType       string
}

func profileFrom(prefs map[string]any) profile {
	return profile{
		Interests:       stringList(prefs["interests"]),
		Budget:          stringOr(prefs["budget"], "medium"),
		FoodPreferences: stringList(prefs["food_preferences"]),
		ActivityLevel:   stringOr(prefs["activity_level"], "moderate"),
		GroupType:       stringOr(prefs["group_type"], "solo"),
	}
}

// stringList accepts []string, []any (decoded JSON) or a single string.
func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t != "" {
			return []string{t}
		}
	}
	return nil
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func joinOr(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, ", ")
}

const hongKongGuide = `Hong Kong Knowledge:

ATTRACTIONS:
- Victoria Peak (iconic views, Peak Tram, Sky Terrace 428)
- Star Ferry (historic harbor crossing, cheap, great views)
- Temple Street Night Market (street food, fortune telling, shopping)
- Tsim Sha Tsui Promenade (waterfront walk, Symphony of Lights)
- Man Mo Temple (traditional temple, incense coils)
- Wong Tai Sin Temple (fortune telling, colorful)
- Dragon's Back (hiking trail, stunning views)
- Big Buddha & Po Lin Monastery (Lantau Island, cable car)
- Avenue of Stars (harbor views, Bruce Lee statue)
- Ladies' Market (bargain shopping, street food)

FOOD EXPERIENCES:
- Dim sum at traditional tea houses (har gow, siu mai, cha siu bao)
- Roast goose and char siu (Kam's Roast Goose, Joy Hing)
- Street food (curry fish balls, egg waffles, stinky tofu)
- Hong Kong-style milk tea and pineapple buns
- Michelin street food (Tim Ho Wan, Hawker Chan)
- Traditional cha chaan teng (tea restaurants)

NEIGHBORHOODS:
- Central: Business district, upscale shopping, IFC Mall
- Tsim Sha Tsui: Tourist hub, museums, harbor views
- Causeway Bay: Shopping paradise, Times Square, food courts
- Mong Kok: Local life, night markets, electronics
- Wan Chai: Mix of old and new, wet markets, bars
- Sheung Wan: Trendy area, art galleries, dried seafood streets`

const recommendationFormat = `RECOMMENDATION 1:
Name: [Specific place/activity name]
Category: [attraction/food/shopping/culture/nature]
Location: [Specific location with MTR station]
Description: [2-3 sentences about what makes this special]
Why recommended: [Specific reasons based on user preferences]
Best time: [When to visit]
Estimated time: [How long to spend]
Cost range: [Budget estimate in HKD]
Tips: [Practical advice]

[Continue for all recommendations]

Focus on authentic Hong Kong experiences that match the user's preferences and current context.`

func buildPrompt(prefs map[string]any, location, timeContext string, limit int) string {
	p := profileFrom(prefs)

	loc := "Location: Hong Kong"
	if location != "" {
		loc = "Current location: " + location
	}

	var b strings.Builder
	b.WriteString("You are a local Hong Kong expert providing personalized recommendations.\n\n")
	b.WriteString("User Profile:\n")
	fmt.Fprintf(&b, "- Interests: %s\n", joinOr(p.Interests, "general sightseeing"))
	fmt.Fprintf(&b, "- Budget preference: %s\n", p.Budget)
	fmt.Fprintf(&b, "- Food preferences: %s\n", joinOr(p.FoodPreferences, "open to local cuisine"))
	fmt.Fprintf(&b, "- Activity level: %s\n", p.ActivityLevel)
	fmt.Fprintf(&b, "- Group type: %s\n\n", p.GroupType)
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "- %s\n", loc)
	if timeContext != "" {
		fmt.Fprintf(&b, "- Time context: %s\n", timeContext)
	}
	b.WriteString("\n")
	b.WriteString(hongKongGuide)
	fmt.Fprintf(&b, "\n\nPlease provide %d personalized recommendations in this exact format:\n\n", limit)
	b.WriteString(recommendationFormat)
	return b.String()
}
