package recommendations

import (
	"strings"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/textfmt"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

const defaultRating = 4.5

// Parser turns a model reply into recommendations. It never fails; an
// unparseable reply yields the fallback list with parsed set to false.
type Parser interface {
	Parse(reply string) (recs []types.Recommendation, parsed bool)
}

type BlockParser struct{}

var _ Parser = BlockParser{}

func (BlockParser) Parse(reply string) ([]types.Recommendation, bool) {
	blocks := strings.Split(reply, "RECOMMENDATION ")
	var recs []types.Recommendation
	for _, block := range blocks[1:] {
		if rec, ok := parseBlock(block); ok {
			rec.Description = textfmt.CleanMarkdown(rec.Description)
			for i, r := range rec.Reasons {
				rec.Reasons[i] = textfmt.CleanMarkdown(r)
			}
			recs = append(recs, rec)
		}
	}
	if len(recs) == 0 {
		return Fallback(), false
	}
	return recs, true
}

type field int

const (
	fieldNone field = iota
	fieldDescription
	fieldReasons
)

func parseBlock(block string) (types.Recommendation, bool) {
	rec := types.Recommendation{Rating: defaultRating, Reasons: []string{}}
	current := fieldNone

	value := func(line, label string) string {
		return strings.TrimSpace(strings.TrimPrefix(line, label))
	}

	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "Name:"):
			rec.Name = value(line, "Name:")
		case strings.HasPrefix(line, "Category:"):
			rec.Category = value(line, "Category:")
		case strings.HasPrefix(line, "Location:"):
			rec.Location = value(line, "Location:")
		case strings.HasPrefix(line, "Description:"):
			rec.Description = value(line, "Description:")
			current = fieldDescription
		case strings.HasPrefix(line, "Why recommended:"):
			if r := value(line, "Why recommended:"); r != "" {
				rec.Reasons = append(rec.Reasons, r)
			}
			current = fieldReasons
		case strings.HasPrefix(line, "Best time:"):
			// ignored
		case strings.HasPrefix(line, "Estimated time:"):
			rec.EstimatedTime = value(line, "Estimated time:")
		case strings.HasPrefix(line, "Cost range:"):
			rec.CostRange = value(line, "Cost range:")
		case strings.HasPrefix(line, "Tips:"):
			if tip := value(line, "Tips:"); tip != "" {
				rec.Reasons = append(rec.Reasons, "Tip: "+tip)
			}
		case current == fieldDescription:
			rec.Description += " " + line
		case current == fieldReasons:
			rec.Reasons = append(rec.Reasons, line)
		}
	}

	if rec.Name == "" || rec.Description == "" {
		return rec, false
	}
	return rec, true
}

// Fallback returns a fresh copy of the curated recommendation list.
func Fallback() []types.Recommendation {
	return []types.Recommendation{
		{
			Name:          "Victoria Peak",
			Description:   "Hong Kong's most famous attraction offering panoramic views of the city skyline and Victoria Harbour.",
			Category:      "attraction",
			Location:      "Central MTR Station, then Peak Tram",
			Rating:        4.6,
			EstimatedTime: "2-3 hours",
			CostRange:     "HK$65 (Peak Tram) + HK$30 (Sky Terrace)",
			Reasons:       []string{"Iconic Hong Kong experience", "Best city views", "Historic Peak Tram"},
		},
		{
			Name:          "Star Ferry",
			Description:   "Historic ferry service crossing Victoria Harbour since 1888, offering beautiful harbor views.",
			Category:      "attraction",
			Location:      "Central Pier or Tsim Sha Tsui Pier",
			Rating:        4.4,
			EstimatedTime: "30 minutes",
			CostRange:     "HK$3-4",
			Reasons:       []string{"Authentic Hong Kong experience", "Very affordable", "Great for photos"},
		},
		{
			Name:          "Tim Ho Wan",
			Description:   "World's cheapest Michelin-starred restaurant famous for BBQ pork buns and dim sum.",
			Category:      "food",
			Location:      "Multiple locations (Mong Kok, Central, etc.)",
			Rating:        4.3,
			EstimatedTime: "1 hour",
			CostRange:     "HK$50-100 per person",
			Reasons:       []string{"Michelin-starred food", "Affordable luxury", "Must-try dim sum"},
		},
		{
			Name:          "Temple Street Night Market",
			Description:   "Vibrant night market with street food, fortune telling, and local atmosphere.",
			Category:      "culture",
			Location:      "Yau Ma Tei MTR Station",
			Rating:        4.2,
			EstimatedTime: "2 hours",
			CostRange:     "HK$50-200",
			Reasons:       []string{"Authentic local experience", "Great street food", "Cultural immersion"},
		},
		{
			Name:          "Dragon's Back",
			Description:   "Award-winning hiking trail offering stunning views of Hong Kong's coastline and islands.",
			Category:      "nature",
			Location:      "Shek O MTR then bus/taxi",
			Rating:        4.7,
			EstimatedTime: "3-4 hours",
			CostRange:     "HK$20 (transport only)",
			Reasons:       []string{"Best hiking in Hong Kong", "Amazing coastal views", "Great exercise"},
		},
	}
}
