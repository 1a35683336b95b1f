package itinerary

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

var budgetGuidance = map[string]string{
	"low":    "Budget-friendly options (HK$200-500 per day), street food, free attractions, public transport",
	"medium": "Moderate spending (HK$500-1000 per day), mix of experiences, some dining out",
	"high":   "Premium experiences (HK$1000+ per day), fine dining, private transport, luxury activities",
}

var travelStyleGuidance = map[string]string{
	"slow":     "Relaxed pace, 2-3 activities per day, plenty of rest time",
	"moderate": "Balanced pace, 3-4 activities per day, some flexibility",
	"fast":     "Packed schedule, 4-5 activities per day, maximize experiences",
}

const hongKongKnowledge = `Hong Kong Knowledge Base:
- Must-visit: Victoria Peak, Star Ferry, Temple Street Night Market, Tsim Sha Tsui Promenade
- Food: Dim sum, roast goose, egg waffles, milk tea, street food markets
- Culture: Man Mo Temple, Wong Tai Sin Temple, Heritage Museum, Space Museum
- Nature: Dragon's Back hike, Repulse Bay, Lantau Island, Big Buddha
- Shopping: Central, Causeway Bay, Mong Kok, Ladies' Market
- Transport: MTR (very efficient), Star Ferry, Peak Tram, taxis, Airport Express
- Practical: Octopus Card essential, most signs in English/Chinese, very safe city`

const dayStructure = `Please create a detailed itinerary with the following structure for each day:

Day X:
Morning (9:00-12:00):
- Activity: [Specific attraction/activity]
- Duration: [Time needed]
- Cost: [Estimated cost in HKD]
- Transport: [How to get there]
- Tips: [Practical advice]

Afternoon (12:00-18:00):
- [Same structure]

Evening (18:00-22:00):
- [Same structure]

Daily Total Cost: [HKD amount]
Daily Transport Tips: [MTR lines, walking distances, etc.]

Important Requirements:
1. Include specific MTR stations and transport directions
2. Suggest actual restaurant names where possible
3. Include estimated costs in HKD
4. Consider Hong Kong's geography (Hong Kong Island vs Kowloon vs New Territories)
5. Account for travel time between locations
6. Include both tourist attractions and local experiences
7. Suggest backup indoor activities for each day (in case of rain)
8. Include cultural etiquette tips relevant to planned activities

Format the response as a structured daily plan that can be easily parsed.`

func buildPrompt(req types.ItineraryRequest) string {
	interests := "general sightseeing"
	if len(req.Interests) > 0 {
		interests = strings.Join(req.Interests, ", ")
	}
	budgetInfo, ok := budgetGuidance[req.Budget]
	if !ok {
		budgetInfo = budgetGuidance["medium"]
	}
	styleInfo, ok := travelStyleGuidance[req.TravelStyle]
	if !ok {
		styleInfo = travelStyleGuidance["moderate"]
	}
	start := "Central Hong Kong area"
	if req.Accommodation != "" {
		start = "Starting point: " + req.Accommodation
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert Hong Kong travel planner. Create a detailed %d-day itinerary for Hong Kong.\n\n", req.Duration)
	b.WriteString("Traveler Profile:\n")
	fmt.Fprintf(&b, "- Group size: %d person(s)\n", req.GroupSize)
	fmt.Fprintf(&b, "- Interests: %s\n", interests)
	fmt.Fprintf(&b, "- Budget: %s (%s)\n", req.Budget, budgetInfo)
	fmt.Fprintf(&b, "- Travel style: %s (%s)\n", req.TravelStyle, styleInfo)
	fmt.Fprintf(&b, "- %s\n", start)
	if len(req.SpecialRequirements) > 0 {
		fmt.Fprintf(&b, "Special requirements: %s\n", strings.Join(req.SpecialRequirements, ", "))
	}
	b.WriteString("\n")
	b.WriteString(hongKongKnowledge)
	b.WriteString("\n\n")
	b.WriteString(dayStructure)
	return b.String()
}
