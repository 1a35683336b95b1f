package types

type Activity struct {
	Name        string  `json:"name"`
	Time        string  `json:"time"`
	Duration    string  `json:"duration"`
	Cost        float64 `json:"cost"`
	Description string  `json:"description"`
	Transport   string  `json:"transport"`
	Tips        string  `json:"tips"`
}

type DayPlan struct {
	Day                int        `json:"day"`
	Date               string     `json:"date,omitempty"`
	Activities         []Activity `json:"activities"`
	EstimatedCost      float64    `json:"estimated_cost"`
	TransportationInfo string     `json:"transportation_info"`
}

type ItineraryRequest struct {
	Duration            int      `json:"duration"`
	Interests           []string `json:"interests"`
	Budget              string   `json:"budget"`
	Accommodation       string   `json:"accommodation,omitempty"`
	TravelStyle         string   `json:"travel_style,omitempty"`
	GroupSize           int      `json:"group_size,omitempty"`
	SpecialRequirements []string `json:"special_requirements,omitempty"`
	SessionID           string   `json:"session_id,omitempty"`
}

type ItineraryResponse struct {
	Itinerary          []DayPlan `json:"itinerary"`
	TotalEstimatedCost float64   `json:"total_estimated_cost"`
	Tips               []string  `json:"tips"`
	SessionID          string    `json:"session_id,omitempty"`
}
