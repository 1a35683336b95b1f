package types

type Recommendation struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Location      string   `json:"location"`
	Rating        float64  `json:"rating"`
	EstimatedTime string   `json:"estimated_time,omitempty"`
	CostRange     string   `json:"cost_range,omitempty"`
	Reasons       []string `json:"reasons"`
}

type RecommendationRequest struct {
	UserPreferences map[string]any `json:"user_preferences"`
	CurrentLocation string         `json:"current_location,omitempty"`
	TimeContext     string         `json:"time_context,omitempty"`
	Limit           int            `json:"limit,omitempty"`
	SessionID       string         `json:"session_id,omitempty"`
}

type RecommendationResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	SessionID       string           `json:"session_id,omitempty"`
}
