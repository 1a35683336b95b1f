package api

import "time"

// MessageResponse is the body of endpoints that only report an outcome.
type MessageResponse struct {
	Message string `json:"message" example:"HK Tourism AI API is running!"`
}

// ServiceStatus reports which backends are usable right now.
type ServiceStatus struct {
	RAG            bool `json:"rag"`
	User           bool `json:"user"`
	Recommendation bool `json:"recommendation"`
	Itinerary      bool `json:"itinerary"`
	Translation    bool `json:"translation"`
	VectorStore    bool `json:"vector_store"`
}

type HealthResponse struct {
	Status    string        `json:"status" example:"healthy"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version" example:"1.0.0"`
	Services  ServiceStatus `json:"services"`
}

// LoginRequest is the admin login body.
type LoginRequest struct {
	Username string `json:"username" example:"admin"`
	Password string `json:"password" example:"password123"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token" example:"eyJhbGciOiJI..."`
	TokenType   string    `json:"token_type" example:"Bearer"`
	ExpiresAt   time.Time `json:"expires_at"`
}
