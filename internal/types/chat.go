package types

import "github.com/google/uuid"

// Document is a knowledge base unit. Score is only set on retrieval results.
type Document struct {
	ID       uuid.UUID      `json:"id"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score,omitempty"`
}

type Source struct {
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	URL            string  `json:"url,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
}

type ChatRequest struct {
	Message             string                `json:"message"`
	ConversationID      string                `json:"conversation_id,omitempty"`
	SessionID           string                `json:"session_id,omitempty"`
	ConversationHistory []ConversationMessage `json:"conversation_history,omitempty"`
	UserContext         *UserContext          `json:"user_context,omitempty"`
}

type ChatResponse struct {
	Message        string   `json:"message"`
	Sources        []Source `json:"sources"`
	ConversationID string   `json:"conversation_id,omitempty"`
	SessionID      string   `json:"session_id,omitempty"`
}

// ChatAnswer is the pipeline result before it is bound to a session.
type ChatAnswer struct {
	Answer      string
	Sources     []Source
	ContextUsed int
}

type AddDocumentRequest struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type AddDocumentResponse struct {
	Title   string `json:"title"`
	Chunks  int    `json:"chunks"`
	Message string `json:"message"`
}
