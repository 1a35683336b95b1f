package types

import "time"

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// UserContext is the optional traveller profile attached to a session or a single request.
type UserContext struct {
	Location           string   `json:"location,omitempty"`
	LanguagePreference string   `json:"language_preference,omitempty"`
	Interests          []string `json:"interests,omitempty"`
	BudgetRange        string   `json:"budget_range,omitempty"`
}

// Merge overwrites the receiver's fields with the non-empty fields of other.
func (u *UserContext) Merge(other UserContext) {
	if other.Location != "" {
		u.Location = other.Location
	}
	if other.LanguagePreference != "" {
		u.LanguagePreference = other.LanguagePreference
	}
	if len(other.Interests) > 0 {
		u.Interests = append([]string(nil), other.Interests...)
	}
	if other.BudgetRange != "" {
		u.BudgetRange = other.BudgetRange
	}
}

func (u *UserContext) IsEmpty() bool {
	return u == nil || (u.Location == "" && len(u.Interests) == 0 && u.BudgetRange == "")
}

type ConversationMessage struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

type Session struct {
	ID               string      `json:"id"`
	CreatedAt        time.Time   `json:"created_at"`
	LastActivity     time.Time   `json:"last_activity"`
	UserContext      UserContext `json:"user_context"`
	InteractionCount int         `json:"interaction_count"`
}

type SessionStats struct {
	SessionID            string `json:"session_id"`
	CreatedAt            string `json:"created_at"`
	LastActivity         string `json:"last_activity"`
	InteractionCount     int    `json:"interaction_count"`
	ConversationMessages int    `json:"conversation_messages"`
	HasPreferences       bool   `json:"has_preferences"`
}

type SessionsOverview struct {
	TotalSessions        int `json:"total_sessions"`
	ActiveSessions       int `json:"active_sessions"`
	TotalConversations   int `json:"total_conversations"`
	TotalUserPreferences int `json:"total_user_preferences"`
}

type SessionRequest struct {
	UserContext *UserContext `json:"user_context,omitempty"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
	Message   string `json:"message"`
}
