package llmChat

import (
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

const ragTemplate = `You are a helpful and knowledgeable Hong Kong tourism assistant. Use the provided context to answer questions about Hong Kong attractions, culture, food, transportation, and travel tips.

Context from Hong Kong Tourism Knowledge Base:
{{.context}}

Conversation History:
{{.chat_history}}

Human Question: {{.question}}

Please provide a helpful, accurate, and detailed answer about Hong Kong tourism. Include practical tips, recommendations, and any relevant cultural insights. If you don't have enough information to answer the question, say so honestly and suggest alternative resources.

Answer:`

const defaultHistoryWindow = 5

func newRAGPrompt() prompts.PromptTemplate {
	return prompts.NewPromptTemplate(ragTemplate, []string{"context", "chat_history", "question"})
}

// augmentQuery appends the traveller profile to the question.
func augmentQuery(query string, uc *types.UserContext) string {
	if uc == nil {
		return query
	}
	var parts []string
	if uc.Location != "" {
		parts = append(parts, "Current location: "+uc.Location)
	}
	if len(uc.Interests) > 0 {
		parts = append(parts, "Interests: "+strings.Join(uc.Interests, ", "))
	}
	if uc.BudgetRange != "" {
		parts = append(parts, "Budget: "+uc.BudgetRange)
	}
	if len(parts) == 0 {
		return query
	}
	return query + "\n\nUser context: " + strings.Join(parts, "; ")
}

// formatHistory renders the last window messages as Human/Assistant lines.
func formatHistory(history []types.ConversationMessage, window int) string {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	var b strings.Builder
	for _, m := range history {
		role := "Assistant"
		if m.Role == types.RoleUser {
			role = "Human"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func joinContext(docs []types.Document) string {
	contents := make([]string, 0, len(docs))
	for _, d := range docs {
		contents = append(contents, d.Content)
	}
	return strings.Join(contents, "\n\n")
}
