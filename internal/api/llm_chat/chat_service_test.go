package llmChat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"

	generativeAI "github.com/FACorreiaa/go-hk-tourism-ai/internal/api/generative_ai"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/knowledge"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/session"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) GenerateText(ctx context.Context, prompt string, temperature float64) (string, error) {
	args := m.Called(ctx, prompt, temperature)
	return args.String(0), args.Error(1)
}

type MockKnowledge struct {
	mock.Mock
}

func (m *MockKnowledge) Search(ctx context.Context, query string, k int) ([]types.Document, knowledge.RetrievalMode) {
	args := m.Called(ctx, query, k)
	return args.Get(0).([]types.Document), args.Get(1).(knowledge.RetrievalMode)
}

func (m *MockKnowledge) AddDocument(ctx context.Context, title, content string, metadata map[string]any) (int, error) {
	args := m.Called(ctx, title, content, metadata)
	return args.Int(0), args.Error(1)
}

func (m *MockKnowledge) Seed(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockKnowledge) VectorAvailable() bool { return m.Called().Bool(0) }

func keywordKnowledge(t *testing.T) knowledge.Service {
	t.Helper()
	ks, err := knowledge.NewService(nil, nil, discardLogger())
	require.NoError(t, err)
	return ks
}

func TestAugmentQuery(t *testing.T) {
	tests := []struct {
		name string
		uc   *types.UserContext
		want string
	}{
		{"nil context", nil, "Where to eat?"},
		{"empty context", &types.UserContext{LanguagePreference: "en"}, "Where to eat?"},
		{
			"all parts in order",
			&types.UserContext{Location: "Wan Chai", Interests: []string{"food", "culture"}, BudgetRange: "medium"},
			"Where to eat?\n\nUser context: Current location: Wan Chai; Interests: food, culture; Budget: medium",
		},
		{"budget only", &types.UserContext{BudgetRange: "low"}, "Where to eat?\n\nUser context: Budget: low"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, augmentQuery("Where to eat?", tt.uc))
		})
	}
}

func TestFormatHistory(t *testing.T) {
	var history []types.ConversationMessage
	for i := 0; i < 7; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		history = append(history, types.ConversationMessage{Role: role, Content: string(rune('a' + i))})
	}

	got := formatHistory(history, 5)
	assert.Equal(t, "Human: c\nAssistant: d\nHuman: e\nAssistant: f\nHuman: g\n", got)
	assert.Empty(t, formatHistory(nil, 5))
}

func TestChatService(t *testing.T) {
	ctx := context.Background()

	t.Run("prompt carries context, history and question", func(t *testing.T) {
		kn := new(MockKnowledge)
		kn.On("Search", mock.Anything, "How do I get to the Peak?", 4).Return([]types.Document{
			{Title: "Victoria Peak", Content: "Take the Peak Tram from Garden Road.", Score: 0.87},
		}, knowledge.ModeVector)

		gen := new(MockTextGenerator)
		gen.On("GenerateText", mock.Anything, mock.MatchedBy(func(p string) bool {
			return strings.Contains(p, "Take the Peak Tram from Garden Road.") &&
				strings.Contains(p, "Human: hello\n") &&
				strings.Contains(p, "Human Question: How do I get to the Peak?") &&
				strings.HasSuffix(p, "Answer:")
		}), chatTemperature).Return("**Take** the tram", nil)

		svc := NewService(kn, gen, discardLogger(), 4, 5)
		answer := svc.Chat(ctx, "How do I get to the Peak?",
			[]types.ConversationMessage{{Role: types.RoleUser, Content: "hello"}}, nil)

		assert.NotContains(t, answer.Answer, "**")
		assert.True(t, strings.HasPrefix(answer.Answer, "Take the tram"))
		require.Len(t, answer.Sources, 1)
		assert.Equal(t, "Victoria Peak", answer.Sources[0].Title)
		assert.InDelta(t, 0.87, answer.Sources[0].RelevanceScore, 1e-9)
		assert.Equal(t, 1, answer.ContextUsed)
		gen.AssertExpectations(t)
		kn.AssertExpectations(t)
	})

	t.Run("keyword sources get placeholder score and excerpt", func(t *testing.T) {
		long := strings.Repeat("x", 300)
		kn := new(MockKnowledge)
		kn.On("Search", mock.Anything, mock.Anything, 4).Return([]types.Document{
			{Content: long},
		}, knowledge.ModeKeyword)

		llm := generativeAI.NewLangChainClient("fake", fake.NewFakeLLM([]string{"Sure."}), nil)
		svc := NewService(kn, llm, discardLogger(), 0, 0)
		answer := svc.Chat(ctx, "anything", nil, nil)

		require.Len(t, answer.Sources, 1)
		assert.Equal(t, defaultSourceTitle, answer.Sources[0].Title)
		assert.Equal(t, keywordSourceScore, answer.Sources[0].RelevanceScore)
		assert.Equal(t, strings.Repeat("x", 200)+"...", answer.Sources[0].Content)
	})

	t.Run("no provider returns apology", func(t *testing.T) {
		svc := NewService(keywordKnowledge(t), nil, discardLogger(), 4, 5)
		answer := svc.Chat(ctx, "Where is Lantau?", nil, nil)
		assert.Equal(t, ApologyMessage, answer.Answer)
		assert.Empty(t, answer.Sources)
		assert.False(t, svc.Available())
	})

	t.Run("failing model with unmatched query still answers", func(t *testing.T) {
		gen := new(MockTextGenerator)
		gen.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("503 from provider"))

		svc := NewService(keywordKnowledge(t), gen, discardLogger(), 4, 5)
		answer := svc.Chat(ctx, "qwertyuiop", nil, nil)
		assert.NotEmpty(t, answer.Answer)
		assert.Equal(t, ApologyMessage, answer.Answer)
		assert.LessOrEqual(t, len(answer.Sources), 4)
	})

	t.Run("blank model reply is treated as failure", func(t *testing.T) {
		llm := generativeAI.NewLangChainClient("fake", fake.NewFakeLLM([]string{"   "}), nil)
		svc := NewService(keywordKnowledge(t), llm, discardLogger(), 4, 5)
		assert.Equal(t, ApologyMessage, svc.Chat(ctx, "dim sum", nil, nil).Answer)
	})
}

func TestChatHandler(t *testing.T) {
	store := session.NewMemoryStore(session.WithLogger(discardLogger()))
	llm := generativeAI.NewLangChainClient("fake", fake.NewFakeLLM([]string{"Try the Star Ferry."}), nil)
	svc := NewService(keywordKnowledge(t), llm, discardLogger(), 4, 5)
	h := NewHandler(svc, store, discardLogger())

	post := func(body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.Chat(rr, httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(body)))
		return rr
	}

	t.Run("empty message is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, post(`{"message":"  "}`).Code)
	})

	t.Run("creates a session and records both turns", func(t *testing.T) {
		rr := post(`{"message":"How do I cross the harbour?","conversation_id":"c-1","user_context":{"location":"Central"}}`)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp types.ChatResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "Try the Star Ferry.", resp.Message)
		assert.Equal(t, "c-1", resp.ConversationID)
		assert.NotEmpty(t, resp.Sources)
		require.NotEmpty(t, resp.SessionID)

		history := store.History(context.Background(), resp.SessionID, 0)
		require.Len(t, history, 2)
		assert.Equal(t, types.RoleUser, history[0].Role)
		assert.Equal(t, types.RoleAssistant, history[1].Role)

		uc, ok := store.UserContext(context.Background(), resp.SessionID)
		require.True(t, ok)
		assert.Equal(t, "Central", uc.Location)

		rr = post(`{"message":"And back?","session_id":"` + resp.SessionID + `"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		var second types.ChatResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))
		assert.Equal(t, resp.SessionID, second.SessionID)
		assert.Len(t, store.History(context.Background(), resp.SessionID, 0), 4)
	})

	t.Run("unknown session id gets a fresh session", func(t *testing.T) {
		rr := post(`{"message":"hi","session_id":"does-not-exist"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp types.ChatResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.NotEqual(t, "does-not-exist", resp.SessionID)
	})
}
