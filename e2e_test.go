package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	appMiddleware "github.com/FACorreiaa/go-hk-tourism-ai/app/middleware"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/auth"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/itinerary"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/knowledge"
	llmChat "github.com/FACorreiaa/go-hk-tourism-ai/internal/api/llm_chat"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/recommendations"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/session"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/translation"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/router"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

const (
	e2eChatReply = "Take the Peak Tram from Garden Road and go before sunset."

	e2eItineraryReply = `Day 1:
Morning (9:00-12:00):
- Activity: Star Ferry to Tsim Sha Tsui
- Cost: HK$5
- Transport: Walk to Central Pier

Day 2:
- Activity: Ngong Ping 360 and the Big Buddha
- Cost: HK$270
`

	e2eRecommendationReply = `RECOMMENDATION 1:
Name: Sham Shui Po food crawl
Category: food
Location: Sham Shui Po MTR
Description: Cheap local eats and Michelin-listed noodle shops.
Why recommended: Matches your love of food

RECOMMENDATION 2:
Name: Lamma Island hike
Category: nature
Location: Central Pier 4
Description: Easy coastal trail between two fishing villages.
`

	e2eTranslationReply = "TRANSLATION: Pineapple bun\nCONTEXT: It contains no pineapple."
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// scriptedLLM answers by prompt type so every feature sees a well-formed reply.
type scriptedLLM struct {
	recommendationCalls atomic.Int32
}

func (s *scriptedLLM) GenerateText(_ context.Context, prompt string, _ float64) (string, error) {
	switch {
	case strings.Contains(prompt, "Please translate"):
		return e2eTranslationReply, nil
	case strings.Contains(prompt, "travel planner"):
		return e2eItineraryReply, nil
	case strings.Contains(prompt, "RECOMMENDATION 1:"):
		s.recommendationCalls.Add(1)
		return e2eRecommendationReply, nil
	default:
		return e2eChatReply, nil
	}
}

func (s *scriptedLLM) ExtractText(context.Context, []byte, string) (string, error) {
	return "菠蘿包", nil
}

// E2ETestSuite drives the real router with in-memory backends and a scripted model.
type E2ETestSuite struct {
	suite.Suite
	server   *httptest.Server
	client   *http.Client
	llm      *scriptedLLM
	sessions *session.MemoryStore
}

// newTestAPI wires the real router over in-memory backends. The admin
// password is "harbour-lights".
func newTestAPI(tb testing.TB, llm *scriptedLLM, sessions *session.MemoryStore) http.Handler {
	tb.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ks, err := knowledge.NewService(nil, nil, logger)
	require.NoError(tb, err)
	chatSvc := llmChat.NewService(ks, llm, logger, 4, 5)
	itinerarySvc := itinerary.NewService(llm, logger)
	recSvc := recommendations.NewService(llm, nil, logger)
	translationSvc := translation.NewService(llm, llm, logger)

	hash, err := bcrypt.GenerateFromPassword([]byte("harbour-lights"), bcrypt.MinCost)
	require.NoError(tb, err)
	authenticator := appMiddleware.NewAuthenticator("e2e-secret", logger)

	return router.SetupRouter(&router.Config{
		Logger:            logger,
		Version:           "1.0.0",
		RequestsPerMinute: 100000,
		Timeout:           10 * time.Second,
		Authenticator:     authenticator,
		Status: func() api.ServiceStatus {
			return api.ServiceStatus{
				RAG:            chatSvc.Available(),
				User:           true,
				Recommendation: recSvc.Available(),
				Itinerary:      itinerarySvc.Available(),
				Translation:    translationSvc.Available(),
				VectorStore:    ks.VectorAvailable(),
			}
		},
		SessionHandler:        session.NewHandler(sessions, logger),
		ChatHandler:           llmChat.NewHandler(chatSvc, sessions, logger),
		KnowledgeHandler:      knowledge.NewHandler(ks, logger),
		ItineraryHandler:      itinerary.NewHandler(itinerarySvc, sessions, logger),
		RecommendationHandler: recommendations.NewHandler(recSvc, sessions, logger),
		TranslationHandler:    translation.NewHandler(translationSvc, sessions, logger),
		AuthHandler:           auth.NewAuthHandler(auth.NewAuthService(authenticator, "admin", string(hash), logger), logger),
	})
}

func (s *E2ETestSuite) SetupSuite() {
	s.llm = &scriptedLLM{}
	s.sessions = session.NewMemoryStore(session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.server = httptest.NewServer(newTestAPI(s.T(), s.llm, s.sessions))
	s.client = &http.Client{Timeout: 10 * time.Second}
}

func (s *E2ETestSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
}

func (s *E2ETestSuite) do(method, path string, body any, token string) *http.Response {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (s *E2ETestSuite) login() string {
	resp := s.do(http.MethodPost, "/api/auth/login", api.LoginRequest{Username: "admin", Password: "harbour-lights"}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	return decode[api.LoginResponse](s.T(), resp).AccessToken
}

func (s *E2ETestSuite) TestRootAndHealth() {
	resp := s.do(http.MethodGet, "/", nil, "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("HK Tourism AI API is running!", decode[api.MessageResponse](s.T(), resp).Message)

	resp = s.do(http.MethodGet, "/health", nil, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	health := decode[api.HealthResponse](s.T(), resp)
	s.Equal("healthy", health.Status)
	s.Equal("1.0.0", health.Version)
	s.True(health.Services.RAG)
	s.True(health.Services.Translation)
	s.False(health.Services.VectorStore)
}

func (s *E2ETestSuite) TestChatConversation() {
	resp := s.do(http.MethodPost, "/api/session", types.SessionRequest{
		UserContext: &types.UserContext{Location: "Central", Interests: []string{"views"}},
	}, "")
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	sessionID := decode[types.SessionResponse](s.T(), resp).SessionID

	resp = s.do(http.MethodPost, "/api/chat", types.ChatRequest{
		Message:   "How do I get to Victoria Peak?",
		SessionID: sessionID,
	}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	chat := decode[types.ChatResponse](s.T(), resp)
	s.Equal(sessionID, chat.SessionID)
	s.Equal(e2eChatReply, chat.Message)
	s.NotEmpty(chat.Sources)
	s.LessOrEqual(len(chat.Sources), 4)

	resp = s.do(http.MethodGet, "/api/session/"+sessionID+"/stats", nil, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	stats := decode[types.SessionStats](s.T(), resp)
	s.Equal(2, stats.ConversationMessages)

	resp = s.do(http.MethodPost, "/api/chat", types.ChatRequest{Message: "   "}, "")
	resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *E2ETestSuite) TestUnknownSessionStats() {
	resp := s.do(http.MethodGet, "/api/session/does-not-exist/stats", nil, "")
	resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *E2ETestSuite) TestItineraryAndPDF() {
	body := types.ItineraryRequest{Duration: 3, Interests: []string{"culture"}, Budget: "medium"}

	resp := s.do(http.MethodPost, "/api/itinerary", body, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	it := decode[types.ItineraryResponse](s.T(), resp)
	s.Len(it.Itinerary, 3)
	s.Equal(275.0, it.TotalEstimatedCost)
	s.NotEmpty(it.Tips)
	s.NotEmpty(it.SessionID)

	prefs := s.sessions.Preferences(context.Background(), it.SessionID)
	s.Equal("medium", prefs["budget"])

	resp = s.do(http.MethodPost, "/api/itinerary/pdf", body, "")
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("application/pdf", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.True(bytes.HasPrefix(raw, []byte("%PDF")))

	resp = s.do(http.MethodPost, "/api/itinerary", types.ItineraryRequest{Duration: 0}, "")
	resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *E2ETestSuite) TestRecommendationsAreCached() {
	body := types.RecommendationRequest{
		UserPreferences: map[string]any{"interests": []string{"food"}},
		Limit:           2,
		SessionID:       "e2e-cache",
	}
	before := s.llm.recommendationCalls.Load()

	resp := s.do(http.MethodPost, "/api/recommendations", body, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	first := decode[types.RecommendationResponse](s.T(), resp)
	s.Require().Len(first.Recommendations, 2)
	s.Equal("Sham Shui Po food crawl", first.Recommendations[0].Name)

	// Reuse the server-issued id so the cache key matches.
	body.SessionID = first.SessionID
	for range 2 {
		resp = s.do(http.MethodPost, "/api/recommendations", body, "")
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		s.Equal(first.Recommendations, decode[types.RecommendationResponse](s.T(), resp).Recommendations)
	}
	s.Equal(before+1, s.llm.recommendationCalls.Load(), "repeat requests on the same session must hit the cache")
}

func (s *E2ETestSuite) TestTranslation() {
	resp := s.do(http.MethodPost, "/api/translate", types.TranslationRequest{Text: "菠蘿包", ContextType: "menu"}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	tr := decode[types.TranslationResponse](s.T(), resp)
	s.Equal("Pineapple bun", tr.TranslatedText)
	s.Equal(0.9, tr.Confidence)
	s.NotEmpty(tr.SessionID)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "menu.png")
	s.Require().NoError(err)
	_, err = fw.Write(pngMagic)
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/api/translate-image", &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err = s.client.Do(req)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	img := decode[types.Translation](s.T(), resp)
	s.Equal("Pineapple bun", img.TranslatedText)
	s.Equal("菠蘿包", img.OriginalText)
}

func (s *E2ETestSuite) TestAdminRoutes() {
	resp := s.do(http.MethodPost, "/api/session/cleanup", nil, "")
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/auth/login", api.LoginRequest{Username: "admin", Password: "wrong"}, "")
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	token := s.login()

	resp = s.do(http.MethodPost, "/api/session/cleanup", nil, token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Contains(decode[api.MessageResponse](s.T(), resp).Message, "Cleaned up")

	resp = s.do(http.MethodGet, "/api/session/overview", nil, token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	overview := decode[types.SessionsOverview](s.T(), resp)
	s.GreaterOrEqual(overview.TotalSessions, overview.ActiveSessions)

	resp = s.do(http.MethodPost, "/api/knowledge/documents", types.AddDocumentRequest{
		Title:   "Tai O Fishing Village",
		Content: "Tai O on Lantau Island is known for stilt houses and pink dolphins.",
	}, token)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodGet, "/api/knowledge/search?q=stilt&k=3", nil, token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	found := decode[knowledge.SearchResponse](s.T(), resp)
	s.Require().NotEmpty(found.Documents)
	s.Equal("Tai O Fishing Village", found.Documents[0].Title)
}

func (s *E2ETestSuite) TestConcurrentChats() {
	t := s.T()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := s.client.Post(s.server.URL+"/api/chat", "application/json",
				strings.NewReader(`{"message":"Where can I eat dim sum?"}`))
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}()
	}
	wg.Wait()
}

func TestE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end suite in short mode")
	}
	suite.Run(t, new(E2ETestSuite))
}
