package itinerary

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
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"

	generativeAI "github.com/FACorreiaa/go-hk-tourism-ai/internal/api/generative_ai"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/session"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

const twoDayReply = `**Day 1:**
Morning (9:00-12:00):
- Activity: Victoria Peak via Peak Tram
- Duration: 2 hours
- Cost: HK$1,088 for the tram and Sky Terrace
- Transport: MTR to Central station, walk to Garden Road
- Tips: Go early to avoid queues

Afternoon (12:00-18:00):
- Activity: Dim sum at Tim Ho Wan
- Duration: 1.5 hours
- Cost: 150
- Transport: Bus 15C
- Tips: Order the BBQ pork buns

Daily Total Cost: HK$1238

Day 2:
- Activity: Big Buddha
- Cost: about 250.50 HKD
- Transport: Tung Chung station then Ngong Ping 360
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingGenerator struct{}

func (failingGenerator) GenerateText(context.Context, string, float64) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestParser(t *testing.T) {
	p := TextParser{}

	t.Run("parses structured days", func(t *testing.T) {
		days := p.Parse(twoDayReply, 2)
		require.Len(t, days, 2)

		d1 := days[0]
		assert.Equal(t, 1, d1.Day)
		require.Len(t, d1.Activities, 2)
		assert.Equal(t, "Victoria Peak via Peak Tram", d1.Activities[0].Name)
		assert.Equal(t, d1.Activities[0].Name, d1.Activities[0].Description)
		assert.Equal(t, "Morning", d1.Activities[0].Time)
		assert.Equal(t, "2 hours", d1.Activities[0].Duration)
		assert.Equal(t, 1088.0, d1.Activities[0].Cost)
		assert.Equal(t, "Go early to avoid queues", d1.Activities[0].Tips)
		assert.Equal(t, "Afternoon", d1.Activities[1].Time)
		assert.Equal(t, 1238.0, d1.EstimatedCost)
		assert.Equal(t, 3, strings.Count(d1.TransportationInfo, "; ")+1)
		assert.Contains(t, d1.TransportationInfo, "Central station")

		d2 := days[1]
		assert.Equal(t, 2, d2.Day)
		require.Len(t, d2.Activities, 1)
		assert.Equal(t, 250.5, d2.Activities[0].Cost)
	})

	t.Run("always returns the requested number of days", func(t *testing.T) {
		for _, tc := range []struct {
			name  string
			reply string
		}{
			{"more days than requested", twoDayReply + "\nDay 3: \nDay 4: \n"},
			{"fewer days than requested", "Day 1: - Activity: walk"},
			{"no day headers", "Just go see the harbour.\n\nEat dim sum.\n\nRide the tram."},
			{"empty reply", ""},
		} {
			t.Run(tc.name, func(t *testing.T) {
				days := p.Parse(tc.reply, 3)
				assert.Len(t, days, 3)
			})
		}
	})

	t.Run("padding numbers days sequentially", func(t *testing.T) {
		days := p.Parse(twoDayReply, 4)
		require.Len(t, days, 4)
		assert.Equal(t, 3, days[2].Day)
		assert.Equal(t, 4, days[3].Day)
		assert.Empty(t, days[3].Activities)
	})

	t.Run("fallback spreads the reply", func(t *testing.T) {
		days := p.Parse("Harbour walk.\n\nDim sum lunch.\n\nNight market.\n\nTemple visit.", 2)
		require.Len(t, days, 2)
		for i, d := range days {
			assert.Equal(t, i+1, d.Day)
			require.Len(t, d.Activities, 1)
			assert.Equal(t, "Full Day", d.Activities[0].Time)
			assert.Equal(t, 500.0, d.EstimatedCost)
			assert.Equal(t, "Use MTR system with Octopus Card", d.TransportationInfo)
		}
		assert.Equal(t, "Day 1 Activities", days[0].Activities[0].Name)
		assert.Equal(t, "Harbour walk.\nDim sum lunch.", days[0].Activities[0].Description)
		assert.Equal(t, "Night market.\nTemple visit.", days[1].Activities[0].Description)
	})

	t.Run("fallback truncates long descriptions", func(t *testing.T) {
		days := p.Parse(strings.Repeat("a", 700), 1)
		assert.Equal(t, strings.Repeat("a", 500)+"...", days[0].Activities[0].Description)
	})
}

func TestExtractCost(t *testing.T) {
	assert.Equal(t, 1500.0, extractCost("HK$1,500 per person"))
	assert.Equal(t, 12.5, extractCost("12.5"))
	assert.Equal(t, 0.0, extractCost("free"))
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt(types.ItineraryRequest{Duration: 2, Budget: "luxury", TravelStyle: "fast", GroupSize: 2})
	assert.Contains(t, p, "Create a detailed 2-day itinerary")
	assert.Contains(t, p, "Interests: general sightseeing")
	assert.Contains(t, p, "HK$500-1000 per day")
	assert.Contains(t, p, "4-5 activities per day")
	assert.Contains(t, p, "- Central Hong Kong area")
	assert.NotContains(t, p, "Special requirements")

	p = buildPrompt(types.ItineraryRequest{Duration: 1, Accommodation: "Tsim Sha Tsui", SpecialRequirements: []string{"wheelchair"}})
	assert.Contains(t, p, "Starting point: Tsim Sha Tsui")
	assert.Contains(t, p, "Special requirements: wheelchair")
}

func TestService(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid duration", func(t *testing.T) {
		svc := NewService(failingGenerator{}, discardLogger())
		_, err := svc.Generate(ctx, types.ItineraryRequest{Duration: 0})
		assert.ErrorIs(t, err, types.ErrInvalidInput)
		_, err = svc.Generate(ctx, types.ItineraryRequest{Duration: MaxDuration + 1})
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	})

	t.Run("no provider", func(t *testing.T) {
		svc := NewService(nil, discardLogger())
		_, err := svc.Generate(ctx, types.ItineraryRequest{Duration: 1})
		assert.ErrorIs(t, err, types.ErrServiceUnavailable)
	})

	t.Run("model error propagates", func(t *testing.T) {
		svc := NewService(failingGenerator{}, discardLogger())
		_, err := svc.Generate(ctx, types.ItineraryRequest{Duration: 1})
		require.Error(t, err)
		assert.NotErrorIs(t, err, types.ErrServiceUnavailable)
	})
}

func TestHandler(t *testing.T) {
	store := session.NewMemoryStore(session.WithLogger(discardLogger()))
	llm := generativeAI.NewLangChainClient("fake", fake.NewFakeLLM([]string{twoDayReply}), nil)
	h := NewHandler(NewService(llm, discardLogger()), store, discardLogger())

	t.Run("generates and stores preferences", func(t *testing.T) {
		body := `{"duration":2,"interests":["food"],"budget":"low"}`
		rr := httptest.NewRecorder()
		h.GenerateItinerary(rr, httptest.NewRequest(http.MethodPost, "/api/itinerary", bytes.NewBufferString(body)))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp types.ItineraryResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Len(t, resp.Itinerary, 2)
		assert.InDelta(t, 1238+250.5, resp.TotalEstimatedCost, 1e-9)
		assert.NotEmpty(t, resp.Tips)

		prefs := store.Preferences(context.Background(), resp.SessionID)
		assert.Equal(t, "low", prefs["budget"])
		assert.Equal(t, "moderate", prefs["travel_style"])
	})

	t.Run("rejects bad duration", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.GenerateItinerary(rr, httptest.NewRequest(http.MethodPost, "/api/itinerary", bytes.NewBufferString(`{"duration":0}`)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("no provider is 503", func(t *testing.T) {
		h := NewHandler(NewService(nil, discardLogger()), store, discardLogger())
		rr := httptest.NewRecorder()
		h.GenerateItinerary(rr, httptest.NewRequest(http.MethodPost, "/api/itinerary", bytes.NewBufferString(`{"duration":1}`)))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("model failure is 500", func(t *testing.T) {
		h := NewHandler(NewService(failingGenerator{}, discardLogger()), store, discardLogger())
		rr := httptest.NewRecorder()
		h.GenerateItinerary(rr, httptest.NewRequest(http.MethodPost, "/api/itinerary", bytes.NewBufferString(`{"duration":1}`)))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("pdf export", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ExportPDF(rr, httptest.NewRequest(http.MethodPost, "/api/itinerary/pdf", bytes.NewBufferString(`{"duration":2}`)))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))
		assert.NotEmpty(t, rr.Header().Get("X-Session-ID"))
	})
}
