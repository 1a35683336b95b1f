package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/itinerary"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/knowledge"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/recommendations"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/session"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/textfmt"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

func benchLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func BenchmarkKeywordSearch(b *testing.B) {
	ks, err := knowledge.NewService(nil, nil, benchLogger())
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ks.Search(ctx, "best night market street food in Mong Kok", 4)
	}
}

func BenchmarkItineraryParse(b *testing.B) {
	var sb strings.Builder
	for d := 1; d <= 7; d++ {
		fmt.Fprintf(&sb, "Day %d:\nMorning (9:00-12:00):\n- Activity: Sight %d\n- Cost: HK$%d\n- Transport: MTR\n", d, d, d*100)
	}
	reply := sb.String()
	p := itinerary.TextParser{}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Parse(reply, 7)
	}
}

func BenchmarkRecommendationParse(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		recommendations.BlockParser{}.Parse(e2eRecommendationReply)
	}
}

func BenchmarkRecommendationCacheKey(b *testing.B) {
	prefs := map[string]any{"interests": []string{"food", "hiking"}, "budget": "medium", "group_type": "couple"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		recommendations.Key(prefs, "Central", "evening", 5, "bench-session")
	}
}

func BenchmarkRecommendationCacheSet(b *testing.B) {
	c := recommendations.NewCache(0, 0, 0)
	recs := recommendations.Fallback()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(fmt.Sprintf("k%d", i), recs)
	}
}

func BenchmarkCleanMarkdown(b *testing.B) {
	text := strings.Repeat("## Tips\n**Go early** and try `egg tarts` at *Tai Cheong*.\n\n\n", 20)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		textfmt.CleanMarkdown(text)
	}
}

func BenchmarkSessionAddMessage(b *testing.B) {
	store := session.NewMemoryStore(session.WithLogger(benchLogger()))
	ctx := context.Background()
	id, err := store.Create(ctx, nil)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			store.AddMessage(ctx, id, types.RoleUser, "Where is the Star Ferry pier?")
		}
	})
}

func BenchmarkHealthEndpoint(b *testing.B) {
	h := newTestAPI(b, &scriptedLLM{}, session.NewMemoryStore(session.WithLogger(benchLogger())))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rr.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rr.Code)
		}
	}
}

func BenchmarkChatEndpoint(b *testing.B) {
	h := newTestAPI(b, &scriptedLLM{}, session.NewMemoryStore(session.WithLogger(benchLogger())))
	body := `{"message":"What should I eat in Hong Kong?"}`
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rr.Code)
		}
	}
}
