package llmChat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-hk-tourism-ai/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-hk-tourism-ai/internal/api/generative_ai"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/knowledge"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/textfmt"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

const (
	ApologyMessage = "I apologize, but I'm experiencing some technical difficulties. Please try asking your question again, or contact support if the issue persists."

	chatTemperature      = 0.3
	keywordSourceScore   = 0.8
	sourceExcerptLength  = 200
	defaultSourceTitle   = "Hong Kong Tourism Info"
	defaultRetrievalTopK = 4
)

var errNoTextModel = errors.New("no text model configured")

type Service interface {
	// Chat answers a tourism question. It never fails; provider or retrieval
	// problems produce the apology answer with no sources.
	Chat(ctx context.Context, query string, history []types.ConversationMessage, uc *types.UserContext) types.ChatAnswer
	Available() bool
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger        *slog.Logger
	knowledge     knowledge.Service
	llm           generativeAI.TextGenerator
	topK          int
	historyWindow int
}

// NewService builds the chat pipeline. llm may be nil.
func NewService(ks knowledge.Service, llm generativeAI.TextGenerator, logger *slog.Logger, topK, historyWindow int) *ServiceImpl {
	if topK <= 0 {
		topK = defaultRetrievalTopK
	}
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	return &ServiceImpl{
		logger:        logger,
		knowledge:     ks,
		llm:           llm,
		topK:          topK,
		historyWindow: historyWindow,
	}
}

func (s *ServiceImpl) Available() bool {
	return s.llm != nil && s.knowledge != nil
}

func (s *ServiceImpl) Chat(ctx context.Context, query string, history []types.ConversationMessage, uc *types.UserContext) types.ChatAnswer {
	ctx, span := otel.Tracer("LlmChatService").Start(ctx, "Chat", trace.WithAttributes(
		attribute.Int("history.length", len(history)),
		attribute.Bool("user_context.present", uc != nil),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Chat"))

	answer, err := s.answer(ctx, query, history, uc)
	if err != nil {
		l.ErrorContext(ctx, "Chat pipeline failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Chat failed")
		metrics.Get().FallbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("component", "chat")))
		return types.ChatAnswer{Answer: ApologyMessage, Sources: []types.Source{}}
	}

	span.SetAttributes(attribute.Int("sources.count", len(answer.Sources)))
	return answer
}

func (s *ServiceImpl) answer(ctx context.Context, query string, history []types.ConversationMessage, uc *types.UserContext) (types.ChatAnswer, error) {
	if s.llm == nil || s.knowledge == nil {
		return types.ChatAnswer{}, errNoTextModel
	}

	question := augmentQuery(query, uc)
	docs, mode := s.knowledge.Search(ctx, question, s.topK)

	prompt, err := newRAGPrompt().Format(map[string]any{
		"context":      joinContext(docs),
		"chat_history": formatHistory(history, s.historyWindow),
		"question":     question,
	})
	if err != nil {
		return types.ChatAnswer{}, fmt.Errorf("failed to format chat prompt: %w", err)
	}

	reply, err := s.llm.GenerateText(ctx, prompt, chatTemperature)
	if err != nil {
		return types.ChatAnswer{}, fmt.Errorf("failed to generate chat answer: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		return types.ChatAnswer{}, errors.New("model returned an empty answer")
	}

	return types.ChatAnswer{
		Answer:      textfmt.Humanize(reply),
		Sources:     buildSources(docs, mode),
		ContextUsed: len(docs),
	}, nil
}

func buildSources(docs []types.Document, mode knowledge.RetrievalMode) []types.Source {
	sources := make([]types.Source, 0, len(docs))
	for _, d := range docs {
		title := d.Title
		if title == "" {
			if t, ok := d.Metadata["title"].(string); ok && t != "" {
				title = t
			} else {
				title = defaultSourceTitle
			}
		}
		score := keywordSourceScore
		if mode == knowledge.ModeVector {
			score = d.Score
		}
		src := types.Source{
			Title:          title,
			Content:        textfmt.Excerpt(d.Content, sourceExcerptLength),
			RelevanceScore: score,
		}
		if u, ok := d.Metadata["url"].(string); ok {
			src.URL = u
		}
		sources = append(sources, src)
	}
	return sources
}
