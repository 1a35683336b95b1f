package recommendations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-hk-tourism-ai/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-hk-tourism-ai/internal/api/generative_ai"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

const (
	DefaultLimit              = 5
	recommendationTemperature = 0.3
	// DefaultGenerationTimeout bounds one shared model call.
	DefaultGenerationTimeout = 60 * time.Second
)

type generation struct {
	recs   []types.Recommendation
	parsed bool
}

type Service interface {
	// Recommend never fails: any problem yields the fallback list.
	Recommend(ctx context.Context, prefs map[string]any, location, timeContext string, limit int, sessionID string) []types.Recommendation
	Available() bool
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger *slog.Logger
	llm    generativeAI.TextGenerator
	cache  *Cache
	parser Parser
	group  singleflight.Group

	generationTimeout time.Duration
}

func NewService(llm generativeAI.TextGenerator, c *Cache, logger *slog.Logger) *ServiceImpl {
	if c == nil {
		c = NewCache(DefaultCacheTTL, DefaultCacheMaxEntries, DefaultCacheEvictCount)
	}
	return &ServiceImpl{
		logger:            logger,
		llm:               llm,
		cache:             c,
		parser:            BlockParser{},
		generationTimeout: DefaultGenerationTimeout,
	}
}

func (s *ServiceImpl) Available() bool { return s.llm != nil }

func (s *ServiceImpl) Recommend(ctx context.Context, prefs map[string]any, location, timeContext string, limit int, sessionID string) []types.Recommendation {
	ctx, span := otel.Tracer("RecommendationService").Start(ctx, "Recommend", trace.WithAttributes(
		attribute.String("location", location),
		attribute.Int("limit", limit),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Recommend"))

	if limit <= 0 {
		limit = DefaultLimit
	}

	key := Key(prefs, location, timeContext, limit, sessionID)
	span.SetAttributes(attribute.String("cache.key", key))

	if recs, ok := s.cache.Get(key); ok {
		s.recordLookup(ctx, "hit")
		l.InfoContext(ctx, "Returning cached recommendations")
		return truncate(recs, limit)
	}
	s.recordLookup(ctx, "miss")

	ch := s.group.DoChan(key, func() (any, error) {
		// Shared by every waiting caller; not tied to the first caller's lifetime.
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.generationTimeout)
		defer cancel()

		recs, parsed, err := s.generate(genCtx, prefs, location, timeContext, limit)
		if err != nil {
			return nil, err
		}
		if parsed {
			s.cache.Set(key, recs)
		}
		return generation{recs: recs, parsed: parsed}, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		l.InfoContext(ctx, "Caller left before recommendations were ready", slog.Any("error", ctx.Err()))
		s.recordFallback(ctx, "canceled")
		return truncate(Fallback(), limit)
	}
	span.SetAttributes(attribute.Bool("singleflight.shared", res.Shared))

	if res.Err != nil {
		l.ErrorContext(ctx, "Recommendation error, serving fallback", slog.Any("error", res.Err))
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "Generation failed")
		s.recordFallback(ctx, "generation_failed")
		return truncate(Fallback(), limit)
	}
	g := res.Val.(generation)
	if !g.parsed {
		l.WarnContext(ctx, "Model reply had no recommendation blocks, serving fallback uncached")
		s.recordFallback(ctx, "unparseable")
	}
	return truncate(g.recs, limit)
}

func (s *ServiceImpl) generate(ctx context.Context, prefs map[string]any, location, timeContext string, limit int) ([]types.Recommendation, bool, error) {
	if s.llm == nil {
		return nil, false, fmt.Errorf("%w: recommendations have no text model", types.ErrServiceUnavailable)
	}
	reply, err := s.llm.GenerateText(ctx, buildPrompt(prefs, location, timeContext, limit), recommendationTemperature)
	if err != nil {
		return nil, false, fmt.Errorf("recommendation generation failed: %w", err)
	}
	recs, parsed := s.parser.Parse(reply)
	return recs, parsed, nil
}

func (s *ServiceImpl) recordFallback(ctx context.Context, reason string) {
	metrics.Get().FallbacksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", "recommendations"),
		attribute.String("reason", reason),
	))
}

func (s *ServiceImpl) recordLookup(ctx context.Context, result string) {
	metrics.Get().CacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", "recommendations"),
		attribute.String("result", result),
	))
}

// truncate copies at most n items so callers never share the cached slice.
func truncate(recs []types.Recommendation, n int) []types.Recommendation {
	if len(recs) > n {
		recs = recs[:n]
	}
	return append([]types.Recommendation(nil), recs...)
}
