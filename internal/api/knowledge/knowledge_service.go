package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/patrickmn/go-cache"
	"github.com/tmc/langchaingo/textsplitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-hk-tourism-ai/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-hk-tourism-ai/internal/api/generative_ai"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

type RetrievalMode string

const (
	ModeVector  RetrievalMode = "vector"
	ModeKeyword RetrievalMode = "keyword"
	ModeGeneric RetrievalMode = "generic"
)

const (
	DefaultTopK         = 4
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	seedConcurrency     = 4
	embedAttempts       = 3
)

type Service interface {
	// Search never fails: it degrades from vector to keyword to a generic document.
	Search(ctx context.Context, query string, k int) ([]types.Document, RetrievalMode)
	// AddDocument returns the number of chunks written to the vector table.
	AddDocument(ctx context.Context, title, content string, metadata map[string]any) (int, error)
	// Seed loads the embedded corpus into an empty vector table.
	Seed(ctx context.Context) (int, error)
	VectorAvailable() bool
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger     *slog.Logger
	repo       Repository
	embedder   generativeAI.Embedder
	keywords   *KeywordStore
	splitter   textsplitter.TextSplitter
	embedCache *cache.Cache
	retryDelay time.Duration
}

type ServiceOption func(*ServiceImpl)

// WithChunking sets the splitter used for AddDocument and Seed.
func WithChunking(size, overlap int) ServiceOption {
	return func(s *ServiceImpl) {
		if size <= 0 {
			return
		}
		if overlap < 0 || overlap >= size {
			overlap = defaultChunkOverlap
		}
		s.splitter = textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		)
	}
}

func WithRetryDelay(d time.Duration) ServiceOption {
	return func(s *ServiceImpl) { s.retryDelay = d }
}

// NewService wires retrieval. repo and embedder may be nil, in which case
// only the keyword store is used. The keyword store starts with the seed corpus.
func NewService(repo Repository, embedder generativeAI.Embedder, logger *slog.Logger, opts ...ServiceOption) (*ServiceImpl, error) {
	seeds, err := LoadSeedCorpus()
	if err != nil {
		return nil, err
	}
	docs := make([]types.Document, 0, len(seeds))
	for _, sd := range seeds {
		docs = append(docs, sd.document())
	}

	s := &ServiceImpl{
		logger:     logger,
		repo:       repo,
		embedder:   embedder,
		keywords:   NewKeywordStore(docs...),
		embedCache: cache.New(15*time.Minute, 30*time.Minute),
		retryDelay: 500 * time.Millisecond,
	}
	WithChunking(defaultChunkSize, defaultChunkOverlap)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *ServiceImpl) VectorAvailable() bool {
	return s.repo != nil && s.embedder != nil
}

func (s *ServiceImpl) Search(ctx context.Context, query string, k int) ([]types.Document, RetrievalMode) {
	ctx, span := otel.Tracer("KnowledgeService").Start(ctx, "Search", trace.WithAttributes(
		attribute.Int("k", k),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Search"))

	if k <= 0 {
		k = DefaultTopK
	}

	if s.VectorAvailable() {
		docs, err := s.searchVector(ctx, query, k)
		switch {
		case err != nil:
			l.WarnContext(ctx, "Vector search failed, using keyword store", slog.Any("error", err))
			span.RecordError(err)
			s.recordFallback(ctx, "vector_error")
		case len(docs) == 0:
			l.DebugContext(ctx, "Vector search returned nothing, using keyword store")
			s.recordFallback(ctx, "vector_empty")
		default:
			span.SetAttributes(attribute.String("retrieval.mode", string(ModeVector)))
			return docs, ModeVector
		}
	}

	if s.keywords.Len() == 0 {
		span.SetAttributes(attribute.String("retrieval.mode", string(ModeGeneric)))
		return []types.Document{genericDocument()}, ModeGeneric
	}
	span.SetAttributes(attribute.String("retrieval.mode", string(ModeKeyword)))
	return s.keywords.Search(query, k), ModeKeyword
}

func (s *ServiceImpl) recordFallback(ctx context.Context, reason string) {
	metrics.Get().FallbacksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", "retrieval"),
		attribute.String("reason", reason),
	))
}

func (s *ServiceImpl) searchVector(ctx context.Context, query string, k int) ([]types.Document, error) {
	vec, err := s.queryEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.repo.SearchSimilar(ctx, vec, k)
}

// queryEmbedding memoizes query embeddings; repeated questions are common.
func (s *ServiceImpl) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	key := strings.TrimSpace(strings.ToLower(query))
	if v, ok := s.embedCache.Get(key); ok {
		metrics.Get().CacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("cache", "query_embedding"), attribute.String("result", "hit")))
		return v.([]float32), nil
	}
	metrics.Get().CacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", "query_embedding"), attribute.String("result", "miss")))

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	s.embedCache.SetDefault(key, vec)
	return vec, nil
}

func (s *ServiceImpl) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	return retry.DoWithData(
		func() ([]float32, error) {
			return s.embedder.EmbedDocument(ctx, text)
		},
		retry.Context(ctx),
		retry.Attempts(embedAttempts),
		retry.Delay(s.retryDelay),
		retry.MaxDelay(5*time.Second),
		retry.LastErrorOnly(true),
	)
}

func (s *ServiceImpl) AddDocument(ctx context.Context, title, content string, metadata map[string]any) (int, error) {
	ctx, span := otel.Tracer("KnowledgeService").Start(ctx, "AddDocument", trace.WithAttributes(
		attribute.String("document.title", title),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "AddDocument"), slog.String("title", title))

	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return 0, fmt.Errorf("%w: title and content are required", types.ErrInvalidInput)
	}

	meta := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["title"] = title

	s.keywords.Add(types.Document{Title: title, Content: content, Metadata: meta})

	if !s.VectorAvailable() {
		l.InfoContext(ctx, "Added document to keyword store only")
		return 0, nil
	}

	n, err := s.indexDocument(ctx, title, content, meta)
	if err != nil {
		l.ErrorContext(ctx, "Failed to index document", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Indexing failed")
		return n, err
	}
	l.InfoContext(ctx, "Added document to vector store", slog.Int("chunks", n))
	return n, nil
}

type chunkJob struct {
	title   string
	content string
	index   int
	meta    map[string]any
}

func (s *ServiceImpl) chunks(title, content string, meta map[string]any) ([]chunkJob, error) {
	parts, err := s.splitter.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("failed to split %q: %w", title, err)
	}
	jobs := make([]chunkJob, 0, len(parts))
	for i, p := range parts {
		jobs = append(jobs, chunkJob{title: title, content: p, index: i, meta: meta})
	}
	return jobs, nil
}

func (s *ServiceImpl) indexDocument(ctx context.Context, title, content string, meta map[string]any) (int, error) {
	jobs, err := s.chunks(title, content, meta)
	if err != nil {
		return 0, err
	}
	return s.indexChunks(ctx, jobs)
}

// indexChunks embeds and inserts chunks with bounded concurrency.
func (s *ServiceImpl) indexChunks(ctx context.Context, jobs []chunkJob) (int, error) {
	var inserted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)
	for _, job := range jobs {
		g.Go(func() error {
			vec, err := s.embedWithRetry(gctx, job.content)
			if err != nil {
				return fmt.Errorf("embedding chunk %d of %q: %w", job.index, job.title, err)
			}
			if _, err := s.repo.InsertChunk(gctx, job.title, job.content, job.index, job.meta, vec); err != nil {
				return err
			}
			inserted.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return int(inserted.Load()), err
}

func (s *ServiceImpl) Seed(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("KnowledgeService").Start(ctx, "Seed")
	defer span.End()
	l := s.logger.With(slog.String("method", "Seed"))

	if !s.VectorAvailable() {
		return 0, fmt.Errorf("%w: vector store or embedder not configured", types.ErrServiceUnavailable)
	}

	existing, err := s.repo.Count(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if existing > 0 {
		l.InfoContext(ctx, "Knowledge base already contains documents", slog.Int("count", existing))
		return 0, nil
	}

	seeds, err := LoadSeedCorpus()
	if err != nil {
		return 0, err
	}
	var jobs []chunkJob
	for _, sd := range seeds {
		js, err := s.chunks(sd.Title, sd.Content, sd.metadata())
		if err != nil {
			return 0, err
		}
		jobs = append(jobs, js...)
	}

	l.InfoContext(ctx, "Initializing Hong Kong tourism knowledge base", slog.Int("chunks", len(jobs)))
	n, err := s.indexChunks(ctx, jobs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Seeding failed")
		return n, errors.Join(errors.New("seeding incomplete"), err)
	}
	l.InfoContext(ctx, "Added document chunks to vector store", slog.Int("chunks", n))
	return n, nil
}
