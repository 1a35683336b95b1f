package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-hk-tourism-ai/app/observability/metrics"
	"github.com/FACorreiaa/go-hk-tourism-ai/config"
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var (
	ErrMissingAPIKey   = errors.New("llm provider api key not configured")
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// TextGenerator produces a completion for a single prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, temperature float64) (string, error)
}

// ImageTextExtractor reads visible text out of an image.
type ImageTextExtractor interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Embedder maps text to a dense vector. Embed is for search queries,
// EmbedDocument for corpus chunks; some models encode the two differently.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// Provider bundles the capabilities of the configured backend. Any field may
// be nil when the backend does not offer it.
type Provider struct {
	Name     string
	Text     TextGenerator
	Vision   ImageTextExtractor
	Embedder Embedder
}

// NewProvider builds the provider named by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.LLMConfig, secrets config.Secrets, logger *slog.Logger) (*Provider, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "NewProvider", trace.WithAttributes(
		attribute.String("llm.provider", cfg.Provider),
		attribute.String("llm.model", cfg.Model),
	))
	defer span.End()

	var (
		p   *Provider
		err error
	)
	switch cfg.Provider {
	case ProviderGemini:
		p, err = newGeminiProvider(ctx, cfg, secrets.GeminiAPIKey)
	case ProviderOpenAI:
		p, err = newOpenAIProvider(cfg, secrets.OpenAIAPIKey)
	case ProviderAnthropic:
		p, err = newAnthropicProvider(cfg, secrets.AnthropicAPIKey)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to build provider")
		logger.ErrorContext(ctx, "LLM provider unavailable",
			slog.String("provider", cfg.Provider),
			slog.Any("error", err))
		return nil, err
	}

	logger.InfoContext(ctx, "LLM provider ready",
		slog.String("provider", p.Name),
		slog.Bool("vision", p.Vision != nil),
		slog.Bool("embeddings", p.Embedder != nil))
	span.SetStatus(codes.Ok, "Provider created")
	return p, nil
}

// HasText reports whether p can generate text. It is safe on a nil receiver.
func (p *Provider) HasText() bool {
	return p != nil && p.Text != nil
}

func (p *Provider) HasVision() bool {
	return p != nil && p.Vision != nil
}

func (p *Provider) HasEmbedder() bool {
	return p != nil && p.Embedder != nil
}

// observe wraps a provider call with a span and the llm_* metrics.
func observe(ctx context.Context, provider, operation string, fn func(ctx context.Context) error) error {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, operation, trace.WithAttributes(
		attribute.String("llm.provider", provider),
	))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start).Seconds()

	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, operation+" failed")
	} else {
		span.SetStatus(codes.Ok, "")
	}

	m := metrics.Get()
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	m.LLMRequestsTotal.Add(ctx, 1, attrs)
	m.LLMDurationSeconds.Record(ctx, elapsed, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	))
	return err
}
