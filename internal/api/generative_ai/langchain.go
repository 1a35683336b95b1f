package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/FACorreiaa/go-hk-tourism-ai/config"
)

const (
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultOpenAIEmbedding = "text-embedding-3-small"
	defaultAnthropicModel  = "claude-3-5-haiku-latest"
)

// LangChainClient adapts any langchaingo llms.Model to TextGenerator and
// ImageTextExtractor.
type LangChainClient struct {
	name   string
	text   llms.Model
	vision llms.Model
}

// NewLangChainClient wraps text and vision models. vision may be nil, in
// which case text is used for both.
func NewLangChainClient(name string, text, vision llms.Model) *LangChainClient {
	if vision == nil {
		vision = text
	}
	return &LangChainClient{name: name, text: text, vision: vision}
}

func (c *LangChainClient) GenerateText(ctx context.Context, prompt string, temperature float64) (string, error) {
	var out string
	err := observe(ctx, c.name, "GenerateText", func(ctx context.Context) error {
		text, err := llms.GenerateFromSinglePrompt(ctx, c.text, prompt, llms.WithTemperature(temperature))
		if err != nil {
			return fmt.Errorf("%s generate content: %w", c.name, err)
		}
		out = text
		return nil
	})
	return out, err
}

func (c *LangChainClient) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	var out string
	err := observe(ctx, c.name, "ExtractText", func(ctx context.Context) error {
		msg := llms.MessageContent{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(mimeType, image),
				llms.TextPart(extractionPrompt),
			},
		}
		resp, err := c.vision.GenerateContent(ctx, []llms.MessageContent{msg}, llms.WithTemperature(0))
		if err != nil {
			return fmt.Errorf("%s vision: %w", c.name, err)
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty response from model")
		}
		out = strings.TrimSpace(resp.Choices[0].Content)
		return nil
	})
	return out, err
}

// LangChainEmbedder adapts a langchaingo embeddings.Embedder.
type LangChainEmbedder struct {
	name     string
	embedder embeddings.Embedder
}

func NewLangChainEmbedder(name string, e embeddings.Embedder) *LangChainEmbedder {
	return &LangChainEmbedder{name: name, embedder: e}
}

func (e *LangChainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := observe(ctx, e.name, "Embed", func(ctx context.Context) error {
		v, err := e.embedder.EmbedQuery(ctx, text)
		if err != nil {
			return fmt.Errorf("%s embed query: %w", e.name, err)
		}
		out = v
		return nil
	})
	return out, err
}

func (e *LangChainEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := observe(ctx, e.name, "EmbedDocument", func(ctx context.Context) error {
		vs, err := e.embedder.EmbedDocuments(ctx, []string{text})
		if err != nil {
			return fmt.Errorf("%s embed documents: %w", e.name, err)
		}
		if len(vs) == 0 {
			return fmt.Errorf("%s returned no embedding", e.name)
		}
		out = vs[0]
		return nil
	})
	return out, err
}

func newOpenAIProvider(cfg config.LLMConfig, apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrMissingAPIKey)
	}
	opts := func(model string) []openai.Option {
		o := []openai.Option{
			openai.WithToken(apiKey),
			openai.WithModel(model),
			openai.WithEmbeddingModel(orDefault(cfg.EmbeddingModel, defaultOpenAIEmbedding)),
		}
		if cfg.EmbeddingDimensions > 0 {
			o = append(o, openai.WithEmbeddingDimensions(cfg.EmbeddingDimensions))
		}
		if cfg.BaseURL != "" {
			o = append(o, openai.WithBaseURL(cfg.BaseURL))
		}
		return o
	}

	model := orDefault(cfg.Model, defaultOpenAIModel)
	textLLM, err := openai.New(opts(model)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	var visionLLM llms.Model
	if cfg.VisionModel != "" && cfg.VisionModel != model {
		if visionLLM, err = openai.New(opts(cfg.VisionModel)...); err != nil {
			return nil, fmt.Errorf("failed to create OpenAI vision client: %w", err)
		}
	}
	embedder, err := embeddings.NewEmbedder(textLLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI embedder: %w", err)
	}

	client := NewLangChainClient(ProviderOpenAI, textLLM, visionLLM)
	return &Provider{
		Name:     ProviderOpenAI,
		Text:     client,
		Vision:   client,
		Embedder: NewLangChainEmbedder(ProviderOpenAI, embedder),
	}, nil
}

func newAnthropicProvider(cfg config.LLMConfig, apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrMissingAPIKey)
	}
	opts := func(model string) []anthropic.Option {
		o := []anthropic.Option{anthropic.WithToken(apiKey), anthropic.WithModel(model)}
		if cfg.BaseURL != "" {
			o = append(o, anthropic.WithBaseURL(cfg.BaseURL))
		}
		return o
	}

	model := orDefault(cfg.Model, defaultAnthropicModel)
	textLLM, err := anthropic.New(opts(model)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic client: %w", err)
	}
	var visionLLM llms.Model
	if cfg.VisionModel != "" && cfg.VisionModel != model {
		if visionLLM, err = anthropic.New(opts(cfg.VisionModel)...); err != nil {
			return nil, fmt.Errorf("failed to create Anthropic vision client: %w", err)
		}
	}

	// Anthropic has no embeddings endpoint; retrieval falls back to keywords.
	client := NewLangChainClient(ProviderAnthropic, textLLM, visionLLM)
	return &Provider{
		Name:   ProviderAnthropic,
		Text:   client,
		Vision: client,
	}, nil
}
