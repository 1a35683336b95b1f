package generativeAI

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/FACorreiaa/go-hk-tourism-ai/config"
)

const (
	defaultGeminiModel     = "gemini-2.0-flash"
	defaultGeminiEmbedding = "text-embedding-004"
)

// extractionPrompt is sent alongside an image to every vision backend.
const extractionPrompt = `Extract all visible text from this image. The image was taken in Hong Kong and may contain Traditional Chinese, English or both (street signs, restaurant menus, shop signs, public notices).
Return only the extracted text, preserving line breaks. If the image contains no text, return an empty response.`

// GeminiClient talks to the Gemini API through google.golang.org/genai.
type GeminiClient struct {
	client         *genai.Client
	model          string
	visionModel    string
	embeddingModel string
	dimensions     int32
}

func newGeminiProvider(ctx context.Context, cfg config.LLMConfig, apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GOOGLE_GEMINI_API_KEY is not set", ErrMissingAPIKey)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g := &GeminiClient{
		client:         client,
		model:          orDefault(cfg.Model, defaultGeminiModel),
		embeddingModel: orDefault(cfg.EmbeddingModel, defaultGeminiEmbedding),
		dimensions:     int32(cfg.EmbeddingDimensions),
	}
	g.visionModel = orDefault(cfg.VisionModel, g.model)

	return &Provider{
		Name:     ProviderGemini,
		Text:     g,
		Vision:   g,
		Embedder: g,
	}, nil
}

func (g *GeminiClient) GenerateText(ctx context.Context, prompt string, temperature float64) (string, error) {
	var text string
	err := observe(ctx, ProviderGemini, "GenerateText", func(ctx context.Context) error {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(temperature)),
		})
		if err != nil {
			return fmt.Errorf("gemini generate content: %w", err)
		}
		text = resp.Text()
		return nil
	})
	return text, err
}

func (g *GeminiClient) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	var text string
	err := observe(ctx, ProviderGemini, "ExtractText", func(ctx context.Context) error {
		contents := []*genai.Content{
			genai.NewContentFromParts([]*genai.Part{
				genai.NewPartFromBytes(image, mimeType),
				genai.NewPartFromText(extractionPrompt),
			}, genai.RoleUser),
		}
		resp, err := g.client.Models.GenerateContent(ctx, g.visionModel, contents, &genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0),
		})
		if err != nil {
			return fmt.Errorf("gemini vision: %w", err)
		}
		text = strings.TrimSpace(resp.Text())
		return nil
	})
	return text, err
}

const (
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, "Embed", text, taskRetrievalQuery)
}

func (g *GeminiClient) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, "EmbedDocument", text, taskRetrievalDocument)
}

func (g *GeminiClient) embedConfig(taskType string) *genai.EmbedContentConfig {
	cfg := &genai.EmbedContentConfig{TaskType: taskType}
	if g.dimensions > 0 {
		cfg.OutputDimensionality = genai.Ptr(g.dimensions)
	}
	return cfg
}

func (g *GeminiClient) embed(ctx context.Context, operation, text, taskType string) ([]float32, error) {
	var values []float32
	err := observe(ctx, ProviderGemini, operation, func(ctx context.Context) error {
		resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), g.embedConfig(taskType))
		if err != nil {
			return fmt.Errorf("gemini embed content: %w", err)
		}
		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
			return fmt.Errorf("gemini returned no embedding")
		}
		values = resp.Embeddings[0].Values
		return nil
	})
	return values, err
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
