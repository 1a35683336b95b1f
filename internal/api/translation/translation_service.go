package translation

import (
	"context"
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
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/textfmt"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

const (
	translationTemperature = 0.1
	successConfidence      = 0.9

	DefaultSourceLanguage = "auto"
	DefaultTargetLanguage = "en"

	ContextImage = "image"

	msgUnavailable       = "Translation service not available"
	msgNoTextDetected    = "No text detected in image"
	msgVisionUnavailable = "Text extraction service not available"
)

var contextNotes = map[string]string{
	"menu":         "This text is from a restaurant menu in Hong Kong.",
	"sign":         "This text is from a street sign or public notice in Hong Kong.",
	"conversation": "This text is from a conversation in Hong Kong.",
	ContextImage:   "This text was extracted from an image taken in Hong Kong.",
}

type Service interface {
	Translate(ctx context.Context, text, source, target, contextType string) types.Translation
	TranslateImage(ctx context.Context, image []byte, mimeType, target string) types.Translation
	Available() bool
	ImageAvailable() bool
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger *slog.Logger
	llm    generativeAI.TextGenerator
	vision generativeAI.ImageTextExtractor
}

// NewService accepts nil models; calls then degrade to the original text.
func NewService(llm generativeAI.TextGenerator, vision generativeAI.ImageTextExtractor, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, llm: llm, vision: vision}
}

func (s *ServiceImpl) Available() bool      { return s.llm != nil }
func (s *ServiceImpl) ImageAvailable() bool { return s.vision != nil && s.llm != nil }

func buildPrompt(text, source, target, contextType string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Please translate the following text from %s to %s.\n", source, target)
	b.WriteString("Provide a natural, culturally appropriate translation.\n")
	if note, ok := contextNotes[contextType]; ok {
		b.WriteString(note)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nText to translate: %q\n\n", text)
	b.WriteString(`Also provide cultural context or explanation if relevant, especially for:
- Local expressions or slang
- Cultural references
- Hong Kong specific terms
- Food names or cultural items

Format your response as:
TRANSLATION: [translated text]
CONTEXT: [cultural context or explanation, if any]`)
	return b.String()
}

// parseReply reads the TRANSLATION and CONTEXT lines. A reply without a
// translation line is taken as the translation itself.
func parseReply(reply string) (translation, culturalContext string) {
	for _, line := range strings.Split(strings.TrimSpace(reply), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "TRANSLATION:"):
			translation = strings.TrimSpace(strings.TrimPrefix(line, "TRANSLATION:"))
		case strings.HasPrefix(line, "CONTEXT:"):
			culturalContext = strings.TrimSpace(strings.TrimPrefix(line, "CONTEXT:"))
		}
	}
	if translation == "" {
		translation = reply
	}
	return textfmt.CleanMarkdown(translation), textfmt.CleanMarkdown(culturalContext)
}

func (s *ServiceImpl) Translate(ctx context.Context, text, source, target, contextType string) types.Translation {
	ctx, span := otel.Tracer("TranslationService").Start(ctx, "Translate", trace.WithAttributes(
		attribute.String("translation.source", source),
		attribute.String("translation.target", target),
		attribute.String("translation.context_type", contextType),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Translate"))

	if source == "" {
		source = DefaultSourceLanguage
	}
	if target == "" {
		target = DefaultTargetLanguage
	}

	if s.llm == nil {
		s.recordFallback(ctx, "unavailable")
		return types.Translation{TranslatedText: text, CulturalContext: msgUnavailable}
	}

	reply, err := s.llm.GenerateText(ctx, buildPrompt(text, source, target, contextType), translationTemperature)
	if err != nil {
		l.ErrorContext(ctx, "Translation error", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Translation failed")
		s.recordFallback(ctx, "error")
		return types.Translation{
			TranslatedText:  text,
			CulturalContext: "Translation failed: " + err.Error(),
		}
	}

	translated, culturalContext := parseReply(reply)
	return types.Translation{
		TranslatedText:  translated,
		CulturalContext: culturalContext,
		Confidence:      successConfidence,
	}
}

func (s *ServiceImpl) TranslateImage(ctx context.Context, image []byte, mimeType, target string) types.Translation {
	ctx, span := otel.Tracer("TranslationService").Start(ctx, "TranslateImage", trace.WithAttributes(
		attribute.String("image.mime_type", mimeType),
		attribute.Int("image.bytes", len(image)),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "TranslateImage"))

	if s.vision == nil {
		s.recordFallback(ctx, "vision_unavailable")
		return types.Translation{TranslatedText: msgNoTextDetected, CulturalContext: msgVisionUnavailable}
	}

	extracted, err := s.vision.ExtractText(ctx, image, mimeType)
	if err != nil {
		l.ErrorContext(ctx, "Text extraction error", slog.Any("error", err))
		span.RecordError(err)
		s.recordFallback(ctx, "extraction_error")
		return types.Translation{
			TranslatedText:  msgNoTextDetected,
			CulturalContext: "Text extraction failed: " + err.Error(),
		}
	}
	extracted = strings.TrimSpace(extracted)
	if extracted == "" {
		return types.Translation{TranslatedText: msgNoTextDetected}
	}

	result := s.Translate(ctx, extracted, DefaultSourceLanguage, target, ContextImage)
	result.OriginalText = extracted
	return result
}

func (s *ServiceImpl) recordFallback(ctx context.Context, reason string) {
	metrics.Get().FallbacksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", "translation"),
		attribute.String("reason", reason),
	))
}
