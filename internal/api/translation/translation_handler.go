package translation

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/session"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

// MaxImageBytes bounds uploads to the image translation endpoint.
const MaxImageBytes = 10 << 20

type Handler interface {
	TranslateText(w http.ResponseWriter, r *http.Request)
	TranslateImage(w http.ResponseWriter, r *http.Request)
}

var _ Handler = (*HandlerImpl)(nil)

type HandlerImpl struct {
	service  Service
	sessions session.Store
	logger   *slog.Logger
}

func NewHandler(service Service, sessions session.Store, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{service: service, sessions: sessions, logger: logger}
}

// TranslateText godoc
// @Summary      Translate text with Hong Kong cultural context
// @Tags         Translation
// @Accept       json
// @Produce      json
// @Param        request body types.TranslationRequest true "Text to translate"
// @Success      200 {object} types.TranslationResponse
// @Failure      400 "Empty text"
// @Router       /api/translate [post]
func (h *HandlerImpl) TranslateText(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TranslationHandler").Start(r.Context(), "TranslateText", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/translate"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "TranslateText"))

	var req types.TranslationRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "text is required")
		return
	}

	sessionID, err := h.sessions.GetOrCreate(ctx, req.SessionID, nil)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve session", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to resolve session")
		return
	}
	span.SetAttributes(attribute.String("session.id", sessionID))

	result := h.service.Translate(ctx, req.Text, req.SourceLanguage, req.TargetLanguage, req.ContextType)

	api.WriteJSONResponse(w, r, http.StatusOK, types.TranslationResponse{
		Translation: result,
		SessionID:   sessionID,
	})
}

// TranslateImage godoc
// @Summary      Extract and translate text from a photo
// @Tags         Translation
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Image of a menu or sign"
// @Param        target_language formData string false "Target language, defaults to en"
// @Success      200 {object} types.Translation
// @Failure      400 "Missing or invalid image"
// @Failure      413 "Image too large"
// @Router       /api/translate-image [post]
func (h *HandlerImpl) TranslateImage(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TranslationHandler").Start(r.Context(), "TranslateImage", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/translate-image"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "TranslateImage"))

	r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes+1<<20)
	if err := r.ParseMultipartForm(MaxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.ErrorResponse(w, r, http.StatusRequestEntityTooLarge, "image exceeds 10MB")
			return
		}
		l.WarnContext(ctx, "Failed to parse multipart form", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > MaxImageBytes {
		api.ErrorResponse(w, r, http.StatusRequestEntityTooLarge, "image exceeds 10MB")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil {
		l.ErrorContext(ctx, "Failed to read upload", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "failed to read file")
		return
	}
	if len(data) == 0 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "file is empty")
		return
	}
	if len(data) > MaxImageBytes {
		api.ErrorResponse(w, r, http.StatusRequestEntityTooLarge, "image exceeds 10MB")
		return
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		api.ErrorResponse(w, r, http.StatusBadRequest, "file must be an image")
		return
	}
	span.SetAttributes(attribute.String("image.mime_type", mimeType), attribute.Int("image.bytes", len(data)))

	target := r.FormValue("target_language")
	if target == "" {
		target = DefaultTargetLanguage
	}

	api.WriteJSONResponse(w, r, http.StatusOK, h.service.TranslateImage(ctx, data, mimeType, target))
}
