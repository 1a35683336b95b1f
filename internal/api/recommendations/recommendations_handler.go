package recommendations

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/session"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

const maxLimit = 20

type Handler interface {
	GetRecommendations(w http.ResponseWriter, r *http.Request)
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

// GetRecommendations godoc
// @Summary      Personalised recommendations
// @Tags         Recommendations
// @Accept       json
// @Produce      json
// @Param        request body types.RecommendationRequest true "Preferences"
// @Success      200 {object} types.RecommendationResponse
// @Router       /api/recommendations [post]
func (h *HandlerImpl) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "GetRecommendations", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/recommendations"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetRecommendations"))

	var req types.RecommendationRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Limit > maxLimit {
		api.ErrorResponse(w, r, http.StatusBadRequest, "limit must not exceed 20")
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

	merged := h.sessions.Preferences(ctx, sessionID)
	for k, v := range req.UserPreferences {
		merged[k] = v
	}

	recs := h.service.Recommend(ctx, merged, req.CurrentLocation, req.TimeContext, req.Limit, sessionID)

	api.WriteJSONResponse(w, r, http.StatusOK, types.RecommendationResponse{
		Recommendations: recs,
		SessionID:       sessionID,
	})
}
