package itinerary

import (
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/session"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

type Handler interface {
	GenerateItinerary(w http.ResponseWriter, r *http.Request)
	ExportPDF(w http.ResponseWriter, r *http.Request)
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

// plan resolves the session, saves the planning preferences and generates
// the itinerary. On failure it has already written the error response.
func (h *HandlerImpl) plan(w http.ResponseWriter, r *http.Request, route string) ([]types.DayPlan, string, bool) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", route))

	var req types.ItineraryRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return nil, "", false
	}
	if err := normalize(&req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return nil, "", false
	}

	sessionID, err := h.sessions.GetOrCreate(ctx, req.SessionID, nil)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve session", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to resolve session")
		return nil, "", false
	}

	interests := req.Interests
	if interests == nil {
		interests = []string{}
	}
	h.sessions.SavePreferences(ctx, sessionID, map[string]any{
		"interests":    interests,
		"budget":       req.Budget,
		"travel_style": req.TravelStyle,
		"group_size":   req.GroupSize,
	})

	days, err := h.service.Generate(ctx, req)
	if err != nil {
		l.ErrorContext(ctx, "Itinerary generation error", slog.Any("error", err))
		api.ErrorResponse(w, r, api.StatusFromError(err), err.Error())
		return nil, sessionID, false
	}
	return days, sessionID, true
}

// GenerateItinerary godoc
// @Summary      Plan a Hong Kong itinerary
// @Tags         Itinerary
// @Accept       json
// @Produce      json
// @Param        request body types.ItineraryRequest true "Trip details"
// @Success      200 {object} types.ItineraryResponse
// @Failure      503 "No text model configured"
// @Router       /api/itinerary [post]
func (h *HandlerImpl) GenerateItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "GenerateItinerary", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/itinerary"),
	))
	defer span.End()

	days, sessionID, ok := h.plan(w, r.WithContext(ctx), "GenerateItinerary")
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("session.id", sessionID), attribute.Int("itinerary.days", len(days)))

	api.WriteJSONResponse(w, r, http.StatusOK, types.ItineraryResponse{
		Itinerary:          days,
		TotalEstimatedCost: TotalCost(days),
		Tips:               PracticalTips,
		SessionID:          sessionID,
	})
}

// ExportPDF godoc
// @Summary      Plan an itinerary and download it as PDF
// @Tags         Itinerary
// @Accept       json
// @Produce      application/pdf
// @Param        request body types.ItineraryRequest true "Trip details"
// @Success      200 {file} binary
// @Router       /api/itinerary/pdf [post]
func (h *HandlerImpl) ExportPDF(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "ExportPDF", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/itinerary/pdf"),
	))
	defer span.End()

	days, sessionID, ok := h.plan(w, r.WithContext(ctx), "ExportPDF")
	if !ok {
		return
	}

	doc, err := RenderPDF(days, PracticalTips)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to render pdf", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to render itinerary")
		return
	}

	w.Header().Set("Content-Type", pdfContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="hong-kong-itinerary.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.Header().Set("X-Session-ID", sessionID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		h.logger.WarnContext(ctx, "Failed to write pdf", slog.Any("error", err))
	}
}
