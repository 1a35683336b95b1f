package session

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

type Handler interface {
	CreateSession(w http.ResponseWriter, r *http.Request)
	GetSessionStats(w http.ResponseWriter, r *http.Request)
	CleanupSessions(w http.ResponseWriter, r *http.Request)
	GetOverview(w http.ResponseWriter, r *http.Request)
}

var _ Handler = (*HandlerImpl)(nil)

type HandlerImpl struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{store: store, logger: logger}
}

// CreateSession godoc
// @Summary      Create a session
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        request body types.SessionRequest false "Optional traveller context"
// @Success      201 {object} types.SessionResponse
// @Router       /api/session [post]
func (h *HandlerImpl) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SessionHandler").Start(r.Context(), "CreateSession", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/session"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateSession"))

	var req types.SessionRequest
	if err := api.DecodeOptionalJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.store.Create(ctx, req.UserContext)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create session", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create session")
		return
	}
	span.SetAttributes(attribute.String("session.id", id))

	api.WriteJSONResponse(w, r, http.StatusCreated, types.SessionResponse{
		SessionID: id,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Message:   "Session created successfully",
	})
}

// GetSessionStats godoc
// @Summary      Session statistics
// @Tags         Session
// @Produce      json
// @Param        sessionID path string true "Session ID"
// @Success      200 {object} types.SessionStats
// @Router       /api/session/{sessionID}/stats [get]
func (h *HandlerImpl) GetSessionStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SessionHandler").Start(r.Context(), "GetSessionStats", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/session/{sessionID}/stats"),
	))
	defer span.End()

	id := chi.URLParam(r, "sessionID")
	span.SetAttributes(attribute.String("session.id", id))

	stats, ok := h.store.Stats(ctx, id)
	if !ok {
		api.ErrorResponse(w, r, http.StatusNotFound, "Session not found or expired")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, stats)
}

// CleanupSessions removes every expired session. Admin only.
func (h *HandlerImpl) CleanupSessions(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SessionHandler").Start(r.Context(), "CleanupSessions", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/session/cleanup"),
	))
	defer span.End()

	n := h.store.CleanupExpired(ctx)
	span.SetAttributes(attribute.Int("sessions.removed", n))
	h.logger.InfoContext(ctx, "Manual session cleanup", slog.Int("removed", n))

	api.WriteJSONResponse(w, r, http.StatusOK, api.MessageResponse{
		Message: fmt.Sprintf("Cleaned up %d expired sessions", n),
	})
}

// GetOverview reports totals across all stored sessions. Admin only.
func (h *HandlerImpl) GetOverview(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SessionHandler").Start(r.Context(), "GetOverview", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/session/overview"),
	))
	defer span.End()

	api.WriteJSONResponse(w, r, http.StatusOK, h.store.Overview(ctx))
}
