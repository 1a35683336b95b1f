package llmChat

import (
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

// sessionHistoryLimit is how many stored messages back a chat when the
// request carries no history.
const sessionHistoryLimit = 10

type Handler interface {
	Chat(w http.ResponseWriter, r *http.Request)
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

// Chat godoc
// @Summary      Ask the tourism assistant
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request body types.ChatRequest true "Question"
// @Success      200 {object} types.ChatResponse
// @Router       /api/chat [post]
func (h *HandlerImpl) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("LlmChatHandler").Start(r.Context(), "Chat", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/chat"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "Chat"))

	var req types.ChatRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "message is required")
		return
	}

	sessionID, err := h.sessions.GetOrCreate(ctx, req.SessionID, req.UserContext)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve session", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to resolve session")
		return
	}
	span.SetAttributes(attribute.String("session.id", sessionID))

	h.sessions.AddMessage(ctx, sessionID, types.RoleUser, req.Message)

	history := req.ConversationHistory
	if len(history) == 0 {
		history = h.sessions.History(ctx, sessionID, sessionHistoryLimit)
	}

	uc := req.UserContext
	if uc == nil {
		if stored, ok := h.sessions.UserContext(ctx, sessionID); ok {
			uc = stored
		}
	}

	answer := h.service.Chat(ctx, req.Message, history, uc)

	h.sessions.AddMessage(ctx, sessionID, types.RoleAssistant, answer.Answer)

	api.WriteJSONResponse(w, r, http.StatusOK, types.ChatResponse{
		Message:        answer.Answer,
		Sources:        answer.Sources,
		ConversationID: req.ConversationID,
		SessionID:      sessionID,
	})
}
