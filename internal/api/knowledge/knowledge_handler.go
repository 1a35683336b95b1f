package knowledge

import (
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

const maxSearchResults = 20

type Handler interface {
	AddDocument(w http.ResponseWriter, r *http.Request)
	Search(w http.ResponseWriter, r *http.Request)
}

var _ Handler = (*HandlerImpl)(nil)

type HandlerImpl struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{service: service, logger: logger}
}

type SearchResponse struct {
	Query     string           `json:"query"`
	Mode      RetrievalMode    `json:"mode"`
	Documents []types.Document `json:"documents"`
}

// AddDocument godoc
// @Summary      Add a document to the knowledge base
// @Tags         Knowledge
// @Accept       json
// @Produce      json
// @Param        request body types.AddDocumentRequest true "Document"
// @Success      201 {object} types.AddDocumentResponse
// @Security     BearerAuth
// @Router       /api/knowledge/documents [post]
func (h *HandlerImpl) AddDocument(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("KnowledgeHandler").Start(r.Context(), "AddDocument", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/knowledge/documents"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "AddDocument"))

	var req types.AddDocumentRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.service.AddDocument(ctx, req.Title, req.Content, req.Metadata)
	if err != nil {
		span.RecordError(err)
		api.ErrorResponse(w, r, api.StatusFromError(err), err.Error())
		return
	}

	msg := "Document added to knowledge base"
	if !h.service.VectorAvailable() {
		msg = "Document added to keyword index; vector store unavailable"
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, types.AddDocumentResponse{
		Title:   req.Title,
		Chunks:  n,
		Message: msg,
	})
}

// Search godoc
// @Summary      Query the knowledge base directly
// @Tags         Knowledge
// @Produce      json
// @Param        q query string true "Query"
// @Param        k query int false "Result count"
// @Success      200 {object} SearchResponse
// @Security     BearerAuth
// @Router       /api/knowledge/search [get]
func (h *HandlerImpl) Search(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("KnowledgeHandler").Start(r.Context(), "Search", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/knowledge/search"),
	))
	defer span.End()

	q := r.URL.Query().Get("q")
	if q == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "query parameter q is required")
		return
	}

	k := 5
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxSearchResults {
			api.ErrorResponse(w, r, http.StatusBadRequest, "k must be between 1 and 20")
			return
		}
		k = parsed
	}

	docs, mode := h.service.Search(ctx, q, k)
	span.SetAttributes(attribute.String("retrieval.mode", string(mode)), attribute.Int("results.count", len(docs)))

	api.WriteJSONResponse(w, r, http.StatusOK, SearchResponse{Query: q, Mode: mode, Documents: docs})
}
