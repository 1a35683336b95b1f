package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	appLogger "github.com/FACorreiaa/go-hk-tourism-ai/app/logger"
	appMiddleware "github.com/FACorreiaa/go-hk-tourism-ai/app/middleware"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/auth"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/docs"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/itinerary"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/knowledge"
	llmChat "github.com/FACorreiaa/go-hk-tourism-ai/internal/api/llm_chat"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/recommendations"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/session"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/translation"
)

// Config contains dependencies needed for the router setup.
type Config struct {
	Logger            *slog.Logger
	Version           string
	AllowedOrigins    []string
	RequestsPerMinute int
	Timeout           time.Duration

	Authenticator  *appMiddleware.Authenticator
	MetricsHandler http.Handler
	Status         func() api.ServiceStatus

	SessionHandler        session.Handler
	ChatHandler           llmChat.Handler
	KnowledgeHandler      knowledge.Handler
	ItineraryHandler      itinerary.Handler
	RecommendationHandler recommendations.Handler
	TranslationHandler    translation.Handler
	AuthHandler           *auth.AuthHandler
}

// SetupRouter builds the full HTTP handler, server-wide middleware included.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5, "application/json", "application/yaml"))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link", "X-Session-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSONResponse(w, r, http.StatusOK, api.MessageResponse{Message: "HK Tourism AI API is running!"})
	})
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/health", healthHandler(cfg.Version, cfg.Status))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	docs.RegisterRoutes(r)

	admin := adminGuard(cfg)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", cfg.AuthHandler.Login)

		r.Post("/session", cfg.SessionHandler.CreateSession)
		r.Get("/session/{sessionID}/stats", cfg.SessionHandler.GetSessionStats)

		// Model-backed routes share a per-IP budget.
		r.Group(func(r chi.Router) {
			if cfg.RequestsPerMinute > 0 {
				r.Use(httprate.LimitByIP(cfg.RequestsPerMinute, time.Minute))
			}
			r.Post("/chat", cfg.ChatHandler.Chat)
			r.Post("/itinerary", cfg.ItineraryHandler.GenerateItinerary)
			r.Post("/itinerary/pdf", cfg.ItineraryHandler.ExportPDF)
			r.Post("/recommendations", cfg.RecommendationHandler.GetRecommendations)
			r.Post("/translate", cfg.TranslationHandler.TranslateText)
			r.Post("/translate-image", cfg.TranslationHandler.TranslateImage)
		})

		r.Group(func(r chi.Router) {
			r.Use(admin...)
			r.Post("/session/cleanup", cfg.SessionHandler.CleanupSessions)
			r.Get("/session/overview", cfg.SessionHandler.GetOverview)
			r.Post("/knowledge/documents", cfg.KnowledgeHandler.AddDocument)
			r.Get("/knowledge/search", cfg.KnowledgeHandler.Search)
		})
	})

	return r
}

// adminGuard returns the middleware chain for operator routes. Without a
// signing secret the routes stay open, as they were before auth existed.
func adminGuard(cfg *Config) []func(http.Handler) http.Handler {
	if cfg.Authenticator == nil || !cfg.Authenticator.Enabled() {
		cfg.Logger.Warn("ADMIN_JWT_SECRET not set, admin routes are unauthenticated")
		return nil
	}
	return []func(http.Handler) http.Handler{
		cfg.Authenticator.Authenticate,
		appMiddleware.RequireRole(appMiddleware.RoleAdmin),
	}
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
