package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	database "github.com/FACorreiaa/go-hk-tourism-ai/app/db"
	appMiddleware "github.com/FACorreiaa/go-hk-tourism-ai/app/middleware"
	"github.com/FACorreiaa/go-hk-tourism-ai/config"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/auth"
	generativeAI "github.com/FACorreiaa/go-hk-tourism-ai/internal/api/generative_ai"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/itinerary"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/knowledge"
	llmChat "github.com/FACorreiaa/go-hk-tourism-ai/internal/api/llm_chat"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/recommendations"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/session"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/translation"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/router"
)

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *slog.Logger
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Provider *generativeAI.Provider

	Sessions       session.Store
	Authenticator  *appMiddleware.Authenticator
	Knowledge      *knowledge.ServiceImpl
	Chat           *llmChat.ServiceImpl
	Itinerary      *itinerary.ServiceImpl
	Recommendation *recommendations.ServiceImpl
	Translation    *translation.ServiceImpl

	SessionHandler        *session.HandlerImpl
	ChatHandler           *llmChat.HandlerImpl
	KnowledgeHandler      *knowledge.HandlerImpl
	ItineraryHandler      *itinerary.HandlerImpl
	RecommendationHandler *recommendations.HandlerImpl
	TranslationHandler    *translation.HandlerImpl
	AuthHandler           *auth.AuthHandler
}

// NewContainer initializes and returns a new dependency container. Missing
// backends (LLM credentials, Postgres, Redis) are logged and the affected
// features degrade; only programming errors are returned.
func NewContainer(ctx context.Context, cfg *config.Config, secrets config.Secrets, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	provider, err := generativeAI.NewProvider(ctx, cfg.LLM, secrets, logger)
	if err != nil {
		logger.WarnContext(ctx, "Starting without an LLM provider", slog.Any("error", err))
		provider = nil
	}
	c.Provider = provider

	c.Sessions = c.newSessionStore(ctx, secrets)

	var text generativeAI.TextGenerator
	var vision generativeAI.ImageTextExtractor
	var embedder generativeAI.Embedder
	if provider.HasText() {
		text = provider.Text
	}
	if provider.HasVision() {
		vision = provider.Vision
	}
	if provider.HasEmbedder() {
		embedder = provider.Embedder
	}

	var repo knowledge.Repository
	if embedder != nil {
		if pool := c.connectPostgres(ctx, secrets); pool != nil {
			c.Pool = pool
			repo = knowledge.NewRepository(pool, logger.With(slog.String("component", "knowledge_repository")))
		}
	}

	c.Knowledge, err = knowledge.NewService(repo, embedder, logger.With(slog.String("component", "knowledge")),
		knowledge.WithChunking(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to build knowledge service: %w", err)
	}

	c.Chat = llmChat.NewService(c.Knowledge, text, logger.With(slog.String("component", "chat")), cfg.RAG.TopK, cfg.RAG.HistoryWindow)
	c.Itinerary = itinerary.NewService(text, logger.With(slog.String("component", "itinerary")))
	c.Recommendation = recommendations.NewService(text,
		recommendations.NewCache(cfg.Recommend.CacheTTL, cfg.Recommend.CacheMaxEntries, cfg.Recommend.CacheEvictCount),
		logger.With(slog.String("component", "recommendations")))
	c.Translation = translation.NewService(text, vision, logger.With(slog.String("component", "translation")))

	c.Authenticator = appMiddleware.NewAuthenticator(secrets.AdminJWTSecret, logger)
	authService := auth.NewAuthService(c.Authenticator, secrets.AdminUsername, secrets.AdminPasswordHash, logger)

	c.SessionHandler = session.NewHandler(c.Sessions, logger)
	c.ChatHandler = llmChat.NewHandler(c.Chat, c.Sessions, logger)
	c.KnowledgeHandler = knowledge.NewHandler(c.Knowledge, logger)
	c.ItineraryHandler = itinerary.NewHandler(c.Itinerary, c.Sessions, logger)
	c.RecommendationHandler = recommendations.NewHandler(c.Recommendation, c.Sessions, logger)
	c.TranslationHandler = translation.NewHandler(c.Translation, c.Sessions, logger)
	c.AuthHandler = auth.NewAuthHandler(authService, logger)

	return c, nil
}

func (c *Container) newSessionStore(ctx context.Context, secrets config.Secrets) session.Store {
	opts := []session.Option{
		session.WithTimeout(c.Config.Session.Timeout),
		session.WithHistoryLimit(c.Config.Session.HistoryLimit),
		session.WithLogger(c.Logger.With(slog.String("component", "sessions"))),
	}
	if c.Config.Session.Store != "redis" {
		return session.NewMemoryStore(opts...)
	}

	rc := c.Config.Repositories.Redis
	password := rc.Password
	if secrets.RedisPassword != "" {
		password = secrets.RedisPassword
	}
	client := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: password, DB: rc.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		c.Logger.WarnContext(ctx, "Redis unreachable, using in-memory sessions",
			slog.String("addr", rc.Addr), slog.Any("error", err))
		_ = client.Close()
		return session.NewMemoryStore(opts...)
	}
	c.Redis = client
	c.Logger.InfoContext(ctx, "Using Redis session store", slog.String("addr", rc.Addr))
	return session.NewRedisStore(client, opts...)
}

func (c *Container) connectPostgres(ctx context.Context, secrets config.Secrets) *pgxpool.Pool {
	if !c.Config.Repositories.Postgres.Enabled {
		c.Logger.InfoContext(ctx, "Postgres disabled, retrieval uses the keyword index")
		return nil
	}
	dbConfig, err := database.NewDatabaseConfig(c.Config, secrets.PostgresPassword, c.Logger)
	if err != nil {
		return nil
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, c.Logger); err != nil {
		c.Logger.WarnContext(ctx, "Vector store unavailable, migrations failed", slog.Any("error", err))
		return nil
	}
	pool, err := database.Init(ctx, dbConfig.ConnectionURL, c.Logger)
	if err != nil {
		return nil
	}
	if !database.WaitForDB(ctx, pool, c.Logger) {
		c.Logger.WarnContext(ctx, "Vector store unavailable, database not ready")
		pool.Close()
		return nil
	}
	return pool
}

// SeedKnowledge indexes the built-in corpus when the vector store is empty.
func (c *Container) SeedKnowledge(ctx context.Context) {
	if !c.Knowledge.VectorAvailable() {
		c.Logger.InfoContext(ctx, "Skipping knowledge seeding, no vector store")
		return
	}
	n, err := c.Knowledge.Seed(ctx)
	switch {
	case err != nil:
		c.Logger.ErrorContext(ctx, "Knowledge seeding incomplete", slog.Int("indexed", n), slog.Any("error", err))
	case n > 0:
		c.Logger.InfoContext(ctx, "Knowledge base seeded", slog.Int("chunks", n))
	}
}

// Status reports live availability for /health.
func (c *Container) Status() api.ServiceStatus {
	return api.ServiceStatus{
		RAG:            c.Chat.Available(),
		User:           c.Sessions != nil,
		Recommendation: c.Recommendation.Available(),
		Itinerary:      c.Itinerary.Available(),
		Translation:    c.Translation.Available(),
		VectorStore:    c.Knowledge.VectorAvailable(),
	}
}

// Router builds the HTTP handler tree over the container's handlers.
func (c *Container) Router(metricsHandler http.Handler) http.Handler {
	return router.SetupRouter(&router.Config{
		Logger:                c.Logger,
		Version:               c.Config.Version,
		AllowedOrigins:        c.Config.CORS.AllowedOrigins,
		RequestsPerMinute:     c.Config.RateLimit.RequestsPerMinute,
		Timeout:               c.Config.Server.Timeout,
		Authenticator:         c.Authenticator,
		MetricsHandler:        metricsHandler,
		Status:                c.Status,
		SessionHandler:        c.SessionHandler,
		ChatHandler:           c.ChatHandler,
		KnowledgeHandler:      c.KnowledgeHandler,
		ItineraryHandler:      c.ItineraryHandler,
		RecommendationHandler: c.RecommendationHandler,
		TranslationHandler:    c.TranslationHandler,
		AuthHandler:           c.AuthHandler,
	})
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
