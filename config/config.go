package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode         string `mapstructure:"mode"`
	Version      string `mapstructure:"version"`
	Repositories struct {
		Postgres struct {
			Enabled           bool   `mapstructure:"enabled"`
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
		Redis struct {
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
	RateLimit struct {
		RequestsPerMinute int `mapstructure:"requestsPerMinute"`
	} `mapstructure:"rateLimit"`
	Session   SessionConfig   `mapstructure:"session"`
	LLM       LLMConfig       `mapstructure:"llm"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Recommend RecommendConfig `mapstructure:"recommendations"`
}

type SessionConfig struct {
	Store           string        `mapstructure:"store"` // memory | redis
	Timeout         time.Duration `mapstructure:"timeout"`
	HistoryLimit    int           `mapstructure:"historyLimit"`
	CleanupInterval time.Duration `mapstructure:"cleanupInterval"`
}

type LLMConfig struct {
	Provider            string `mapstructure:"provider"` // gemini | openai | anthropic
	Model               string `mapstructure:"model"`
	VisionModel         string `mapstructure:"visionModel"`
	EmbeddingModel      string `mapstructure:"embeddingModel"`
	EmbeddingDimensions int    `mapstructure:"embeddingDimensions"`
	BaseURL             string `mapstructure:"baseURL"`
}

type RAGConfig struct {
	TopK          int  `mapstructure:"topK"`
	HistoryWindow int  `mapstructure:"historyWindow"`
	ChunkSize     int  `mapstructure:"chunkSize"`
	ChunkOverlap  int  `mapstructure:"chunkOverlap"`
	SeedOnStartup bool `mapstructure:"seedOnStartup"`
}

type RecommendConfig struct {
	CacheTTL        time.Duration `mapstructure:"cacheTTL"`
	CacheMaxEntries int           `mapstructure:"cacheMaxEntries"`
	CacheEvictCount int           `mapstructure:"cacheEvictCount"`
}

// Secrets are never read from config files.
type Secrets struct {
	GeminiAPIKey      string `env:"GOOGLE_GEMINI_API_KEY"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey   string `env:"ANTHROPIC_API_KEY"`
	AdminUsername     string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminJWTSecret    string `env:"ADMIN_JWT_SECRET"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	PostgresPassword  string `env:"POSTGRES_PASSWORD"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.AddConfigPath("/usr/local/bin")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.applyDefaults()
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// LoadSecrets reads credentials from the process environment.
func LoadSecrets() (Secrets, error) {
	var s Secrets
	if err := env.Parse(&s); err != nil {
		return Secrets{}, fmt.Errorf("failed to parse secrets from environment: %w", err)
	}
	return s, nil
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "1.0.0"
	}
	if c.Server.HTTPPort == "" {
		c.Server.HTTPPort = "8000"
	}
	if c.Server.Timeout <= 0 {
		c.Server.Timeout = 60 * time.Second
	}
	if c.Session.Store == "" {
		c.Session.Store = "memory"
	}
	if c.Session.Timeout <= 0 {
		c.Session.Timeout = 24 * time.Hour
	}
	if c.Session.HistoryLimit <= 0 {
		c.Session.HistoryLimit = 50
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}
	if c.LLM.EmbeddingDimensions <= 0 {
		c.LLM.EmbeddingDimensions = 768
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = 4
	}
	if c.RAG.HistoryWindow <= 0 {
		c.RAG.HistoryWindow = 5
	}
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		c.RAG.ChunkOverlap = 200
	}
	if c.Recommend.CacheTTL <= 0 {
		c.Recommend.CacheTTL = 30 * time.Minute
	}
	if c.Recommend.CacheMaxEntries <= 0 {
		c.Recommend.CacheMaxEntries = 100
	}
	if c.Recommend.CacheEvictCount <= 0 {
		c.Recommend.CacheEvictCount = 50
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = 60
	}
}
