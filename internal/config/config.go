// Package config loads application settings the way the rest of the
// ecosystem does it: godotenv primes the process environment, viper binds
// mapstructure-tagged structs to env vars and an optional config file, and
// a package-level singleton is exposed through Get() for call sites that
// don't want to thread a *Config through every constructor.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates every ambient and domain setting the pipeline needs.
type Config struct {
	App      App      `mapstructure:"app"`
	AI       AI       `mapstructure:"ai"`
	Database Database `mapstructure:"database"`
	Server   Server   `mapstructure:"server"`
	Search   Search   `mapstructure:"search"`
	Vector   Vector   `mapstructure:"vector"`
	Cache    Cache    `mapstructure:"cache"`
	Monitor  Monitor  `mapstructure:"monitor"`
	Ingest   Ingest   `mapstructure:"ingest"`
	Tasks    Tasks    `mapstructure:"tasks"`
	Logging  Logging  `mapstructure:"logging"`
}

// App holds general process configuration.
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// AI holds LLM/embedding provider configuration. The spec treats the
// choice of LLM provider as a non-goal; both sections are bound so an
// operator can pick either without a code change.
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Temperature    float32 `mapstructure:"temperature"`
	MaxTokens      int32   `mapstructure:"max_tokens"`
}

type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// Database holds the Postgres connection (C1).
type Database struct {
	Type             string `mapstructure:"type"` // "postgres" only; kept for parity with spec §6.4 DB_TYPE
	ConnectionString string `mapstructure:"connection_string"`
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	User             string `mapstructure:"user"`
	Password         string `mapstructure:"password"`
	Name             string `mapstructure:"name"`
	PoolSize         int    `mapstructure:"pool_size"`
	MaxOverflow      int    `mapstructure:"max_overflow"`
}

// Server holds HTTP server configuration for internal/server (§6.1).
type Server struct {
	Host            string          `mapstructure:"host"`
	Port            int             `mapstructure:"port"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig      `mapstructure:"cors"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

// Search holds provider collector configuration (C9).
type Search struct {
	DefaultProvider string               `mapstructure:"default_provider"`
	NewsAPI         NewsAPIConfig        `mapstructure:"newsapi"`
	SerpAPI         SerpAPIConfig        `mapstructure:"serpapi"`
	Bluesky         BlueskyConfig        `mapstructure:"bluesky"`
	Breaker         CircuitBreakerConfig `mapstructure:"breaker"`
}

type NewsAPIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type SerpAPIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type BlueskyConfig struct {
	Handle   string `mapstructure:"handle"`
	AppKey   string `mapstructure:"app_key"`
	Endpoint string `mapstructure:"endpoint"`
}

type CircuitBreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

// Vector holds vector-store configuration (C2).
type Vector struct {
	Dir            string `mapstructure:"dir"` // equivalent of CHROMA_DB_DIR
	EmbeddingModel string `mapstructure:"embedding_model"`
	Dimensions     int    `mapstructure:"dimensions"`
}

// Cache holds analysis-cache configuration (C4).
type Cache struct {
	Directory string        `mapstructure:"directory"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// Monitor holds keyword-monitor scheduler defaults (C10), seeding the
// KeywordMonitorSettings singleton row on first run.
type Monitor struct {
	CheckIntervalSeconds   int `mapstructure:"check_interval_seconds"`
	ManualTriggerThreshold int `mapstructure:"manual_trigger_threshold"` // deferred-to-task threshold, §6.1
}

// Ingest holds auto-ingest pipeline defaults (C11).
type Ingest struct {
	BatchSize            int `mapstructure:"batch_size"`
	MaxConcurrentBatches int `mapstructure:"max_concurrent_batches"`
}

// Tasks holds background-task manager defaults (C12).
type Tasks struct {
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	CleanupMaxAge time.Duration `mapstructure:"cleanup_max_age"`
}

type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var (
	current *Config
	once    sync.Once
	mu      sync.RWMutex
)

// Load reads .env (if present), binds viper defaults and environment
// variables, optionally merges a config file, and caches the result.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	bindEnvironmentVariables(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	detectOpenAIKey(&cfg)

	mu.Lock()
	current = &cfg
	mu.Unlock()

	return &cfg, nil
}

// Get returns the process-wide config, loading defaults on first call.
func Get() *Config {
	once.Do(func() {
		if _, err := Load(""); err != nil {
			// Defaults alone cannot fail to unmarshal; this path exists
			// only so Get() never returns nil.
			mu.Lock()
			current = &Config{}
			mu.Unlock()
		}
	})
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.data_dir", "./data")

	v.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	v.SetDefault("ai.gemini.embedding_model", "gemini-embedding-001")
	v.SetDefault("ai.gemini.temperature", float32(0.1))
	v.SetDefault("ai.gemini.max_tokens", int32(1000))
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.embedding_model", "text-embedding-3-small")

	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.pool_size", 25)
	v.SetDefault("database.max_overflow", 5)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors.enabled", true)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests_per_minute", 120)

	v.SetDefault("search.default_provider", "newsapi")
	v.SetDefault("search.newsapi.base_url", "https://newsapi.org/v2")
	v.SetDefault("search.bluesky.endpoint", "https://bsky.social/xrpc")
	v.SetDefault("search.breaker.max_failures", uint32(5))
	v.SetDefault("search.breaker.open_timeout", 30*time.Second)

	v.SetDefault("vector.dir", "./data/vectorstore")
	v.SetDefault("vector.embedding_model", "gemini-embedding-001")
	v.SetDefault("vector.dimensions", 1536)

	v.SetDefault("cache.directory", "./data/analysis_cache")
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("monitor.check_interval_seconds", 900)
	v.SetDefault("monitor.manual_trigger_threshold", 10)

	v.SetDefault("ingest.batch_size", 5)
	v.SetDefault("ingest.max_concurrent_batches", 1)

	v.SetDefault("tasks.max_concurrent", 3)
	v.SetDefault("tasks.cleanup_max_age", 24*time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvironmentVariables(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bind := func(key string, envs ...string) {
		for _, e := range envs {
			_ = v.BindEnv(key, e)
		}
	}

	bind("ai.gemini.api_key", "GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY")
	bind("ai.openai.api_key", "OPENAI_API_KEY")
	bind("database.type", "DB_TYPE")
	bind("database.host", "DB_HOST")
	bind("database.port", "DB_PORT")
	bind("database.user", "DB_USER")
	bind("database.password", "DB_PASSWORD")
	bind("database.name", "DB_NAME")
	bind("database.pool_size", "DB_POOL_SIZE")
	bind("database.max_overflow", "DB_MAX_OVERFLOW")
	bind("database.connection_string", "DATABASE_URL")
	bind("vector.dir", "CHROMA_DB_DIR", "VECTOR_DB_DIR")
	bind("search.newsapi.api_key", "NEWSAPI_API_KEY")
	bind("search.serpapi.api_key", "SERPAPI_API_KEY")
	bind("search.bluesky.handle", "BLUESKY_HANDLE")
	bind("search.bluesky.app_key", "BLUESKY_APP_KEY")
}

// detectOpenAIKey implements spec §6.4's "any env var whose name contains
// this substring" rule: OPENAI_API_KEY is the common case, but the
// original system also honored arbitrarily-named variables carrying the
// substring (e.g. per-tenant overrides injected by an operator).
func detectOpenAIKey(cfg *Config) {
	if cfg.AI.OpenAI.APIKey != "" {
		return
	}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.Contains(parts[0], "OPENAI_API_KEY") && parts[1] != "" {
			cfg.AI.OpenAI.APIKey = parts[1]
			return
		}
	}
}

// HasEmbeddingCredentials reports whether any real embedding backend is
// configured. The CLI wiring does not consult it: it always builds the
// Gemini embedder, and startup fails without a Gemini API key.
func (c *Config) HasEmbeddingCredentials() bool {
	return c.AI.Gemini.APIKey != "" || c.AI.OpenAI.APIKey != ""
}
