package config

import (
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the forensic query engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Database       DatabaseConfig       `yaml:"database"`
	Redis          RedisConfig          `yaml:"redis"`
	Narrative      NarrativeConfig      `yaml:"narrative"`
	Embedding      EmbeddingConfig      `yaml:"embedding"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Search         SearchConfig         `yaml:"search"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"forensics"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"forensics"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`

	// StatementTimeout bounds each SQL statement; 0 uses the server default.
	StatementTimeout time.Duration `yaml:"statement_timeout" env:"PG_STATEMENT_TIMEOUT" env-default:"30s"`
}

// RedisConfig holds Redis configuration for the shared embedding cache.
// Leaving Host empty disables Redis and the in-process LRU cache is used instead.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// NarrativeConfig configures the language model that writes investigation summaries.
type NarrativeConfig struct {
	// Provider is one of "openai" (any OpenAI-compatible endpoint), "anthropic" or "none".
	Provider        string        `yaml:"provider" env:"NARRATIVE_PROVIDER" env-default:"none"`
	Endpoint        string        `yaml:"endpoint" env:"NARRATIVE_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model           string        `yaml:"model" env:"NARRATIVE_MODEL" env-default:"gpt-4o-mini"`
	APIKey          string        `yaml:"-" env:"LLM_API_KEY"`       // Secret - not in YAML
	AnthropicAPIKey string        `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
	Timeout         time.Duration `yaml:"timeout" env:"NARRATIVE_TIMEOUT" env-default:"15s"`
	Temperature     float64       `yaml:"temperature" env:"NARRATIVE_TEMPERATURE" env-default:"0.2"`
	MaxTokens       int           `yaml:"max_tokens" env:"NARRATIVE_MAX_TOKENS" env-default:"1024"`
}

// IsEnabled returns true if a narrative provider is configured.
func (c *NarrativeConfig) IsEnabled() bool {
	return c.Provider != "" && c.Provider != ProviderNone
}

// EmbeddingConfig configures the embedding provider and vector cache.
// An empty Endpoint selects the deterministic hashing embedder.
type EmbeddingConfig struct {
	Endpoint   string        `yaml:"endpoint" env:"EMBEDDING_ENDPOINT" env-default:""`
	Model      string        `yaml:"model" env:"EMBEDDING_MODEL" env-default:"all-MiniLM-L6-v2"`
	APIKey     string        `yaml:"-" env:"EMBEDDING_API_KEY"` // Secret - not in YAML
	Dimensions int           `yaml:"dimensions" env:"EMBEDDING_DIMENSIONS" env-default:"384"`
	Timeout    time.Duration `yaml:"timeout" env:"EMBEDDING_TIMEOUT" env-default:"5s"`
	CacheSize  int           `yaml:"cache_size" env:"EMBEDDING_CACHE_SIZE" env-default:"4096"`
	CacheTTL   time.Duration `yaml:"cache_ttl" env:"EMBEDDING_CACHE_TTL" env-default:"24h"`
}

// UsesProvider returns true if an external embedding endpoint is configured.
func (c *EmbeddingConfig) UsesProvider() bool {
	return c.Endpoint != ""
}

// CircuitBreakerConfig configures the breaker shared by the external model calls.
type CircuitBreakerConfig struct {
	Threshold  int           `yaml:"threshold" env:"CIRCUIT_BREAKER_THRESHOLD" env-default:"5"`
	ResetAfter time.Duration `yaml:"reset_after" env:"CIRCUIT_BREAKER_RESET_AFTER" env-default:"30s"`
}

// SearchConfig holds retrieval tuning.
type SearchConfig struct {
	// HomeCountryCode is the dialing code (digits only) that is not considered foreign.
	HomeCountryCode string `yaml:"home_country_code" env:"HOME_COUNTRY_CODE" env-default:"91"`
	// SemanticThreshold is the minimum cosine similarity for a semantic chat hit.
	SemanticThreshold float64 `yaml:"semantic_threshold" env:"SEMANTIC_THRESHOLD" env-default:"0.3"`
	// Timezone is used for the unusual-hours risk flag.
	Timezone string `yaml:"timezone" env:"SEARCH_TIMEZONE" env-default:"Local"`
	// ScanLimit bounds the number of messages loaded for a single scan.
	ScanLimit int `yaml:"scan_limit" env:"SEARCH_SCAN_LIMIT" env-default:"20000"`
	// BackfillConcurrency bounds concurrent embedding calls during backfill.
	BackfillConcurrency int `yaml:"backfill_concurrency" env:"BACKFILL_CONCURRENCY" env-default:"8"`
}

// Location resolves Timezone, falling back to the process local zone.
func (c *SearchConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Narrative provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

var digitsOnly = regexp.MustCompile(`^[0-9]{1,3}$`)

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate checks cross-field constraints and resolves derived values.
func (c *Config) validate() error {
	switch c.Narrative.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderNone, "":
	default:
		return fmt.Errorf("unknown narrative provider %q", c.Narrative.Provider)
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	}

	if c.Search.SemanticThreshold < 0 || c.Search.SemanticThreshold > 1 {
		return fmt.Errorf("semantic_threshold must be within [0,1], got %v", c.Search.SemanticThreshold)
	}

	if !digitsOnly.MatchString(c.Search.HomeCountryCode) {
		return fmt.Errorf("home_country_code must be 1-3 digits, got %q", c.Search.HomeCountryCode)
	}

	if _, err := time.LoadLocation(c.Search.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Search.Timezone, err)
	}

	if c.Search.ScanLimit <= 0 {
		c.Search.ScanLimit = 20000
	}
	if c.Search.BackfillConcurrency <= 0 {
		c.Search.BackfillConcurrency = 8
	}

	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as required by database/sql drivers.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}
