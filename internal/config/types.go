package config

import "time"

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenAI     ProviderType = "openai"
	ProviderDeepSeek   ProviderType = "deepseek"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOllama     ProviderType = "ollama"
	// ProviderNone disables generation; the pipeline answers from triage.
	ProviderNone ProviderType = "none"
	// ProviderLocal is the hash embedder, which needs no external service.
	ProviderLocal ProviderType = "local"
)

// Config is the top-level partsdesk configuration, corresponding to .partsdesk.yml.
type Config struct {
	Provider          ProviderType       `yaml:"provider" koanf:"provider"`
	Model             string             `yaml:"model" koanf:"model"`
	BaseURL           string             `yaml:"base_url,omitempty" koanf:"base_url"`
	EmbeddingProvider ProviderType       `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string             `yaml:"embedding_model,omitempty" koanf:"embedding_model"`
	DataDir           string             `yaml:"data_dir" koanf:"data_dir"`
	RateLimitRPM      int                `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
	Server            ServerConfig       `yaml:"server" koanf:"server"`
	Catalog           CatalogConfig      `yaml:"catalog" koanf:"catalog"`
	Cache             CacheConfig        `yaml:"cache" koanf:"cache"`
	Router            RouterConfig       `yaml:"router" koanf:"router"`
	Compat            CompatConfig       `yaml:"compat" koanf:"compat"`
	Orchestrator      OrchestratorConfig `yaml:"orchestrator" koanf:"orchestrator"`
	Audit             AuditConfig        `yaml:"audit" koanf:"audit"`
	Log               LogConfig          `yaml:"log" koanf:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// CatalogConfig selects the structured parts store.
type CatalogConfig struct {
	Driver string `yaml:"driver" koanf:"driver"` // sqlite or postgres
	// DSN is a file path for sqlite or a connection string for postgres.
	// An empty sqlite DSN means data_dir/partsdesk.db.
	DSN string `yaml:"dsn,omitempty" koanf:"dsn"`
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	Backend       string        `yaml:"backend" koanf:"backend"` // memory, redis or off
	TTL           time.Duration `yaml:"ttl" koanf:"ttl"`
	RedisAddr     string        `yaml:"redis_addr,omitempty" koanf:"redis_addr"`
	RedisPassword string        `yaml:"redis_password,omitempty" koanf:"redis_password"`
	RedisDB       int           `yaml:"redis_db" koanf:"redis_db"`
	Prefix        string        `yaml:"prefix" koanf:"prefix"`
	Warm          bool          `yaml:"warm" koanf:"warm"`
}

type RouterConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
}

type CompatConfig struct {
	DefaultCrossBrandConfidence float64 `yaml:"default_cross_brand_confidence" koanf:"default_cross_brand_confidence"`
}

// OrchestratorConfig bounds the tool pipeline.
type OrchestratorConfig struct {
	PartsLimit    int           `yaml:"parts_limit" koanf:"parts_limit"`
	RepairsLimit  int           `yaml:"repairs_limit" koanf:"repairs_limit"`
	ArticlesLimit int           `yaml:"articles_limit" koanf:"articles_limit"`
	SearchTimeout time.Duration `yaml:"search_timeout" koanf:"search_timeout"`
	MaxTokens     int           `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature   float64       `yaml:"temperature" koanf:"temperature"`
}

// AuditConfig controls the per-turn audit trail kept in the local database.
// A zero Retention keeps entries forever.
type AuditConfig struct {
	Enabled   bool          `yaml:"enabled" koanf:"enabled"`
	Retention time.Duration `yaml:"retention" koanf:"retention"`
}

type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"` // json or console
}
