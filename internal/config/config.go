package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rotisserie/eris"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nested keys: PARTSDESK_CACHE__BACKEND -> cache.backend.
const EnvPrefix = "PARTSDESK_"

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return eris.Wrapf(err, "loading %s", p)
		}
	}
	return nil
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PARTSDESK_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, eris.Wrapf(err, "reading config %s", path)
		}
	} else if !os.IsNotExist(err) {
		return nil, eris.Wrapf(err, "accessing config %s", path)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, eris.Wrap(err, "loading env overrides")
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, eris.Wrap(err, "unmarshalling config")
	}

	// A provider switch without an explicit model picks that provider's default.
	if !k.Exists("model") || cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "marshalling config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "writing config to %s", path)
	}
	return nil
}

// SQLitePath is the local database file holding conversation contexts and,
// with the sqlite driver, the catalog: the sqlite DSN when set, otherwise a
// file under the data directory.
func (c *Config) SQLitePath() string {
	if c.Catalog.Driver == "sqlite" && c.Catalog.DSN != "" {
		return c.Catalog.DSN
	}
	return filepath.Join(c.DataDir, "partsdesk.db")
}

var validProviders = map[ProviderType]bool{
	ProviderAnthropic:  true,
	ProviderOpenAI:     true,
	ProviderDeepSeek:   true,
	ProviderOpenRouter: true,
	ProviderOllama:     true,
	ProviderNone:       true,
}

var validEmbeddingProviders = map[ProviderType]bool{
	ProviderLocal:  true,
	ProviderOpenAI: true,
	ProviderOllama: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return eris.New("provider is required")
	}
	if !validProviders[c.Provider] {
		return eris.Errorf("invalid provider %q: must be one of anthropic, openai, deepseek, openrouter, ollama, none", c.Provider)
	}
	if c.Provider != ProviderNone && c.Model == "" {
		return eris.New("model is required")
	}
	if c.EmbeddingProvider != "" && !validEmbeddingProviders[c.EmbeddingProvider] {
		return eris.Errorf("invalid embedding_provider %q: must be one of local, openai, ollama", c.EmbeddingProvider)
	}
	if c.DataDir == "" {
		return eris.New("data_dir is required")
	}
	if c.RateLimitRPM < 0 {
		return eris.New("rate_limit_rpm must be non-negative")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return eris.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.Catalog.Driver {
	case "sqlite":
	case "postgres":
		if c.Catalog.DSN == "" {
			return eris.New("catalog.dsn is required for the postgres driver")
		}
	default:
		return eris.Errorf("invalid catalog.driver %q: must be sqlite or postgres", c.Catalog.Driver)
	}

	switch c.Cache.Backend {
	case "off":
	case "memory", "redis":
		if c.Cache.TTL <= 0 {
			return eris.New("cache.ttl must be positive")
		}
		if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
			return eris.New("cache.redis_addr is required for the redis backend")
		}
	default:
		return eris.Errorf("invalid cache.backend %q: must be memory, redis or off", c.Cache.Backend)
	}

	if c.Router.RequestTimeout <= 0 {
		return eris.New("router.request_timeout must be positive")
	}
	if cb := c.Compat.DefaultCrossBrandConfidence; cb < 0 || cb > 1 {
		return eris.Errorf("compat.default_cross_brand_confidence %v must be within [0, 1]", cb)
	}

	o := c.Orchestrator
	if o.PartsLimit < 0 || o.RepairsLimit < 0 || o.ArticlesLimit < 0 {
		return eris.New("orchestrator limits must be non-negative")
	}
	if o.SearchTimeout <= 0 {
		return eris.New("orchestrator.search_timeout must be positive")
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		return eris.Errorf("orchestrator.temperature %v must be within [0, 2]", o.Temperature)
	}

	if c.Audit.Retention < 0 {
		return eris.New("audit.retention must not be negative")
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		return eris.Errorf("invalid log.format %q: must be json or console", c.Log.Format)
	}
	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}
