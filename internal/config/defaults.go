package config

import "time"

// DefaultConfigFile is the config file looked up in the working directory.
const DefaultConfigFile = ".partsdesk.yml"

// defaultModels maps each generation provider to the model used when the
// config leaves it blank.
var defaultModels = map[ProviderType]string{
	ProviderAnthropic:  "claude-sonnet-4-5-20250929",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderDeepSeek:   "deepseek-chat",
	ProviderOpenRouter: "deepseek/deepseek-chat",
	ProviderOllama:     "llama3",
}

// DefaultModel returns the default model for provider, or "" if none applies.
func DefaultModel(provider ProviderType) string {
	return defaultModels[provider]
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderDeepSeek,
		Model:             DefaultModel(ProviderDeepSeek),
		EmbeddingProvider: ProviderLocal,
		DataDir:           ".partsdesk",
		RateLimitRPM:      60,
		Server: ServerConfig{
			Port:            8080,
			AllowAllOrigins: true,
		},
		Catalog: CatalogConfig{Driver: "sqlite"},
		Cache: CacheConfig{
			Backend:   "memory",
			TTL:       time.Hour,
			RedisAddr: "localhost:6379",
			Prefix:    "partsdesk:",
			Warm:      true,
		},
		Router: RouterConfig{RequestTimeout: 30 * time.Second},
		Compat: CompatConfig{DefaultCrossBrandConfidence: 0.6},
		Orchestrator: OrchestratorConfig{
			PartsLimit:    5,
			RepairsLimit:  3,
			ArticlesLimit: 2,
			SearchTimeout: 5 * time.Second,
			MaxTokens:     1024,
			Temperature:   0.3,
		},
		Audit: AuditConfig{Enabled: true, Retention: 30 * 24 * time.Hour},
		Log:   LogConfig{Level: "info", Format: "console"},
	}
}
