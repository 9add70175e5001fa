package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderDeepSeek {
		t.Errorf("expected default provider %q, got %q", ProviderDeepSeek, cfg.Provider)
	}
	if cfg.Model != "deepseek-chat" {
		t.Errorf("expected default model deepseek-chat, got %q", cfg.Model)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Router.RequestTimeout != 30*time.Second {
		t.Errorf("expected 30s request timeout, got %v", cfg.Router.RequestTimeout)
	}
	if cfg.Compat.DefaultCrossBrandConfidence != 0.6 {
		t.Errorf("expected cross-brand default 0.6, got %v", cfg.Compat.DefaultCrossBrandConfidence)
	}
	if cfg.Orchestrator.PartsLimit != 5 || cfg.Orchestrator.RepairsLimit != 3 || cfg.Orchestrator.ArticlesLimit != 2 {
		t.Errorf("unexpected default limits: %+v", cfg.Orchestrator)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Retention != 30*24*time.Hour {
		t.Errorf("unexpected default audit config: %+v", cfg.Audit)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.partsdesk.yml")

	original := DefaultConfig()
	original.Provider = ProviderOpenAI
	original.Model = "gpt-4o"
	original.Cache.Backend = "redis"
	original.Cache.TTL = 15 * time.Minute
	original.Orchestrator.SearchTimeout = 2500 * time.Millisecond
	original.Server.Port = 9090

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.Cache.Backend != "redis" {
		t.Errorf("cache.backend: got %q, want redis", loaded.Cache.Backend)
	}
	if loaded.Cache.TTL != original.Cache.TTL {
		t.Errorf("cache.ttl: got %v, want %v", loaded.Cache.TTL, original.Cache.TTL)
	}
	if loaded.Orchestrator.SearchTimeout != original.Orchestrator.SearchTimeout {
		t.Errorf("search_timeout: got %v, want %v", loaded.Orchestrator.SearchTimeout, original.Orchestrator.SearchTimeout)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("server.port: got %d, want 9090", loaded.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Provider != ProviderDeepSeek {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yml")
	data := "provider: anthropic\ncache:\n  backend: \"off\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model != DefaultModel(ProviderAnthropic) {
		t.Errorf("provider switch should pick its default model, got %q", cfg.Model)
	}
	if cfg.Cache.Backend != "off" {
		t.Errorf("cache.backend: got %q, want off", cfg.Cache.Backend)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Cache.TTL != time.Hour || cfg.Cache.Prefix != "partsdesk:" {
		t.Errorf("cache defaults lost: %+v", cfg.Cache)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("PARTSDESK_PROVIDER", "ollama")
	t.Setenv("PARTSDESK_MODEL", "llama3:8b")
	t.Setenv("PARTSDESK_SERVER__PORT", "9000")
	t.Setenv("PARTSDESK_CACHE__REDIS_ADDR", "redis:6379")
	t.Setenv("PARTSDESK_ROUTER__REQUEST_TIMEOUT", "45s")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderOllama {
		t.Errorf("env override failed: got %q, want %q", loaded.Provider, ProviderOllama)
	}
	if loaded.Model != "llama3:8b" {
		t.Errorf("model override: got %q", loaded.Model)
	}
	if loaded.Server.Port != 9000 {
		t.Errorf("nested override: got port %d, want 9000", loaded.Server.Port)
	}
	if loaded.Cache.RedisAddr != "redis:6379" {
		t.Errorf("redis_addr override: got %q", loaded.Cache.RedisAddr)
	}
	if loaded.Router.RequestTimeout != 45*time.Second {
		t.Errorf("duration override: got %v", loaded.Router.RequestTimeout)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"PARTSDESK_PROVIDER":                     "provider",
		"PARTSDESK_DATA_DIR":                     "data_dir",
		"PARTSDESK_CACHE__BACKEND":               "cache.backend",
		"PARTSDESK_ORCHESTRATOR__SEARCH_TIMEOUT": "orchestrator.search_timeout",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PARTSDESK_TEST_DOTENV=loaded\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("PARTSDESK_TEST_DOTENV") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("PARTSDESK_TEST_DOTENV"); got != "loaded" {
		t.Errorf("expected variable from .env, got %q", got)
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}

	cfg.Provider = ProviderNone
	cfg.Model = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("provider none needs no model, got: %v", err)
	}
}

func TestValidateInvalid(t *testing.T) {
	tests := map[string]func(*Config){
		"empty provider":       func(c *Config) { c.Provider = "" },
		"unknown provider":     func(c *Config) { c.Provider = "google" },
		"empty model":          func(c *Config) { c.Model = "" },
		"unknown embedding":    func(c *Config) { c.EmbeddingProvider = "anthropic" },
		"empty data dir":       func(c *Config) { c.DataDir = "" },
		"port out of range":    func(c *Config) { c.Server.Port = 70000 },
		"unknown driver":       func(c *Config) { c.Catalog.Driver = "mysql" },
		"postgres without dsn": func(c *Config) { c.Catalog.Driver = "postgres" },
		"unknown cache":        func(c *Config) { c.Cache.Backend = "memcached" },
		"zero ttl":             func(c *Config) { c.Cache.TTL = 0 },
		"redis without addr":   func(c *Config) { c.Cache.Backend = "redis"; c.Cache.RedisAddr = "" },
		"zero request timeout": func(c *Config) { c.Router.RequestTimeout = 0 },
		"confidence above one": func(c *Config) { c.Compat.DefaultCrossBrandConfidence = 1.5 },
		"negative limit":       func(c *Config) { c.Orchestrator.PartsLimit = -1 },
		"zero search timeout":  func(c *Config) { c.Orchestrator.SearchTimeout = 0 },
		"temperature too high": func(c *Config) { c.Orchestrator.Temperature = 3 },
		"unknown log format":   func(c *Config) { c.Log.Format = "xml" },
		"negative rate limit":  func(c *Config) { c.RateLimitRPM = -1 },
		"negative retention":   func(c *Config) { c.Audit.Retention = -time.Hour },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSQLitePath(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.SQLitePath(); got != filepath.Join(".partsdesk", "partsdesk.db") {
		t.Errorf("default sqlite path: got %q", got)
	}
	cfg.Catalog.DSN = "/var/lib/partsdesk/catalog.db"
	if got := cfg.SQLitePath(); got != "/var/lib/partsdesk/catalog.db" {
		t.Errorf("dsn override: got %q", got)
	}
	cfg.Catalog.Driver = "postgres"
	if got := cfg.SQLitePath(); got != filepath.Join(".partsdesk", "partsdesk.db") {
		t.Errorf("postgres dsn must not be used as a sqlite path: got %q", got)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderDeepSeek, "DEEPSEEK_API_KEY"},
		{ProviderOllama, ""},
		{ProviderNone, ""},
	}
	for _, tt := range tests {
		got := APIKeyEnvVar(tt.provider)
		if got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestValidatePort(t *testing.T) {
	for _, ok := range []string{"1", "8080", "65535"} {
		if err := validatePort(ok); err != nil {
			t.Errorf("validatePort(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "0", "http", "65536"} {
		if err := validatePort(bad); err == nil {
			t.Errorf("validatePort(%q) should fail", bad)
		}
	}
}
