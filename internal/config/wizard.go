package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/rotisserie/eris"
)

var providerChoices = []string{
	"deepseek   - DeepSeek chat (DEEPSEEK_API_KEY)",
	"openai     - OpenAI (OPENAI_API_KEY)",
	"anthropic  - Claude (ANTHROPIC_API_KEY)",
	"openrouter - OpenRouter (OPENROUTER_API_KEY)",
	"ollama     - local Ollama server",
	"none       - no generation, canned diagnostics only",
}

var providerOrder = []ProviderType{
	ProviderDeepSeek, ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter, ProviderOllama, ProviderNone,
}

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to partsdesk! Let's configure the assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Generation provider.
	providerIdx, _, err := (&promptui.Select{Label: "Select LLM provider", Items: providerChoices}).Run()
	if err != nil {
		return nil, eris.Wrap(err, "provider selection")
	}
	cfg.Provider = providerOrder[providerIdx]
	cfg.Model = DefaultModel(cfg.Provider)

	// 2. Model.
	if cfg.Provider != ProviderNone {
		cfg.Model, err = (&promptui.Prompt{Label: "Model", Default: cfg.Model}).Run()
		if err != nil {
			return nil, eris.Wrap(err, "model")
		}
	}

	// 3. Embeddings for semantic search.
	_, embedding, err := (&promptui.Select{
		Label: "Select embedding provider",
		Items: []string{string(ProviderLocal), string(ProviderOpenAI), string(ProviderOllama)},
	}).Run()
	if err != nil {
		return nil, eris.Wrap(err, "embedding selection")
	}
	cfg.EmbeddingProvider = ProviderType(embedding)

	// 4. Catalog.
	_, cfg.Catalog.Driver, err = (&promptui.Select{Label: "Catalog database", Items: []string{"sqlite", "postgres"}}).Run()
	if err != nil {
		return nil, eris.Wrap(err, "catalog selection")
	}
	if cfg.Catalog.Driver == "postgres" {
		cfg.Catalog.DSN, err = (&promptui.Prompt{
			Label:    "Postgres connection string",
			Default:  "postgres://localhost:5432/partsdesk",
			Validate: required,
		}).Run()
		if err != nil {
			return nil, eris.Wrap(err, "catalog dsn")
		}
	}

	// 5. Response cache.
	_, cfg.Cache.Backend, err = (&promptui.Select{Label: "Response cache", Items: []string{"memory", "redis", "off"}}).Run()
	if err != nil {
		return nil, eris.Wrap(err, "cache selection")
	}
	if cfg.Cache.Backend == "redis" {
		cfg.Cache.RedisAddr, err = (&promptui.Prompt{Label: "Redis address", Default: cfg.Cache.RedisAddr, Validate: required}).Run()
		if err != nil {
			return nil, eris.Wrap(err, "redis address")
		}
	}

	// 6. Port.
	portStr, err := (&promptui.Prompt{Label: "HTTP port", Default: strconv.Itoa(cfg.Server.Port), Validate: validatePort}).Run()
	if err != nil {
		return nil, eris.Wrap(err, "port")
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment or .env before running partsdesk server.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, eris.Wrap(err, "saving config")
	}
	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func required(s string) error {
	if s == "" {
		return eris.New("value is required")
	}
	return nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return eris.New("port must be a number between 1 and 65535")
	}
	return nil
}
