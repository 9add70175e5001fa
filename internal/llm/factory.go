package llm

import (
	"os"

	"github.com/rotisserie/eris"
)

// compatibleBackends are OpenAI-compatible services reachable through the
// OpenAI client with a different base URL.
var compatibleBackends = map[string]struct {
	baseURL string
	keyEnv  string
}{
	"deepseek":   {baseURL: "https://api.deepseek.com/v1", keyEnv: "DEEPSEEK_API_KEY"},
	"openrouter": {baseURL: "https://openrouter.ai/api/v1", keyEnv: "OPENROUTER_API_KEY"},
	"ollama":     {baseURL: "http://localhost:11434/v1"},
}

// NewProvider creates a new LLM provider based on the given provider type and model.
// Supported provider types: "anthropic", "openai", "deepseek", "openrouter", "ollama".
// A non-empty baseURL overrides the backend's default endpoint.
func NewProvider(providerType, model, baseURL string) (Provider, error) {
	switch providerType {
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, eris.New("ANTHROPIC_API_KEY environment variable is not set")
		}
		return NewAnthropicProvider(apiKey, model), nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, eris.New("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAICompatibleProvider("openai", apiKey, baseURL, model), nil
	}

	backend, ok := compatibleBackends[providerType]
	if !ok {
		return nil, eris.Errorf("unsupported provider type: %s", providerType)
	}
	apiKey := "ollama"
	if backend.keyEnv != "" {
		apiKey = os.Getenv(backend.keyEnv)
		if apiKey == "" {
			return nil, eris.Errorf("%s environment variable is not set", backend.keyEnv)
		}
	}
	if baseURL == "" {
		baseURL = backend.baseURL
	}
	if providerType == "ollama" {
		if host := os.Getenv("OLLAMA_HOST"); host != "" && baseURL == backend.baseURL {
			baseURL = host + "/v1"
		}
	}
	return NewOpenAICompatibleProvider(providerType, apiKey, baseURL, model), nil
}
