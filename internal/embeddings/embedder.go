package embeddings

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// New builds the embedder named by provider. "local" needs no network and
// is the default.
func New(provider, model, baseURL string) (Embedder, error) {
	switch provider {
	case "", "local":
		return NewHashEmbedder(DefaultHashDimensions), nil
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, eris.New("OPENAI_API_KEY environment variable is not set")
		}
		if model == "" {
			model = string(ModelTextEmbedding3Small)
		}
		return NewOpenAIEmbedder(apiKey, OpenAIModel(model), baseURL), nil
	case "ollama":
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOllamaEmbedder(model, 768, baseURL), nil
	default:
		return nil, eris.Errorf("unsupported embedding provider: %s", provider)
	}
}
