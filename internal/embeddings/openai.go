package embeddings

import (
	"context"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
)

const maxBatchSize = 100

// OpenAIModel represents a supported OpenAI embedding model.
type OpenAIModel string

const (
	ModelTextEmbedding3Small OpenAIModel = "text-embedding-3-small"
	ModelTextEmbedding3Large OpenAIModel = "text-embedding-3-large"
)

func (m OpenAIModel) dimensions() int {
	switch m {
	case ModelTextEmbedding3Small:
		return 1536
	case ModelTextEmbedding3Large:
		return 3072
	default:
		return 1536
	}
}

// OpenAIEmbedder generates embeddings using OpenAI's API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  OpenAIModel
}

// NewOpenAIEmbedder creates an OpenAI embedder. baseURL may point at any
// OpenAI-compatible embeddings endpoint; empty means api.openai.com.
func NewOpenAIEmbedder(apiKey string, model OpenAIModel, baseURL string) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (e *OpenAIEmbedder) Name() string {
	return string(e.model)
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.model.dimensions()
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))

	// Batch up to maxBatchSize texts per API call
	for i := 0; i < len(texts); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, eris.Wrapf(err, "embedding batch at offset %d", i)
		}

		if len(resp.Data) != len(batch) {
			return nil, eris.Errorf("openai returned %d embeddings, expected %d", len(resp.Data), len(batch))
		}

		// Data is not guaranteed to come back in input order.
		ordered := make([][]float32, len(batch))
		for _, emb := range resp.Data {
			if emb.Index < 0 || emb.Index >= len(batch) {
				return nil, eris.Errorf("openai returned embedding index %d out of range", emb.Index)
			}
			ordered[emb.Index] = emb.Embedding
		}
		allEmbeddings = append(allEmbeddings, ordered...)
	}

	return allEmbeddings, nil
}
