package localembed

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAICompatibleClient calls an OpenAI-compatible /v1/embeddings endpoint served locally.
type OpenAICompatibleClient struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAICompatibleClient creates a client for baseURL (e.g. http://localhost:8081/v1).
// apiKey may be empty; most local servers ignore it.
func NewOpenAICompatibleClient(baseURL, apiKey, model string) *OpenAICompatibleClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")

	return &OpenAICompatibleClient{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.EmbeddingModel(model),
	}
}

// CreateEmbedding returns the embedding vector for input.
func (c *OpenAICompatibleClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{input},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("local embedding: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	return resp.Data[0].Embedding, nil
}
