// Package localembed talks to self-hosted embedding servers: Ollama's native API and any
// OpenAI-compatible endpoint (llama.cpp, vLLM, LocalAI, Ollama's /v1).
package localembed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Kinds of local backend.
const (
	KindOllama           = "ollama"
	KindOpenAICompatible = "openai-compatible"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
	ErrEmptyInput = errors.New("localembed: input text is empty")
	// ErrNoEmbeddingInResponse is returned when the server answered without a vector.
	ErrNoEmbeddingInResponse = errors.New("localembed: no embedding in response")
)

const maxErrorBody = 512

// OllamaClient calls POST {baseURL}/api/embed.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *retryablehttp.Client
}

// OllamaOptions configures an OllamaClient.
type OllamaOptions struct {
	BaseURL  string
	Model    string
	Timeout  time.Duration
	RetryMax int
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaClient creates an Ollama embedding client. Defaults: localhost:11434, all-minilm,
// 20s timeout, 2 retries.
func NewOllamaClient(opts OllamaOptions) *OllamaClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:11434"
	}

	if opts.Model == "" {
		opts.Model = "all-minilm"
	}

	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}

	if opts.RetryMax == 0 {
		opts.RetryMax = 2
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.Logger = nil // callers log at the strategy layer

	return &OllamaClient{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		model:      opts.Model,
		httpClient: retryClient,
	}
}

// CreateEmbedding returns the embedding vector for input.
func (c *OllamaClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	payload, err := json.Marshal(ollamaEmbedRequest{Model: c.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create ollama request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Debug("close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return nil, fmt.Errorf("ollama embed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}

	if len(out.Embeddings) == 0 || len(out.Embeddings[0]) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	return out.Embeddings[0], nil
}
