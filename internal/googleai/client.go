// Package googleai wraps the Google Gen AI SDK (Gemini API) for phrase embeddings and report text.
package googleai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding or Complete is called with empty input.
	ErrEmptyInput = errors.New("googleai: input text is empty")
	// ErrInvalidDims is returned when dimensions does not fit the API's int32 field.
	ErrInvalidDims = errors.New("googleai: embedding dimensions out of range")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("googleai: no embedding in response")
	// ErrNoTextInResponse is returned when generation produced no text.
	ErrNoTextInResponse = errors.New("googleai: no text in response")
)

const (
	defaultEmbeddingModel = "gemini-embedding-001"
	defaultTextModel      = "gemini-2.0-flash"
)

// Client calls the Gemini embedding and generation APIs.
type Client struct {
	client         *genai.Client
	embeddingModel string
	textModel      string
	dimensions     int
	baseURL        string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions requests vectors of this length. Zero leaves the model default.
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithModel sets the embedding model (e.g. gemini-embedding-001). Empty keeps the default.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.embeddingModel = model
		}
	}
}

// WithTextModel sets the generation model. Empty keeps the default.
func WithTextModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.textModel = model
		}
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// NewClient creates a Gemini client for apiKey.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	client := &Client{
		embeddingModel: defaultEmbeddingModel,
		textModel:      defaultTextModel,
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.dimensions < 0 || client.dimensions > math.MaxInt32 {
		return nil, ErrInvalidDims
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if client.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: client.baseURL}
	}

	genaiClient, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("googleai client: %w", err)
	}

	client.client = genaiClient

	return client, nil
}

// CreateEmbedding returns the embedding vector for input.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	config := &genai.EmbedContentConfig{}

	if c.dimensions > 0 {
		//nolint:gosec // G115: bounded by math.MaxInt32 in NewClient
		dim := int32(c.dimensions)
		config.OutputDimensionality = &dim
	}

	contents := []*genai.Content{genai.NewContentFromText(input, genai.RoleUser)}

	resp, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	out := make([]float32, len(resp.Embeddings[0].Values))
	copy(out, resp.Embeddings[0].Values)

	return out, nil
}

// Complete generates text for the user prompt under the given system instruction.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", ErrEmptyInput
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.textModel, genai.Text(user), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrNoTextInResponse
	}

	return text, nil
}

// Name identifies the backend in errors and logs.
func (c *Client) Name() string {
	return "google"
}
