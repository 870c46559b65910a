// Package openai wraps the official OpenAI Go SDK for phrase embeddings and report text completion.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding or Complete is called with empty input.
	ErrEmptyInput = errors.New("openai: input text is empty")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
	// ErrNoChoiceInResponse is returned when a chat completion has no usable choice.
	ErrNoChoiceInResponse = errors.New("openai: no completion choice in response")
)

const (
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultChatModel      = "gpt-4o-mini"
)

// Client calls the OpenAI embeddings and chat completion APIs.
type Client struct {
	sdk            openaisdk.Client
	embeddingModel string
	chatModel      string
	dimensions     int
	requestOptions []option.RequestOption
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions asks the API for vectors of this length. Zero leaves the model default.
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithModel sets the embedding model. Empty keeps the default.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.embeddingModel = model
		}
	}
}

// WithChatModel sets the chat completion model. Empty keeps the default.
func WithChatModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.chatModel = model
		}
	}
}

// WithBaseURL points the client at another endpoint (proxies, tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.requestOptions = append(c.requestOptions, option.WithBaseURL(baseURL))
	}
}

// WithMaxRetries overrides the SDK's retry count.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.requestOptions = append(c.requestOptions, option.WithMaxRetries(n))
	}
}

// NewClient creates a client for apiKey.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		embeddingModel: defaultEmbeddingModel,
		chatModel:      defaultChatModel,
	}

	for _, opt := range opts {
		opt(client)
	}

	sdkOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, client.requestOptions...)
	client.sdk = openaisdk.NewClient(sdkOpts...)

	return client
}

// CreateEmbedding returns the embedding vector for input.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	params := openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(input),
		},
		Model: openaisdk.EmbeddingModel(c.embeddingModel),
	}
	if c.dimensions > 0 {
		params.Dimensions = param.NewOpt(int64(c.dimensions))
	}

	resp, err := c.sdk.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Data[0].Embedding

	out := make([]float32, len(emb))
	for i := range emb {
		out[i] = float32(emb[i])
	}

	return out, nil
}

// Complete runs one chat completion with a system and a user message and returns the text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", ErrEmptyInput
	}

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openaisdk.SystemMessage(system))
	}

	messages = append(messages, openaisdk.UserMessage(user))

	resp, err := c.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.chatModel),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrNoChoiceInResponse
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Name identifies the backend in errors and logs.
func (c *Client) Name() string {
	return "openai"
}
