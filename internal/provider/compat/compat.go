// Package compat talks to OpenAI-compatible chat endpoints. OpenAI, Groq
// and Gemini all expose one, so a single adapter serves every provider and
// only the base URL differs.
package compat

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ai-gateway/chat-relay/internal/provider"
)

const (
	GroqBaseURL   = "https://api.groq.com/openai/v1"
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
)

// Client implements provider.Client on top of go-openai.
type Client struct {
	id             provider.ID
	model          string
	maxTokens      int
	embeddingModel string
	client         *openai.Client
}

var (
	_ provider.Client   = (*Client)(nil)
	_ provider.Embedder = (*Client)(nil)
)

type Option func(*options)

type options struct {
	baseURL        string
	maxTokens      int
	embeddingModel string
}

// WithBaseURL overrides the provider's default endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = strings.TrimSuffix(url, "/") }
}

// WithMaxTokens caps the length of generated replies. Zero leaves it to the provider.
func WithMaxTokens(n int) Option {
	return func(o *options) { o.maxTokens = n }
}

// WithEmbeddingModel sets the model used by Embed.
func WithEmbeddingModel(model string) Option {
	return func(o *options) { o.embeddingModel = model }
}

func NewOpenAI(apiKey, model string, opts ...Option) *Client {
	return newClient(provider.OpenAI, apiKey, model, "", opts)
}

func NewGroq(apiKey, model string, opts ...Option) *Client {
	return newClient(provider.Groq, apiKey, model, GroqBaseURL, opts)
}

func NewGemini(apiKey, model string, opts ...Option) *Client {
	return newClient(provider.Gemini, apiKey, model, GeminiBaseURL, opts)
}

func newClient(id provider.ID, apiKey, model, baseURL string, opts []Option) *Client {
	o := &options{baseURL: baseURL}
	for _, opt := range opts {
		opt(o)
	}
	config := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		config.BaseURL = o.baseURL
	}
	return &Client{
		id:             id,
		model:          model,
		maxTokens:      o.maxTokens,
		embeddingModel: o.embeddingModel,
		client:         openai.NewClientWithConfig(config),
	}
}

func (c *Client) Provider() provider.ID { return c.id }

func (c *Client) Model() string { return c.model }

func (c *Client) Generate(ctx context.Context, msgs []provider.Message) (*provider.Reply, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		role, err := chatRole(msg.Role)
		if err != nil {
			return nil, &provider.Error{Provider: c.id, Message: err.Error()}
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return nil, c.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &provider.Error{Provider: c.id, Message: "response has no choices"}
	}
	return &provider.Reply{
		Text: resp.Choices[0].Message.Content,
		Usage: provider.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.embeddingModel == "" {
		return nil, &provider.Error{Provider: c.id, Message: "no embedding model configured"}
	}
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, c.wrap(err)
	}
	if len(resp.Data) == 0 {
		return nil, &provider.Error{Provider: c.id, Message: "response has no embeddings"}
	}
	return resp.Data[0].Embedding, nil
}

func chatRole(r provider.Role) (string, error) {
	switch r {
	case provider.System:
		return openai.ChatMessageRoleSystem, nil
	case provider.User:
		return openai.ChatMessageRoleUser, nil
	case provider.Assistant:
		return openai.ChatMessageRoleAssistant, nil
	default:
		return "", errors.New("unknown role: " + string(r))
	}
}

func (c *Client) wrap(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &provider.Error{
			Provider: c.id,
			Status:   apiErr.HTTPStatusCode,
			Message:  apiErr.Message,
			Cause:    err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &provider.Error{
			Provider: c.id,
			Status:   reqErr.HTTPStatusCode,
			Cause:    err,
		}
	}
	return &provider.Error{Provider: c.id, Cause: err}
}
