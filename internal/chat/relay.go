package chat

import (
	"context"
	"log/slog"

	"github.com/ai-gateway/chat-relay/internal/metrics"
	"github.com/ai-gateway/chat-relay/internal/provider"
)

// Chatter answers a conversation.
type Chatter interface {
	Chat(ctx context.Context, systemPrompt string, history []provider.Message) Result
}

// Relay sends conversations to one resolved provider client.
type Relay struct {
	client provider.Client
	usage  *metrics.Usage
	logger *slog.Logger
}

var _ Chatter = (*Relay)(nil)

type Option func(*Relay)

func WithUsage(u *metrics.Usage) Option {
	return func(r *Relay) { r.usage = u }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) { r.logger = l }
}

func NewRelay(client provider.Client, opts ...Option) *Relay {
	r := &Relay{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relay) Provider() provider.ID { return r.client.Provider() }

func (r *Relay) Model() string { return r.client.Model() }

func (r *Relay) Chat(ctx context.Context, systemPrompt string, history []provider.Message) Result {
	payload := provider.Normalize(systemPrompt, history)
	res := Invoke(ctx, r.client, payload)

	id := string(r.client.Provider())
	switch res := res.(type) {
	case Success:
		if r.usage != nil {
			r.usage.Record(id, res.Usage.PromptTokens, res.Usage.CompletionTokens)
		}
		r.logger.Debug("chat completed",
			"provider", id,
			"model", r.client.Model(),
			"messages", len(payload),
			"completion_tokens", res.Usage.CompletionTokens)
	case Failure:
		if r.usage != nil {
			r.usage.Fail(id)
		}
		r.logger.Warn("chat failed",
			"provider", id,
			"model", r.client.Model(),
			"kind", string(res.Kind),
			"detail", res.Detail)
	}
	return res
}
