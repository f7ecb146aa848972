package chat

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ai-gateway/chat-relay/internal/provider"
)

const tracerName = "github.com/ai-gateway/chat-relay/internal/chat"

// Invoke makes exactly one Generate call and folds its outcome into a
// Result. Errors, including panics in the client, never escape.
func Invoke(ctx context.Context, client provider.Client, payload []provider.Message) (res Result) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "chat.invoke")
	span.SetAttributes(
		attribute.String("llm.provider", string(client.Provider())),
		attribute.String("llm.model", client.Model()),
		attribute.Int("llm.messages", len(payload)),
	)
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			res = Failure{Kind: ProviderError, Detail: fmt.Sprintf("%s: %v", client.Provider(), p)}
		}
		if f, ok := res.(Failure); ok {
			span.SetStatus(codes.Error, f.Detail)
			span.SetAttributes(attribute.String("llm.failure", string(f.Kind)))
		}
	}()

	reply, err := client.Generate(ctx, payload)
	if err != nil {
		span.RecordError(err)
		return classify(ctx, err)
	}
	if reply == nil {
		return Failure{Kind: ProviderError, Detail: fmt.Sprintf("%s: empty reply", client.Provider())}
	}
	span.SetAttributes(
		attribute.Int("llm.usage.prompt_tokens", reply.Usage.PromptTokens),
		attribute.Int("llm.usage.completion_tokens", reply.Usage.CompletionTokens),
	)
	return Success{Text: reply.Text, Usage: reply.Usage}
}

func classify(ctx context.Context, err error) Failure {
	if isTimeout(ctx, err) {
		return Failure{Kind: Timeout, Detail: err.Error()}
	}
	return Failure{Kind: ProviderError, Detail: err.Error()}
}

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
