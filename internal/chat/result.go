package chat

import "github.com/ai-gateway/chat-relay/internal/provider"

// ErrorPrefix marks a failed turn when it is rendered as text.
const ErrorPrefix = "⚠️ Error: "

// Result is either Success or Failure.
type Result interface {
	result()
}

type Success struct {
	Text  string
	Usage provider.Usage
}

// FailureKind classifies a failed provider call.
type FailureKind string

const (
	ProviderError FailureKind = "provider_error"
	Timeout       FailureKind = "timeout"
)

type Failure struct {
	Kind   FailureKind
	Detail string
}

func (Success) result() {}
func (Failure) result() {}

// Text renders a result the way users see it: the reply, or the failure
// detail behind ErrorPrefix.
func Text(r Result) string {
	switch r := r.(type) {
	case Success:
		return r.Text
	case Failure:
		return ErrorPrefix + r.Detail
	default:
		return ""
	}
}
