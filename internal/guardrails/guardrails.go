package guardrails

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ai-gateway/chat-relay/internal/provider"
)

var (
	ErrEmptyConversation = errors.New("conversation has no messages")
	ErrEmptyMessage      = errors.New("last message is empty")
	ErrBlocked           = errors.New("input violates guardrails")
)

// Guardrails validates conversations before they reach a provider.
type Guardrails struct {
	banned []string
}

func New(blocked ...string) *Guardrails {
	g := &Guardrails{}
	for _, w := range blocked {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			g.banned = append(g.banned, w)
		}
	}
	return g
}

// CheckInput returns an error if input contains banned words.
func (g *Guardrails) CheckInput(input string) error {
	lower := strings.ToLower(input)
	for _, w := range g.banned {
		if strings.Contains(lower, w) {
			return ErrBlocked
		}
	}
	return nil
}

// CheckHistory rejects roles other than user and assistant. The system
// prompt travels separately and must not appear in history.
func (g *Guardrails) CheckHistory(history []provider.Message) error {
	for i, m := range history {
		switch m.Role {
		case provider.User, provider.Assistant:
		default:
			return fmt.Errorf("message %d: role %q not allowed in history", i, m.Role)
		}
	}
	return nil
}

// CheckConversation validates a history whose last entry is the new user turn.
// An empty history is accepted when a system prompt is set: the provider
// then answers from the instruction alone.
func (g *Guardrails) CheckConversation(systemPrompt string, history []provider.Message) error {
	if len(history) == 0 {
		if strings.TrimSpace(systemPrompt) == "" {
			return ErrEmptyConversation
		}
		return nil
	}
	if err := g.CheckHistory(history); err != nil {
		return err
	}
	last := history[len(history)-1]
	if strings.TrimSpace(last.Content) == "" {
		return ErrEmptyMessage
	}
	if last.Role == provider.User {
		return g.CheckInput(last.Content)
	}
	return nil
}
