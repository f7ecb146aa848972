package chat

import (
	"context"
	"sync"

	"github.com/ai-gateway/chat-relay/internal/provider"
)

// Transcript is the history of one session. It is replayed verbatim on
// every turn; nothing is summarized or dropped, so it grows without bound.
type Transcript struct {
	// sendMu serializes turns; mu guards msgs and is never held across a
	// provider call.
	sendMu       sync.Mutex
	mu           sync.Mutex
	systemPrompt string
	msgs         []provider.Message
	// gen changes on Reset so an in-flight turn does not write into the
	// cleared history.
	gen uint64
}

func NewTranscript(systemPrompt string) *Transcript {
	return &Transcript{systemPrompt: systemPrompt}
}

func (t *Transcript) SystemPrompt() string { return t.systemPrompt }

// Send records a user turn, asks c for the reply and records it. A failed
// call is recorded as an assistant turn carrying the error text so the
// transcript keeps alternating user/assistant. If Reset runs while the call
// is in flight, the reply is returned but not recorded.
func (t *Transcript) Send(ctx context.Context, c Chatter, content string) Result {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	t.mu.Lock()
	t.msgs = append(t.msgs, provider.Message{Role: provider.User, Content: content})
	history := append([]provider.Message(nil), t.msgs...)
	gen := t.gen
	t.mu.Unlock()

	res := c.Chat(ctx, t.systemPrompt, history)

	t.mu.Lock()
	if t.gen == gen {
		t.msgs = append(t.msgs, provider.Message{Role: provider.Assistant, Content: Text(res)})
	}
	t.mu.Unlock()
	return res
}

// Messages returns a copy of the recorded turns.
func (t *Transcript) Messages() []provider.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]provider.Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}

// Reset drops every turn.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = nil
	t.gen++
}
