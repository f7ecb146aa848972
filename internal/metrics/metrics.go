package metrics

import "sync"

// Counters is the usage recorded for one provider.
type Counters struct {
	Requests         int `json:"requests"`
	Failures         int `json:"failures"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Usage accumulates per-provider counters. It is safe for concurrent use.
type Usage struct {
	mu         sync.Mutex
	byProvider map[string]*Counters
}

func NewUsage() *Usage {
	return &Usage{byProvider: make(map[string]*Counters)}
}

func (u *Usage) counters(provider string) *Counters {
	c, ok := u.byProvider[provider]
	if !ok {
		c = &Counters{}
		u.byProvider[provider] = c
	}
	return c
}

// Record counts a successful call and its tokens.
func (u *Usage) Record(provider string, prompt, completion int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	c := u.counters(provider)
	c.Requests++
	c.PromptTokens += prompt
	c.CompletionTokens += completion
}

// Fail counts a failed call.
func (u *Usage) Fail(provider string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	c := u.counters(provider)
	c.Requests++
	c.Failures++
}

// Snapshot returns a copy of all counters.
func (u *Usage) Snapshot() map[string]Counters {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]Counters, len(u.byProvider))
	for k, c := range u.byProvider {
		out[k] = *c
	}
	return out
}
