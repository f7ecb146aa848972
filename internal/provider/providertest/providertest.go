// Package providertest provides an in-memory provider.Client for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/ai-gateway/chat-relay/internal/provider"
)

// Client responds by echoing the last message unless Reply or Err is set.
// Every call and its payload are recorded.
type Client struct {
	ID        provider.ID
	ModelName string
	// Reply, when non-empty, is returned instead of the echo.
	Reply string
	Err   error
	Usage provider.Usage
	// Block makes Generate wait for ctx to be done.
	Block bool

	mu       sync.Mutex
	payloads [][]provider.Message
}

var _ provider.Client = (*Client)(nil)

func New(id provider.ID, model string) *Client {
	return &Client{ID: id, ModelName: model}
}

func (c *Client) Provider() provider.ID { return c.ID }

func (c *Client) Model() string { return c.ModelName }

func (c *Client) Generate(ctx context.Context, msgs []provider.Message) (*provider.Reply, error) {
	c.mu.Lock()
	c.payloads = append(c.payloads, append([]provider.Message(nil), msgs...))
	c.mu.Unlock()

	if c.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.Err != nil {
		return nil, c.Err
	}
	text := c.Reply
	if text == "" && len(msgs) > 0 {
		text = "Echo: " + msgs[len(msgs)-1].Content
	}
	return &provider.Reply{Text: text, Usage: c.Usage}, nil
}

// Calls returns the number of Generate calls.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

// LastPayload returns the messages of the most recent call.
func (c *Client) LastPayload() []provider.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.payloads) == 0 {
		return nil
	}
	return c.payloads[len(c.payloads)-1]
}
