package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ID names an LLM backend.
type ID string

const (
	OpenAI ID = "openai"
	Groq   ID = "groq"
	Gemini ID = "gemini"
)

// Role tags a chat message.
type Role string

const (
	System    Role = "system"
	User      Role = "user"
	Assistant Role = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage is the token accounting reported by a provider, if any.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Reply is a generated assistant message.
type Reply struct {
	Text  string
	Usage Usage
}

// Client is a ready-to-call chat backend with its credential and model
// bound at construction.
type Client interface {
	Generate(ctx context.Context, msgs []Message) (*Reply, error)
	Provider() ID
	Model() string
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Error is returned by provider adapters for any failed call.
type Error struct {
	Provider ID
	// Status is the HTTP status of the provider response, 0 if none was received.
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if msg == "" && e.Status != 0 {
		msg = http.StatusText(e.Status)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: http %d: %s", e.Provider, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
