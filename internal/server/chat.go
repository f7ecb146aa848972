package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ai-gateway/chat-relay/internal/chat"
	"github.com/ai-gateway/chat-relay/internal/provider"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SystemPrompt string             `json:"system_prompt"`
	Messages     []provider.Message `json:"messages"`
}

type failureBody struct {
	Kind   chat.FailureKind `json:"kind"`
	Detail string           `json:"detail"`
}

// chatResponse renders a result. Provider failures are still 200: the
// error text goes in "response" so clients can show it like a reply.
func chatResponse(res chat.Result) gin.H {
	body := gin.H{"response": chat.Text(res)}
	if f, ok := res.(chat.Failure); ok {
		body["error"] = failureBody{Kind: f.Kind, Detail: f.Detail}
	}
	return body
}

func (s *Server) chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := s.guards.CheckConversation(req.SystemPrompt, req.Messages); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := s.callContext(c)
	defer cancel()
	res := s.relay.Chat(ctx, req.SystemPrompt, req.Messages)
	c.JSON(http.StatusOK, chatResponse(res))
}

type createSessionRequest struct {
	// SystemPrompt overrides the configured prompt; an explicit "" disables it.
	SystemPrompt *string `json:"system_prompt"`
}

func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	// an empty body means defaults
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	prompt := s.cfg.SystemPrompt
	if req.SystemPrompt != nil {
		prompt = *req.SystemPrompt
	}
	id, _ := s.sessions.Create(prompt)
	c.JSON(http.StatusCreated, gin.H{"id": id, "system_prompt": prompt})
}

func (s *Server) transcript(c *gin.Context) (*chat.Transcript, bool) {
	t, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return t, true
}

func (s *Server) getSession(c *gin.Context) {
	t, ok := s.transcript(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":            c.Param("id"),
		"system_prompt": t.SystemPrompt(),
		"messages":      t.Messages(),
	})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) sendMessage(c *gin.Context) {
	t, ok := s.transcript(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is empty"})
		return
	}
	if err := s.guards.CheckInput(req.Content); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := s.callContext(c)
	defer cancel()
	res := t.Send(ctx, s.relay, req.Content)
	body := chatResponse(res)
	body["messages"] = t.Messages()
	c.JSON(http.StatusOK, body)
}

func (s *Server) resetSession(c *gin.Context) {
	t, ok := s.transcript(c)
	if !ok {
		return
	}
	t.Reset()
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.sessions.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type embeddingRequest struct {
	Input string `json:"input"`
}

func (s *Server) embeddings(c *gin.Context) {
	if s.embedder == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "embeddings are not configured"})
		return
	}
	var req embeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Input == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx, cancel := s.callContext(c)
	defer cancel()
	vec, err := s.embedder.Embed(ctx, req.Input)
	if err != nil {
		s.logger.Warn("embedding failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"embedding": vec, "model": s.cfg.EmbeddingModel})
}
