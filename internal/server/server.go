package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ai-gateway/chat-relay/internal/catalog"
	"github.com/ai-gateway/chat-relay/internal/chat"
	"github.com/ai-gateway/chat-relay/internal/config"
	"github.com/ai-gateway/chat-relay/internal/guardrails"
	"github.com/ai-gateway/chat-relay/internal/metrics"
	"github.com/ai-gateway/chat-relay/internal/provider"
	"github.com/ai-gateway/chat-relay/internal/session"
)

type Server struct {
	cfg      *config.Config
	engine   *gin.Engine
	relay    *chat.Relay
	guards   *guardrails.Guardrails
	sessions *session.Store
	usage    *metrics.Usage
	catalog  *catalog.Catalog
	embedder provider.Embedder
	logger   *slog.Logger
}

type Option func(*Server)

// WithEmbedder enables POST /v1/embeddings.
func WithEmbedder(e provider.Embedder) Option {
	return func(s *Server) { s.embedder = e }
}

// WithUsage exposes u on GET /v1/usage. It should be the one fed by the relay.
func WithUsage(u *metrics.Usage) Option {
	return func(s *Server) { s.usage = u }
}

func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func New(cfg *config.Config, relay *chat.Relay, opts ...Option) *Server {
	srv := &Server{
		cfg:      cfg,
		engine:   gin.Default(),
		relay:    relay,
		guards:   guardrails.New(cfg.BlockedTerms...),
		sessions: session.NewStore(),
		usage:    metrics.NewUsage(),
		catalog:  catalog.Default(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) registerRoutes() {
	s.engine.POST("/chat", s.chat)
	s.engine.GET("/healthz", s.health)

	api := s.engine.Group("/v1")
	api.POST("/sessions", s.createSession)
	api.GET("/sessions/:id", s.getSession)
	api.POST("/sessions/:id/messages", s.sendMessage)
	api.DELETE("/sessions/:id/messages", s.resetSession)
	api.DELETE("/sessions/:id", s.deleteSession)
	api.POST("/embeddings", s.embeddings)
	api.GET("/models", s.listModels)
	api.GET("/usage", s.getUsage)
}

// Handler exposes the routes, mainly for tests and embedding in other servers.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info("listening", "address", s.cfg.Address, "provider", s.relay.Provider(), "model", s.relay.Model())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// callContext bounds one provider call by the configured request timeout.
func (s *Server) callContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"provider": s.relay.Provider(),
		"model":    s.relay.Model(),
	})
}

func (s *Server) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"provider": s.relay.Provider(),
		"model":    s.relay.Model(),
		"catalog":  s.catalog.Providers,
	})
}

func (s *Server) getUsage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"usage": s.usage.Snapshot()})
}
