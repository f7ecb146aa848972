package routing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ai-gateway/chat-relay/internal/config"
	"github.com/ai-gateway/chat-relay/internal/provider"
	"github.com/ai-gateway/chat-relay/internal/provider/compat"
)

// Factory builds a client for one provider. It must not touch the network.
type Factory func(cred, model string, cfg *config.Config) provider.Client

// Spec describes how to construct a provider.
type Spec struct {
	ID provider.ID
	// CredentialEnv is the environment variable users set for the credential.
	CredentialEnv string
	DefaultModel  string
	New           Factory
}

// Route is the resolved provider. It is immutable once built.
type Route struct {
	Provider provider.ID
	Model    string
	Client   provider.Client
}

// Registry maps provider names to factories. Registration order is the
// precedence used when no provider is named explicitly.
type Registry struct {
	specs map[provider.ID]Spec
	order []provider.ID
}

var ErrEmbeddingsUnavailable = errors.New("embeddings require an openai credential")

func New() *Registry {
	return &Registry{specs: make(map[provider.ID]Spec)}
}

// Default returns a registry with groq, openai and gemini, in that precedence.
func Default() *Registry {
	r := New()
	r.Register(Spec{ID: provider.Groq, CredentialEnv: "GROQ_API_KEY", DefaultModel: "llama-3.3-70b-versatile", New: newGroq})
	r.Register(Spec{ID: provider.OpenAI, CredentialEnv: "OPENAI_API_KEY", DefaultModel: "gpt-4o-mini", New: newOpenAI})
	r.Register(Spec{ID: provider.Gemini, CredentialEnv: "GEMINI_API_KEY", DefaultModel: "gemini-1.5-pro", New: newGemini})
	return r
}

// Register adds a provider. Registering an existing ID replaces its spec
// but keeps its precedence.
func (r *Registry) Register(spec Spec) {
	if _, ok := r.specs[spec.ID]; !ok {
		r.order = append(r.order, spec.ID)
	}
	r.specs[spec.ID] = spec
}

// Providers returns the registered IDs in precedence order.
func (r *Registry) Providers() []provider.ID {
	return append([]provider.ID(nil), r.order...)
}

// Resolve picks the provider named by cfg.Provider, or the first provider in
// precedence order that has a credential, and builds its client.
func (r *Registry) Resolve(cfg *config.Config) (*Route, error) {
	spec, err := r.selectSpec(cfg)
	if err != nil {
		return nil, err
	}
	cred := cfg.Credential(string(spec.ID))
	if cred == "" {
		return nil, &ConfigError{Kind: MissingCredential, Provider: spec.ID, Key: spec.CredentialEnv}
	}
	model := cfg.Model(string(spec.ID))
	if model == "" {
		model = spec.DefaultModel
	}
	return &Route{Provider: spec.ID, Model: model, Client: spec.New(cred, model, cfg)}, nil
}

func (r *Registry) selectSpec(cfg *config.Config) (Spec, error) {
	if name := strings.ToLower(strings.TrimSpace(cfg.Provider)); name != "" {
		spec, ok := r.specs[provider.ID(name)]
		if !ok {
			return Spec{}, &ConfigError{Kind: InvalidProvider, Provider: provider.ID(name), Known: r.order}
		}
		return spec, nil
	}
	for _, id := range r.order {
		if cfg.Credential(string(id)) != "" {
			return r.specs[id], nil
		}
	}
	keys := make([]string, 0, len(r.order))
	for _, id := range r.order {
		keys = append(keys, r.specs[id].CredentialEnv)
	}
	return Spec{}, &ConfigError{Kind: MissingCredential, Key: strings.Join(keys, ", ")}
}

// Embedder builds the embedding client. Embeddings always go to OpenAI.
func (r *Registry) Embedder(cfg *config.Config) (provider.Embedder, error) {
	cred := cfg.Credential(string(provider.OpenAI))
	if cred == "" || cfg.EmbeddingModel == "" {
		return nil, ErrEmbeddingsUnavailable
	}
	return compat.NewOpenAI(cred, cfg.Model(string(provider.OpenAI)), compatOptions(provider.OpenAI, cfg)...), nil
}

func compatOptions(id provider.ID, cfg *config.Config) []compat.Option {
	opts := []compat.Option{
		compat.WithMaxTokens(cfg.MaxTokens),
		compat.WithEmbeddingModel(cfg.EmbeddingModel),
	}
	if u := cfg.BaseURL(string(id)); u != "" {
		opts = append(opts, compat.WithBaseURL(u))
	}
	return opts
}

func newGroq(cred, model string, cfg *config.Config) provider.Client {
	return compat.NewGroq(cred, model, compatOptions(provider.Groq, cfg)...)
}

func newOpenAI(cred, model string, cfg *config.Config) provider.Client {
	return compat.NewOpenAI(cred, model, compatOptions(provider.OpenAI, cfg)...)
}

func newGemini(cred, model string, cfg *config.Config) provider.Client {
	return compat.NewGemini(cred, model, compatOptions(provider.Gemini, cfg)...)
}

// ConfigErrorKind classifies startup configuration failures.
type ConfigErrorKind string

const (
	MissingCredential ConfigErrorKind = "missing_credential"
	InvalidProvider   ConfigErrorKind = "invalid_provider"
)

// ConfigError is fatal: the process must not start serving.
type ConfigError struct {
	Kind     ConfigErrorKind
	Provider provider.ID
	// Key names the environment variable(s) to set.
	Key   string
	Known []provider.ID
}

func (e *ConfigError) Error() string {
	switch e.Kind {
	case MissingCredential:
		if e.Provider == "" {
			return fmt.Sprintf("no provider credential found: set one of %s", e.Key)
		}
		return fmt.Sprintf("missing credential for provider %s: set %s", e.Provider, e.Key)
	case InvalidProvider:
		known := make([]string, 0, len(e.Known))
		for _, id := range e.Known {
			known = append(known, string(id))
		}
		return fmt.Sprintf("unknown provider %q: expected one of %s", e.Provider, strings.Join(known, ", "))
	default:
		return fmt.Sprintf("configuration error: %s", e.Kind)
	}
}

func AsConfigError(err error) (*ConfigError, bool) {
	var e *ConfigError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
