package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultSystemPrompt = "You are a helpful AI assistant. Respond politely and clearly."

// Config is loaded once at startup and treated as read-only afterwards.
type Config struct {
	Address        string            `mapstructure:"address"`
	Provider       string            `mapstructure:"provider"`
	Credentials    map[string]string `mapstructure:"credentials"`
	Models         map[string]string `mapstructure:"models"`
	BaseURLs       map[string]string `mapstructure:"base_urls"`
	ModelsPath     string            `mapstructure:"models_path"`
	EmbeddingModel string            `mapstructure:"embedding_model"`
	SystemPrompt   string            `mapstructure:"system_prompt"`
	MaxTokens      int               `mapstructure:"max_tokens"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout"`
	TelemetryURL   string            `mapstructure:"telemetry_url"`
	BlockedTerms   []string          `mapstructure:"blocked_terms"`
	RAG            RAG               `mapstructure:"rag"`
}

// RAG holds retrieval settings. The chat flow does not read them.
type RAG struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	TopK         int `mapstructure:"top_k"`
}

// Credential returns the API key configured for a provider, or "".
func (c *Config) Credential(provider string) string {
	return strings.TrimSpace(c.Credentials[provider])
}

// Model returns the model configured for a provider, or "".
func (c *Config) Model(provider string) string {
	return strings.TrimSpace(c.Models[provider])
}

// BaseURL returns the endpoint override for a provider, or "".
func (c *Config) BaseURL(provider string) string {
	return strings.TrimSpace(c.BaseURLs[provider])
}

// envBindings maps config keys to the unprefixed variables users already
// have in their .env files.
var envBindings = map[string]string{
	"provider":           "LLM_PROVIDER",
	"credentials.openai": "OPENAI_API_KEY",
	"credentials.groq":   "GROQ_API_KEY",
	"credentials.gemini": "GEMINI_API_KEY",
	"models.openai":      "OPENAI_MODEL",
	"models.groq":        "GROQ_MODEL",
	"models.gemini":      "GEMINI_MODEL",
	"embedding_model":    "EMBEDDING_MODEL",
	"max_tokens":         "MAX_TOKENS_RESPONSE",
	"rag.chunk_size":     "CHUNK_SIZE",
	"rag.chunk_overlap":  "CHUNK_OVERLAP",
	"rag.top_k":          "TOP_K",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("address", ":8000")
	v.SetDefault("provider", "")
	v.SetDefault("credentials.openai", "")
	v.SetDefault("credentials.groq", "")
	v.SetDefault("credentials.gemini", "")
	v.SetDefault("models.openai", "gpt-4o-mini")
	v.SetDefault("models.groq", "llama-3.3-70b-versatile")
	v.SetDefault("models.gemini", "gemini-1.5-pro")
	v.SetDefault("embedding_model", "text-embedding-3-small")
	v.SetDefault("system_prompt", DefaultSystemPrompt)
	v.SetDefault("max_tokens", 512)
	v.SetDefault("request_timeout", 60*time.Second)
	v.SetDefault("rag.chunk_size", 500)
	v.SetDefault("rag.chunk_overlap", 50)
	v.SetDefault("rag.top_k", 5)
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	setDefaults(v)

	// allow environment variables like RELAY_ADDRESS
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, "RELAY_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// don't fail if config file is missing, allow env-only config
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks limits. Credentials are checked when the provider is resolved.
func (c *Config) Validate() error {
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got %d", c.MaxTokens)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.RAG.ChunkSize < 0 || c.RAG.ChunkOverlap < 0 || c.RAG.TopK < 0 {
		return errors.New("rag settings must not be negative")
	}
	return nil
}
