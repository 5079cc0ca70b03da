// Package llm wraps chat-completion providers used as the last-resort
// advisor for file role classification.
package llm

import (
	"context"
)

// DefaultOpenAIModel is used when no model is configured for an
// OpenAI-compatible endpoint
const DefaultOpenAIModel = "qwen-max"

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete returns the model's answer to a single-turn prompt
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is one single-turn prompt
type CompletionRequest struct {
	System string
	Prompt string

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// CompletionResponse is the model output
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI-compatible endpoints
	APIKey string

	// BaseURL for custom endpoints (DashScope, Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		MaxTokens: 500,
	}
}

func (c Config) model(override string) string {
	if override != "" {
		return override
	}
	return c.Model
}

func (c Config) maxTokens(override int) int {
	switch {
	case override > 0:
		return override
	case c.MaxTokens > 0:
		return c.MaxTokens
	}
	return 500
}
