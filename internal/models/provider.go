// Package models provides adapters for the generation backends.
package models

import (
	"context"
	"fmt"
	"iter"

	"github.com/easeaico/lens-assistant/internal/config"
)

// Role is the speaker of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of an assembled prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Provider generates assistant text. Both variants map connection failures
// and non-2xx responses to types.ErrProviderUnavailable.
type Provider interface {
	Name() string
	Complete(ctx context.Context, msgs []Message, temperature float64) (string, error)
	// CompleteStream yields text fragments as they arrive. Iteration stops
	// after the first error.
	CompleteStream(ctx context.Context, msgs []Message, temperature float64) iter.Seq2[string, error]
}

// New selects the provider variant configured for this process.
func New(ctx context.Context, cfg config.Config) (Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderLocal:
		return NewLocalModel(cfg.LLMBaseURL, cfg.LLMModel)
	case config.ProviderOpenAI:
		return NewOpenAIModel(cfg.LLMModel, cfg.OpenAIAPIKey, cfg.LLMBaseURL)
	case config.ProviderGrok:
		return NewGrokModel(cfg.LLMModel, cfg.XAIAPIKey)
	case config.ProviderOpenRouter:
		return NewOpenRouterModel(cfg.LLMModel, cfg.OpenRouterAPIKey)
	case config.ProviderGemini:
		return NewGeminiModel(ctx, cfg.LLMModel, cfg.GoogleAPIKey)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.LLMProvider)
	}
}
