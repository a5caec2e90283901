// Package llm implements the provider boundary for embedding and text
// generation. Providers are reached over plain HTTP; their failures are
// classified into auth, rate-limited, and unavailable errors so callers
// can decide what is fatal and what is worth retrying.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EmbeddingClient vectorizes text for similarity search.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// GenerationClient produces free text from a prompt.
type GenerationClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client combines both provider capabilities.
type Client interface {
	EmbeddingClient
	GenerationClient
}

// Config holds configuration for a provider client.
type Config struct {
	Provider       string
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
}

// NewClient creates a provider client for the configured backend.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini", "":
		return newGeminiClient(cfg)
	case "openai":
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
