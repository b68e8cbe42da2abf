// Package summarize sends the text of PDFs to a chat model and collects the
// answers into JSON and markdown reports.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/a3tai/pdf-clerk/internal/config"
)

// Completion is one model answer.
type Completion struct {
	Text   string
	Tokens int
}

// Client is a chat model.
type Client interface {
	Complete(ctx context.Context, system, user string) (*Completion, error)
}

// NewClient builds the client selected by cfg.Provider.
func NewClient(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", cfg.Provider)
	}
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderOpenAI, "":
		return NewOpenAIClient(cfg), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
