// Package provider turns configuration into a ready llm.Client.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/codefionn/reproschnell/internal/llm"
	"github.com/codefionn/reproschnell/internal/logger"
)

// Settings selects and configures a model provider.
type Settings struct {
	Provider string
	Model    string
	// APIKey overrides the environment lookup.
	APIKey string
	// BaseURL is used by openai-compatible endpoints.
	BaseURL string
	// RateLimit spaces out calls when positive.
	RateLimit time.Duration
}

// MissingKeyError reports a provider without credentials.
type MissingKeyError struct {
	Provider string
	EnvVars  []string
}

func (e *MissingKeyError) Error() string {
	if len(e.EnvVars) == 0 {
		return fmt.Sprintf("no API key for provider %s", e.Provider)
	}
	return fmt.Sprintf("no API key for provider %s (set %s)", e.Provider, strings.Join(e.EnvVars, " or "))
}

// NewClient builds the client for s.Provider.
func NewClient(ctx context.Context, s Settings) (llm.Client, error) {
	name := canonicalProviderName(s.Provider)
	key := resolveAPIKey(name, s.APIKey)
	if key == "" {
		return nil, &MissingKeyError{Provider: name, EnvVars: EnvVarHints(name)}
	}

	var (
		client llm.Client
		err    error
	)
	switch name {
	case "google":
		client, err = llm.NewGoogleAIClient(ctx, key, s.Model)
	case "openai", "openai-compatible":
		client, err = llm.NewOpenAIClient(key, s.Model, s.BaseURL)
	case "anthropic":
		client, err = llm.NewAnthropicClient(key, s.Model)
	default:
		return nil, fmt.Errorf("unsupported provider %q", s.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", name, err)
	}

	logger.Info("Provider: using %s model %s", name, client.GetModelName())
	if s.RateLimit > 0 {
		logger.Debug("Provider: rate limiting calls to one per %s", s.RateLimit)
		client = llm.NewRateLimitedClient(client, s.RateLimit)
	}
	return client, nil
}
