package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewClientMissingKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewClient(context.Background(), Settings{Provider: "claude"})
	var missing *MissingKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingKeyError, got %v", err)
	}
	if missing.Provider != "anthropic" || len(missing.EnvVars) != 1 {
		t.Fatalf("unexpected error details: %+v", missing)
	}
}

func TestNewClientUnsupportedProvider(t *testing.T) {
	_, err := NewClient(context.Background(), Settings{Provider: "nobody", APIKey: "key"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewClientBuildsProviders(t *testing.T) {
	cases := []struct {
		provider string
		model    string
	}{
		{"openai", "gpt-4o-mini"},
		{"anthropic", "claude-sonnet-4-5"},
	}
	for _, tc := range cases {
		client, err := NewClient(context.Background(), Settings{Provider: tc.provider, Model: tc.model, APIKey: "key"})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.provider, err)
		}
		if client.GetModelName() != tc.model {
			t.Fatalf("%s: expected model %s, got %s", tc.provider, tc.model, client.GetModelName())
		}
	}
}

func TestNewClientWrapsRateLimit(t *testing.T) {
	client, err := NewClient(context.Background(), Settings{
		Provider:  "openai",
		Model:     "gpt-4o",
		APIKey:    "key",
		RateLimit: time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.GetModelName() != "gpt-4o" {
		t.Fatalf("rate limited client should delegate model name, got %s", client.GetModelName())
	}
}
