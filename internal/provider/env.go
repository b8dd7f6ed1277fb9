package provider

import (
	"os"
	"strings"
)

// providerEnvVars maps canonical provider names to the environment variables
// that can supply their API keys. Multiple variables allow aliases
// (e.g., GEMINI_API_KEY and GOOGLE_API_KEY).
var providerEnvVars = map[string][]string{
	"google":            {"GEMINI_API_KEY", "GOOGLE_API_KEY", "GOOGLE_GENAI_API_KEY"},
	"openai":            {"OPENAI_API_KEY"},
	"anthropic":         {"ANTHROPIC_API_KEY"},
	"openai-compatible": {"OPENAI_COMPATIBLE_API_KEY", "OPENAI_API_KEY"},
}

// canonicalProviderName normalizes provider aliases so they share the same
// environment-variable mapping.
func canonicalProviderName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "google", "googleai", "gemini":
		return "google"
	case "anthropic", "claude":
		return "anthropic"
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

// resolveAPIKey returns the API key to use for a provider. An explicit key
// takes precedence, otherwise known environment variables are consulted.
// An empty result means no key is available.
func resolveAPIKey(providerName, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}

	for _, envVar := range providerEnvVars[canonicalProviderName(providerName)] {
		if value := strings.TrimSpace(os.Getenv(envVar)); value != "" {
			return value
		}
	}
	return ""
}

// ResolveAPIKey looks up the provider's key in the environment.
func ResolveAPIKey(providerName string) string {
	return resolveAPIKey(providerName, "")
}

// EnvVarHints returns the known environment variables for a provider.
func EnvVarHints(providerName string) []string {
	hints := providerEnvVars[canonicalProviderName(providerName)]
	// Return a copy to avoid accidental external modification.
	out := make([]string, len(hints))
	copy(out, hints)
	return out
}
