package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/codefionn/reproschnell/internal/consts"
)

const appName = "reproschnell"

// Environment variables that override file settings.
const (
	EnvLogLevel = "REPROSCHNELL_LOG_LEVEL"
	EnvLogPath  = "REPROSCHNELL_LOG_PATH"
)

// Config holds the settings of a reproduction run.
type Config struct {
	Provider    string  `json:"provider"` // google, openai, anthropic
	Model       string  `json:"model"`
	BaseURL     string  `json:"base_url,omitempty"` // OpenAI-compatible endpoints only
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_output_tokens"`

	MaxContextTokens    int     `json:"max_context_tokens"`
	CompactionThreshold float64 `json:"compaction_threshold"`
	TurnTokenCeiling    int     `json:"turn_token_ceiling"`
	Tokenizer           string  `json:"tokenizer"` // ratio or tiktoken

	RetryAttempts         int `json:"retry_attempts"`
	RetryBackoffSeconds   int `json:"retry_backoff_seconds"`
	SummaryTimeoutSeconds int `json:"summary_timeout_seconds"`
	AttemptTimeoutSeconds int `json:"attempt_timeout_seconds"`
	MaxRounds             int `json:"max_rounds"`
	MaxMalformedReplies   int `json:"max_malformed_replies"`
	RateLimitIntervalMs   int `json:"rate_limit_interval_ms"`

	PreamblePath  string `json:"preamble_path"`
	CheckpointDir string `json:"checkpoint_dir"`
	ResultsDBPath string `json:"results_db_path"`

	LogLevel string `json:"log_level"` // debug, info, warn, error, none
	LogPath  string `json:"log_path"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", appName)
	default:
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", appName)
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "linux":
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", appName)
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", appName)
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", appName)
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	stateDir := defaultStateDir()

	if c.Provider == "" {
		c.Provider = consts.DefaultProvider
	}
	if c.Model == "" && c.Provider == consts.DefaultProvider {
		c.Model = consts.DefaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = consts.DefaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = consts.DefaultMaxTokens
	}
	if c.MaxContextTokens == 0 {
		c.MaxContextTokens = consts.DefaultMaxContextTokens
	}
	if c.CompactionThreshold == 0 {
		c.CompactionThreshold = consts.DefaultCompactionThreshold
	}
	if c.TurnTokenCeiling == 0 {
		c.TurnTokenCeiling = consts.DefaultTurnTokenCeiling
	}
	if c.Tokenizer == "" {
		c.Tokenizer = "ratio"
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = consts.DefaultRetryAttempts
	}
	if c.RetryBackoffSeconds == 0 {
		c.RetryBackoffSeconds = int(consts.DefaultRetryBackoff / time.Second)
	}
	if c.SummaryTimeoutSeconds == 0 {
		c.SummaryTimeoutSeconds = int(consts.DefaultSummaryTimeout / time.Second)
	}
	if c.AttemptTimeoutSeconds == 0 {
		c.AttemptTimeoutSeconds = int(consts.DefaultAttemptTimeout / time.Second)
	}
	if c.MaxRounds == 0 {
		c.MaxRounds = consts.DefaultMaxRounds
	}
	if c.MaxMalformedReplies == 0 {
		c.MaxMalformedReplies = consts.DefaultMaxMalformedReplies
	}
	if c.PreamblePath == "" {
		c.PreamblePath = filepath.Join("prompts", "training_prompts.json")
	}
	if c.CheckpointDir == "" {
		c.CheckpointDir = filepath.Join(stateDir, "chat_history")
	}
	if c.ResultsDBPath == "" {
		c.ResultsDBPath = filepath.Join(stateDir, "results.db")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = filepath.Join(stateDir, appName+".log")
	}
}

// Load loads configuration from file. A missing file yields the defaults.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	config.applyDefaults()
	config.ApplyEnv()
	return config, nil
}

// ApplyEnv overrides log settings from the environment.
func (c *Config) ApplyEnv() {
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		c.LogLevel = level
	}
	if path := strings.TrimSpace(os.Getenv(EnvLogPath)); path != "" {
		c.LogPath = path
	}
}

// Validate rejects settings the loop cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.CompactionThreshold <= 0 || c.CompactionThreshold > 1:
		return fmt.Errorf("compaction_threshold must be in (0, 1], got %v", c.CompactionThreshold)
	case c.MaxContextTokens <= 0:
		return fmt.Errorf("max_context_tokens must be positive, got %d", c.MaxContextTokens)
	case c.RetryAttempts <= 0:
		return fmt.Errorf("retry_attempts must be positive, got %d", c.RetryAttempts)
	case c.RetryBackoffSeconds < 0:
		return fmt.Errorf("retry_backoff_seconds must not be negative, got %d", c.RetryBackoffSeconds)
	case c.MaxRounds <= 0:
		return fmt.Errorf("max_rounds must be positive, got %d", c.MaxRounds)
	case c.Temperature < 0:
		return fmt.Errorf("temperature must not be negative, got %v", c.Temperature)
	}
	return nil
}

// RetryBackoff is the base delay between model call attempts.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSeconds) * time.Second
}

// SummaryTimeout bounds the compaction call.
func (c *Config) SummaryTimeout() time.Duration {
	return time.Duration(c.SummaryTimeoutSeconds) * time.Second
}

// AttemptTimeout bounds a whole reproduction attempt.
func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutSeconds) * time.Second
}

// RateLimitInterval is the minimum spacing of model calls, zero when disabled.
func (c *Config) RateLimitInterval() time.Duration {
	return time.Duration(c.RateLimitIntervalMs) * time.Millisecond
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}
