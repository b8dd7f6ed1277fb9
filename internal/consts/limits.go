package consts

import "time"

// Token budgeting
const (
	// CharsPerToken is the fixed character-to-token ratio of the default estimator
	CharsPerToken = 4
	// DefaultMaxContextTokens is the context size the budgeter plans against
	DefaultMaxContextTokens = 128_000
	// DefaultCompactionThreshold is the fraction of the context that triggers compaction
	DefaultCompactionThreshold = 0.75
	// DefaultTurnTokenCeiling is the size above which the last turn is truncated before summarizing
	DefaultTurnTokenCeiling = 4000
)

// Model call defaults
const (
	// DefaultModel is the model used when none is configured
	DefaultModel = "gemini-2.5-flash"
	// DefaultProvider is the provider used when none is configured
	DefaultProvider = "google"
	// DefaultTemperature keeps generations close to deterministic
	DefaultTemperature = 0.3
	// DefaultMaxTokens is the default maximum tokens for LLM responses
	DefaultMaxTokens = 4096
)

// Retry and attempt limits
const (
	// DefaultRetryAttempts is the number of model calls made before giving up
	DefaultRetryAttempts = 3
	// DefaultRetryBackoff is multiplied by the attempt index between calls
	DefaultRetryBackoff = 60 * time.Second
	// DefaultMaxRounds bounds the number of model rounds in one attempt
	DefaultMaxRounds = 40
	// DefaultMaxMalformedReplies is the number of consecutive unparseable replies tolerated
	DefaultMaxMalformedReplies = 3
)

// Timeouts for various operations
const (
	// DefaultAttemptTimeout is the wall-clock limit of one reproduction attempt
	DefaultAttemptTimeout = 5 * time.Minute
	// DefaultSummaryTimeout bounds the summarization call
	DefaultSummaryTimeout = 2 * time.Minute
	// Timeout2Minutes is a 2 minute timeout
	Timeout2Minutes = 2 * time.Minute
)

// Bug report parsing
const (
	// MetadataScanLines is how many report lines are searched for app/package/issue headers
	MetadataScanLines = 16
)
