package history

import (
	"math"

	"github.com/codefionn/reproschnell/internal/consts"
	"github.com/codefionn/reproschnell/internal/llm"
)

// Estimator converts text into an approximate model token count.
type Estimator interface {
	Estimate(text string) int
}

// EstimatorFunc adapts a function to the Estimator interface.
type EstimatorFunc func(text string) int

func (f EstimatorFunc) Estimate(text string) int { return f(text) }

// charBudget is implemented by estimators with a fixed characters-per-token
// ratio, which can turn a token allowance straight into a character count.
type charBudget interface {
	CharsForTokens(tokens float64) int
}

// Budgeter decides when a history has outgrown its token budget. It never
// mutates the history it inspects.
type Budgeter struct {
	Estimator   Estimator
	MaxTokens   int
	Threshold   float64
	TurnCeiling int
}

// NewBudgeter returns a budgeter using est, falling back to defaults for
// zero values.
func NewBudgeter(est Estimator, maxTokens int, threshold float64, turnCeiling int) *Budgeter {
	if est == nil {
		est = llm.RatioEstimator{}
	}
	if maxTokens <= 0 {
		maxTokens = consts.DefaultMaxContextTokens
	}
	if threshold <= 0 || threshold > 1 {
		threshold = consts.DefaultCompactionThreshold
	}
	if turnCeiling <= 0 {
		turnCeiling = consts.DefaultTurnTokenCeiling
	}
	return &Budgeter{
		Estimator:   est,
		MaxTokens:   maxTokens,
		Threshold:   threshold,
		TurnCeiling: turnCeiling,
	}
}

// Estimate returns the token estimate of text.
func (b *Budgeter) Estimate(text string) int {
	return b.Estimator.Estimate(text)
}

// TurnTokens counts both the content and the role of a turn.
func (b *Budgeter) TurnTokens(t Turn) int {
	return b.Estimator.Estimate(t.Content) + b.Estimator.Estimate(string(t.Role))
}

// Tokens sums the estimate of every turn.
func (b *Budgeter) Tokens(turns []Turn) int {
	total := 0
	for _, t := range turns {
		total += b.TurnTokens(t)
	}
	return total
}

// Limit is the token count above which compaction is due.
func (b *Budgeter) Limit() int {
	return int(math.Floor(float64(b.MaxTokens) * b.Threshold))
}

// ShouldCompact reports whether h exceeds MaxTokens*Threshold.
func (b *Budgeter) ShouldCompact(h *History) bool {
	return b.Tokens(h.Turns()) > b.Limit()
}

// ExceedsCeiling reports whether a single turn's content is over the per-turn ceiling.
func (b *Budgeter) ExceedsCeiling(t Turn) bool {
	return b.Estimator.Estimate(t.Content) > b.TurnCeiling
}

// TruncationChars is the number of bytes of content an oversized last turn
// may keep given the tokens already used by the rest of the history: the
// allowance floor((MaxTokens - Tokens(rest)) * Threshold) measured with the
// budgeter's own estimator. Never negative.
func (b *Budgeter) TruncationChars(rest []Turn, content string) int {
	remaining := float64(b.MaxTokens-b.Tokens(rest)) * b.Threshold
	if remaining <= 0 {
		return 0
	}
	if cb, ok := b.Estimator.(charBudget); ok {
		return cb.CharsForTokens(remaining)
	}

	allowance := int(math.Floor(remaining))
	if b.Estimator.Estimate(content) <= allowance {
		return len(content)
	}
	// Largest prefix the estimator still fits into the allowance.
	lo, hi := 0, len(content)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if b.Estimator.Estimate(content[:mid]) <= allowance {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
