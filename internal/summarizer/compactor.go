// Package summarizer compacts a conversation history that has grown past its
// token budget into the original preamble plus one model-written summary.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/codefionn/reproschnell/internal/consts"
	"github.com/codefionn/reproschnell/internal/history"
	"github.com/codefionn/reproschnell/internal/llm"
	"github.com/codefionn/reproschnell/internal/logger"
)

// Instruction is appended as a user turn before the summary call. Standing
// rules must come back verbatim.
const Instruction = "The conversation is about to exceed the limit, before we continue the reproduction process. " +
	"Can you summarize the above conversation. Note that You shouldn't summarize the rule and keep the rules " +
	"as original since the rules are the standards."

var (
	// ErrCompactionIneffective means even the bare preamble is not smaller
	// than the history being compacted. The history is left untouched.
	ErrCompactionIneffective = errors.New("compaction would not shrink the history")
	// ErrSummaryFailed wraps a failed summary model call.
	ErrSummaryFailed = errors.New("summary call failed")
)

// Result describes one compaction.
type Result struct {
	Summary      string
	TokensBefore int
	TokensAfter  int
	// TruncatedLastTurn is set when the final turn was over the per-turn
	// ceiling and was cut before summarizing.
	TruncatedLastTurn bool
	// BudgetExceededAfterTruncation is set when the cut turn is still over
	// the ceiling. The cut content is used anyway.
	BudgetExceededAfterTruncation bool
	// SummaryShortened is set when the summary had to be cut so the new
	// history is smaller than the old one.
	SummaryShortened bool
	// SummaryDropped is set when no summary fit at all.
	SummaryDropped bool
	Duration       time.Duration
}

// Compactor replaces an oversized history with preamble + summary.
type Compactor struct {
	Client      llm.Client
	Budget      *history.Budgeter
	Preamble    []history.Turn
	Temperature float64
	Timeout     time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// New creates a Compactor with default temperature and timeout.
func New(client llm.Client, budget *history.Budgeter, preamble []history.Turn) *Compactor {
	p := make([]history.Turn, len(preamble))
	copy(p, preamble)
	return &Compactor{
		Client:      client,
		Budget:      budget,
		Preamble:    p,
		Temperature: consts.DefaultTemperature,
		Timeout:     consts.DefaultSummaryTimeout,
		Now:         time.Now,
	}
}

// Compact summarizes h in place. On success the history is the preamble
// followed by at most one user turn holding the summary, and its token
// estimate is strictly below the estimate before the call.
func (c *Compactor) Compact(ctx context.Context, h *history.History) (*Result, error) {
	if c.Client == nil {
		return nil, fmt.Errorf("summarization client not configured")
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	start := now()

	res := &Result{TokensBefore: c.Budget.Tokens(h.Turns())}
	preambleTokens := c.Budget.Tokens(c.Preamble)
	if preambleTokens >= res.TokensBefore {
		return nil, fmt.Errorf("%w: preamble %d tokens, history %d tokens", ErrCompactionIneffective, preambleTokens, res.TokensBefore)
	}

	// h is only replaced once the summary is in hand; a failed call leaves it as it was.
	working := c.truncateLastTurn(h.Turns(), res)
	working = append(working, history.Turn{Role: history.RoleUser, Content: Instruction})
	summary, err := c.summarize(ctx, history.Flatten(working))
	if err != nil {
		return nil, err
	}

	summary = c.fitSummary(summary, res.TokensBefore-preambleTokens-1, res)

	turns := make([]history.Turn, 0, len(c.Preamble)+1)
	turns = append(turns, c.Preamble...)
	if !res.SummaryDropped {
		turns = append(turns, history.Turn{Role: history.RoleUser, Content: summary})
	}
	h.Reset(turns)

	res.Summary = summary
	res.TokensAfter = c.Budget.Tokens(turns)
	res.Duration = now().Sub(start)

	logger.Info("Compaction: %d -> %d tokens in %s (truncated=%t shortened=%t dropped=%t)",
		res.TokensBefore, res.TokensAfter, res.Duration, res.TruncatedLastTurn, res.SummaryShortened, res.SummaryDropped)
	return res, nil
}

// truncateLastTurn cuts the final turn of turns when it alone is over the
// ceiling. The leading content is kept and re-added as a user turn. turns
// is a working copy; the history itself is not touched.
func (c *Compactor) truncateLastTurn(turns []history.Turn, res *Result) []history.Turn {
	if len(turns) == 0 {
		return turns
	}
	last := turns[len(turns)-1]
	if !c.Budget.ExceedsCeiling(last) {
		return turns
	}

	rest := turns[:len(turns)-1]
	cut, _ := truncateStringToBytes(last.Content, c.Budget.TruncationChars(rest, last.Content))
	truncated := history.Turn{Role: history.RoleUser, Content: cut}
	res.TruncatedLastTurn = true

	if c.Budget.ExceedsCeiling(truncated) {
		res.BudgetExceededAfterTruncation = true
		logger.Warn("Compaction: last %s turn still over %d tokens after truncation to %d chars", last.Role, c.Budget.TurnCeiling, len(cut))
	} else {
		logger.Debug("Compaction: truncated last %s turn from %d to %d chars", last.Role, len(last.Content), len(cut))
	}
	return append(rest, truncated)
}

func (c *Compactor) summarize(ctx context.Context, text string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	resp, err := c.Client.CompleteWithRequest(ctx, &llm.CompletionRequest{
		Messages:    []*llm.Message{{Role: llm.RoleUser, Content: text}},
		Temperature: c.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSummaryFailed, err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// fitSummary makes sure the summary turn costs at most room tokens.
func (c *Compactor) fitSummary(summary string, room int, res *Result) string {
	turnTokens := func(s string) int {
		return c.Budget.TurnTokens(history.Turn{Role: history.RoleUser, Content: s})
	}
	if turnTokens(summary) <= room {
		return summary
	}

	overhead := turnTokens("")
	if room <= overhead {
		res.SummaryDropped = true
		logger.Warn("Compaction: no room for a summary, keeping the preamble only")
		return ""
	}

	// Largest prefix that fits.
	lo, hi := 0, len(summary)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		prefix, _ := truncateStringToBytes(summary, mid)
		if turnTokens(prefix) <= room {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	cut, _ := truncateStringToBytes(summary, lo)
	if cut == "" {
		res.SummaryDropped = true
		return ""
	}

	res.SummaryShortened = true
	logger.Warn("Compaction: summary cut from %d to %d chars to shrink the history", len(summary), len(cut))
	return cut
}

// truncateStringToBytes trims a string to the specified byte limit without breaking characters
func truncateStringToBytes(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}
	if limit <= 0 {
		return "", true
	}

	end := limit
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end], true
}
