// Package conversation composes the history, compaction and gateway into
// one prompt/reply exchange.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/codefionn/reproschnell/internal/history"
	"github.com/codefionn/reproschnell/internal/logger"
	"github.com/codefionn/reproschnell/internal/metrics"
	"github.com/codefionn/reproschnell/internal/summarizer"
)

// Sender performs the model call. *gateway.Gateway implements it.
type Sender interface {
	Send(ctx context.Context, h *history.History) (string, error)
}

// Compacter shrinks an oversized history. *summarizer.Compactor implements it.
type Compacter interface {
	Compact(ctx context.Context, h *history.History) (*summarizer.Result, error)
}

// Conversation owns the history of one attempt.
type Conversation struct {
	History   *history.History
	Budget    *history.Budgeter
	Compacter Compacter
	Sender    Sender
	Metrics   *metrics.Metrics

	calls       int
	compactions int
}

// New creates a conversation seeded with preamble.
func New(preamble []history.Turn, budget *history.Budgeter, compacter Compacter, sender Sender) *Conversation {
	return &Conversation{
		History:   history.New(preamble),
		Budget:    budget,
		Compacter: compacter,
		Sender:    sender,
	}
}

// Exchange compacts the history if it is over budget, appends prompt as a
// user turn, sends the history and appends the reply as an assistant turn.
func (c *Conversation) Exchange(ctx context.Context, prompt string) (string, error) {
	if err := c.compactIfNeeded(ctx); err != nil {
		return "", err
	}

	c.History.Append(history.RoleUser, prompt)

	reply, err := c.Sender.Send(ctx, c.History)
	c.calls++
	if err != nil {
		return "", err
	}

	c.History.Append(history.RoleAssistant, reply)
	return reply, nil
}

func (c *Conversation) compactIfNeeded(ctx context.Context) error {
	if c.Budget == nil || c.Compacter == nil || !c.Budget.ShouldCompact(c.History) {
		return nil
	}

	logger.Info("Conversation: history at %d tokens exceeds limit %d, compacting", c.Budget.Tokens(c.History.Turns()), c.Budget.Limit())
	res, err := c.Compacter.Compact(ctx, c.History)
	switch {
	case errors.Is(err, summarizer.ErrCompactionIneffective):
		c.Metrics.IncCompaction("ineffective")
		logger.Warn("Conversation: %v, continuing without compaction", err)
		return nil
	case err != nil:
		c.Metrics.IncCompaction("failed")
		return fmt.Errorf("failed to compact history: %w", err)
	}

	c.compactions++
	c.Metrics.IncCompaction(compactionLabel(res))
	return nil
}

func compactionLabel(res *summarizer.Result) string {
	switch {
	case res.SummaryDropped:
		return "dropped"
	case res.SummaryShortened:
		return "shortened"
	case res.TruncatedLastTurn:
		return "truncated"
	default:
		return "ok"
	}
}

// Calls returns the number of model calls made through Exchange.
func (c *Conversation) Calls() int {
	return c.calls
}

// Compactions returns the number of successful compactions.
func (c *Conversation) Compactions() int {
	return c.compactions
}
