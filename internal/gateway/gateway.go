// Package gateway sends the flattened conversation to the model with a
// bounded, linearly backed-off retry budget.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/codefionn/reproschnell/internal/consts"
	"github.com/codefionn/reproschnell/internal/history"
	"github.com/codefionn/reproschnell/internal/llm"
	"github.com/codefionn/reproschnell/internal/logger"
	"github.com/codefionn/reproschnell/internal/metrics"
)

// ProviderError is returned once every attempt has failed. It is fatal for
// the current reproduction attempt.
type ProviderError struct {
	Attempts int
	// Checkpoint is the last checkpoint written, if any.
	Checkpoint string
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("model call failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Checkpointer persists a history snapshot. checkpoint.Writer implements it.
type Checkpointer interface {
	Save(label string, turns []history.Turn) (string, error)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Config holds everything a Gateway needs. Nothing is read from globals.
type Config struct {
	Client      llm.Client
	Temperature float64
	MaxTokens   int
	// Attempts is the total number of calls, including the first.
	Attempts int
	// Backoff is the base delay; the n-th retry waits n*Backoff.
	Backoff time.Duration
	// Checkpointer and Label enable a checkpoint after each failed call.
	Checkpointer Checkpointer
	Label        string
	Attachments  []*llm.Attachment
	Sleep        Sleeper
	Now          func() time.Time
	Metrics      *metrics.Metrics
}

// Gateway is the single entry point for main-loop model calls.
type Gateway struct {
	cfg Config
}

// New validates cfg and fills in defaults.
func New(cfg Config) (*Gateway, error) {
	if cfg.Client == nil {
		return nil, errors.New("gateway requires an llm client")
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = consts.DefaultRetryAttempts
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Gateway{cfg: cfg}, nil
}

// LinearBackoff waits base, 2*base, 3*base, ... between attempts.
func LinearBackoff(base time.Duration) retry.Backoff {
	var n int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return time.Duration(n) * base, false
	})
}

// Send flattens h into one user message and returns the model's reply text.
// The caller appends the reply to the history.
func (g *Gateway) Send(ctx context.Context, h *history.History) (string, error) {
	req := &llm.CompletionRequest{
		Messages:    []*llm.Message{{Role: llm.RoleUser, Content: h.Text()}},
		Attachments: g.cfg.Attachments,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}
	model := g.cfg.Client.GetModelName()

	backoff := retry.WithMaxRetries(uint64(g.cfg.Attempts-1), LinearBackoff(g.cfg.Backoff))

	var checkpoint string
	for attempt := 1; ; attempt++ {
		start := g.cfg.Now()
		resp, err := g.cfg.Client.CompleteWithRequest(ctx, req)
		g.cfg.Metrics.ObserveModelCall(model, g.cfg.Now().Sub(start), err)
		if err == nil {
			logger.Debug("Gateway: model %s replied on attempt %d (%d chars)", model, attempt, len(resp.Content))
			return resp.Content, nil
		}

		logger.Warn("Gateway: attempt %d/%d to %s failed: %v", attempt, g.cfg.Attempts, model, err)
		if path := g.checkpoint(h); path != "" {
			checkpoint = path
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", &ProviderError{Attempts: attempt, Checkpoint: checkpoint, Err: errors.Join(ctxErr, err)}
		}

		delay, stop := backoff.Next()
		if stop {
			logger.Error("Gateway: giving up on %s after %d attempts", model, attempt)
			return "", &ProviderError{Attempts: attempt, Checkpoint: checkpoint, Err: err}
		}

		g.cfg.Metrics.IncRetry()
		logger.Info("Gateway: retrying in %s", delay)
		if sleepErr := g.cfg.Sleep(ctx, delay); sleepErr != nil {
			return "", &ProviderError{Attempts: attempt, Checkpoint: checkpoint, Err: errors.Join(sleepErr, err)}
		}
	}
}

func (g *Gateway) checkpoint(h *history.History) string {
	if g.cfg.Checkpointer == nil || g.cfg.Label == "" {
		return ""
	}
	path, err := g.cfg.Checkpointer.Save(g.cfg.Label, h.Turns())
	if err != nil {
		logger.Error("Gateway: failed to checkpoint history: %v", err)
		return ""
	}
	return path
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
