// Package attempt drives one bug reproduction: prompt the model, extract
// commands, execute them and feed the observations back until a verdict.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codefionn/reproschnell/internal/bugreport"
	"github.com/codefionn/reproschnell/internal/commands"
	"github.com/codefionn/reproschnell/internal/consts"
	"github.com/codefionn/reproschnell/internal/conversation"
	"github.com/codefionn/reproschnell/internal/device"
	"github.com/codefionn/reproschnell/internal/gateway"
	"github.com/codefionn/reproschnell/internal/history"
	"github.com/codefionn/reproschnell/internal/llm"
	"github.com/codefionn/reproschnell/internal/logger"
	"github.com/codefionn/reproschnell/internal/loopdetector"
	"github.com/codefionn/reproschnell/internal/metrics"
	"github.com/codefionn/reproschnell/internal/summarizer"
)

// CorrectivePrompt is sent after a reply that held no usable command list.
const CorrectivePrompt = "Your last reply did not contain a command list I could read. " +
	"Reply with a list of commands such as [{\"action\": \"tap\", \"x\": 100, \"y\": 200}], " +
	"or [{\"result\": true}] / [{\"result\": false}] once you know whether the bug reproduces."

// Options configures a Runner.
type Options struct {
	Client   llm.Client
	Executor device.Executor
	Preamble []history.Turn
	Budget   *history.Budgeter
	// Checkpointer receives the final history and the gateway's failure snapshots.
	Checkpointer gateway.Checkpointer
	Metrics      *metrics.Metrics

	Temperature         float64
	MaxTokens           int
	RetryAttempts       int
	RetryBackoff        time.Duration
	SummaryTimeout      time.Duration
	AttemptTimeout      time.Duration
	MaxRounds           int
	MaxMalformedReplies int

	// Sleep and Now are injectable for tests.
	Sleep gateway.Sleeper
	Now   func() time.Time
	NewID func() string
}

// Runner executes reproduction attempts. It holds no per-attempt state.
type Runner struct {
	opts Options
}

// NewRunner validates opts and fills in defaults.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Client == nil {
		return nil, errors.New("attempt runner requires an llm client")
	}
	if opts.Executor == nil {
		return nil, errors.New("attempt runner requires a device executor")
	}
	if len(opts.Preamble) == 0 {
		return nil, history.ErrPreambleEmpty
	}
	if opts.Budget == nil {
		opts.Budget = history.NewBudgeter(nil, consts.DefaultMaxContextTokens, consts.DefaultCompactionThreshold, consts.DefaultTurnTokenCeiling)
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = consts.DefaultRetryAttempts
	}
	if opts.SummaryTimeout <= 0 {
		opts.SummaryTimeout = consts.DefaultSummaryTimeout
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = consts.DefaultMaxRounds
	}
	if opts.MaxMalformedReplies <= 0 {
		opts.MaxMalformedReplies = consts.DefaultMaxMalformedReplies
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Runner{opts: opts}, nil
}

// Run performs one attempt for report. The returned Outcome is always set;
// the error is non-nil only when the attempt could not be started.
func (r *Runner) Run(ctx context.Context, report *bugreport.Report) (*Outcome, error) {
	out := &Outcome{
		ID:        r.opts.NewID(),
		StartedAt: r.opts.Now(),
		Report:    report,
		Model:     r.opts.Client.GetModelName(),
	}

	attachments, err := bugreport.LoadImages(report.Images)
	if err != nil {
		out.Status = StatusError
		out.FailureReason = err.Error()
		return out, fmt.Errorf("failed to load bug report images: %w", err)
	}

	if r.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.AttemptTimeout)
		defer cancel()
	}

	label := report.Label()
	gw, err := gateway.New(gateway.Config{
		Client:       r.opts.Client,
		Temperature:  r.opts.Temperature,
		MaxTokens:    r.opts.MaxTokens,
		Attempts:     r.opts.RetryAttempts,
		Backoff:      r.opts.RetryBackoff,
		Checkpointer: r.opts.Checkpointer,
		Label:        label,
		Attachments:  attachments,
		Sleep:        r.opts.Sleep,
		Now:          r.opts.Now,
		Metrics:      r.opts.Metrics,
	})
	if err != nil {
		out.Status = StatusError
		out.FailureReason = err.Error()
		return out, err
	}

	compactor := summarizer.New(r.opts.Client, r.opts.Budget, r.opts.Preamble)
	compactor.Temperature = r.opts.Temperature
	compactor.Timeout = r.opts.SummaryTimeout
	compactor.Now = r.opts.Now

	conv := conversation.New(r.opts.Preamble, r.opts.Budget, compactor, gw)
	conv.Metrics = r.opts.Metrics

	logger.Info("Attempt %s: reproducing %s with %s (%d images)", out.ID, label, out.Model, len(attachments))
	r.loop(ctx, conv, report.Prompt(), out)

	out.ModelCalls = conv.Calls()
	out.Compactions = conv.Compactions()
	out.Duration = r.opts.Now().Sub(out.StartedAt)
	if r.opts.Checkpointer != nil {
		path, err := r.opts.Checkpointer.Save(label, conv.History.Turns())
		if err != nil {
			logger.Error("Attempt %s: failed to save chat history: %v", out.ID, err)
		} else {
			out.CheckpointPath = path
			logger.Info("Saved to: %s", path)
		}
	}

	r.opts.Metrics.ObserveAttempt(string(out.Status), out.Duration)
	logger.Info("Attempt %s: %s after %d model calls and %d commands (%s)", out.ID, out.Status, out.ModelCalls, out.CommandCount, out.Duration)
	return out, nil
}

func (r *Runner) loop(ctx context.Context, conv *conversation.Conversation, prompt string, out *Outcome) {
	seen := loopdetector.New()
	malformed := 0

	for round := 1; ; round++ {
		if round > r.opts.MaxRounds {
			out.Status = StatusCompleted
			out.FailureReason = fmt.Sprintf("Reached the limit of %d model rounds", r.opts.MaxRounds)
			return
		}

		reply, err := conv.Exchange(ctx, prompt)
		if err != nil {
			r.fail(ctx, out, err)
			return
		}
		logger.Info("*Model message: %s", reply)

		ex := commands.Parse(reply)
		switch ex.Kind {
		case commands.KindEmpty:
			out.Status = StatusCompleted
			out.FailureReason = ReasonNoMoreCommands
			return
		case commands.KindNone, commands.KindMalformed:
			malformed++
			r.opts.Metrics.IncUnusableReply(ex.Kind.String())
			if ex.Err != nil {
				logger.Warn("Unable to convert message to command list: %v", ex.Err)
			}
			if malformed >= r.opts.MaxMalformedReplies {
				out.Status = StatusCompleted
				out.FailureReason = fmt.Sprintf("%d consecutive replies without a command list", malformed)
				return
			}
			prompt = CorrectivePrompt
			continue
		}
		malformed = 0

		if reproduced, ok := commands.FindVerdict(ex.Commands); ok {
			out.Reproduced = reproduced
			if reproduced {
				out.Status = StatusSuccess
			} else {
				out.Status = StatusCompleted
				out.FailureReason = ReasonNotReproduced
			}
			return
		}

		repeated, err := seen.Add(ex.Commands)
		if err != nil {
			// Parse never yields KindCommands without commands.
			r.fail(ctx, out, err)
			return
		}
		if repeated != nil {
			r.opts.Metrics.IncLoopDetection()
			logger.Warn("Attempt %s: %v", out.ID, repeated)
			out.Status = StatusStuckInLoop
			out.FailureReason = repeated.Error()
			return
		}

		observation, err := r.execute(ctx, ex.Commands, out)
		if err != nil {
			r.fail(ctx, out, err)
			return
		}
		prompt = observation
	}
}

// execute runs cmds in order and joins their observations into the next
// prompt. Command failures are reported to the model, not to the caller.
func (r *Runner) execute(ctx context.Context, cmds []commands.Command, out *Outcome) (string, error) {
	var sb strings.Builder
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out.CommandCount++
		obs, err := r.opts.Executor.Execute(ctx, cmd)
		switch {
		case err != nil && ctx.Err() != nil:
			return "", errors.Join(ctx.Err(), err)
		case err != nil:
			fmt.Fprintf(&sb, "Command %s failed: %v\n", cmd, err)
		default:
			fmt.Fprintf(&sb, "%s\n", obs)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// fail classifies err into a terminal status.
func (r *Runner) fail(ctx context.Context, out *Outcome, err error) {
	out.FailureReason = err.Error()

	var providerErr *gateway.ProviderError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		out.Status = StatusTimeout
		out.FailureReason = fmt.Sprintf("Attempt exceeded %s", r.opts.AttemptTimeout)
	case errors.As(err, &providerErr):
		out.Status = StatusProviderError
		out.CheckpointPath = providerErr.Checkpoint
	case errors.Is(err, summarizer.ErrSummaryFailed):
		out.Status = StatusProviderError
	default:
		out.Status = StatusError
	}
	logger.Error("Attempt %s: %s: %v", out.ID, out.Status, err)
}
