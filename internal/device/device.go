// Package device hands extracted commands to the device under test.
package device

import (
	"context"
	"sync"

	"github.com/codefionn/reproschnell/internal/commands"
	"github.com/codefionn/reproschnell/internal/logger"
)

// DefaultObservation is what DryRunExecutor reports after each command.
const DefaultObservation = "Command executed. The screen did not change."

// Executor performs one command and describes the resulting device state.
type Executor interface {
	Execute(ctx context.Context, cmd commands.Command) (string, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, cmd commands.Command) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, cmd commands.Command) (string, error) {
	return f(ctx, cmd)
}

// DryRunExecutor logs commands instead of touching a device.
type DryRunExecutor struct {
	Observation string

	mu       sync.Mutex
	executed []commands.Command
}

// Execute records cmd and returns the canned observation.
func (d *DryRunExecutor) Execute(ctx context.Context, cmd commands.Command) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.Lock()
	d.executed = append(d.executed, cmd)
	n := len(d.executed)
	d.mu.Unlock()

	logger.Info("*Command %d: %s", n, cmd)
	if d.Observation == "" {
		return DefaultObservation, nil
	}
	return d.Observation, nil
}

// Executed returns the commands seen so far.
func (d *DryRunExecutor) Executed() []commands.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]commands.Command, len(d.executed))
	copy(out, d.executed)
	return out
}
