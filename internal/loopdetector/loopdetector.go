// Package loopdetector watches the command log of an attempt for an
// immediately repeated block at its tail.
package loopdetector

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/codefionn/reproschnell/internal/commands"
)

// ErrNoCommands is returned by Add when the batch is empty. The model has
// nothing left to try, so the caller should end the attempt.
var ErrNoCommands = errors.New("no commands to append")

// RepeatedSequence is the evidence for a stuck loop: Block appeared twice
// in a row at the end of the log.
type RepeatedSequence struct {
	Length int
	Block  []commands.Command
}

func (r *RepeatedSequence) Error() string {
	parts := make([]string, len(r.Block))
	for i, c := range r.Block {
		parts[i] = c.String()
	}
	return fmt.Sprintf("command block of length %d repeated: [%s]", r.Length, strings.Join(parts, ", "))
}

// Log is the append-only command log of one attempt.
type Log struct {
	mu       sync.Mutex
	commands []commands.Command
	prints   []uint64
}

// New creates an empty log.
func New() *Log {
	return &Log{}
}

// Add appends cmds and checks the tail for a repeated block. The smallest
// repeating block wins. Entries are never removed, so a pattern spanning
// many batches is still visible.
func (l *Log) Add(cmds []commands.Command) (*RepeatedSequence, error) {
	if len(cmds) == 0 {
		return nil, ErrNoCommands
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, c := range cmds {
		l.commands = append(l.commands, c)
		l.prints = append(l.prints, c.Fingerprint())
	}
	return l.detect(), nil
}

// detect compares log[L-2k:L-k] with log[L-k:L] for k = 1..L/2.
func (l *Log) detect() *RepeatedSequence {
	n := len(l.commands)
	for k := 1; k <= n/2; k++ {
		if l.blocksEqual(n-2*k, n-k, k) {
			block := make([]commands.Command, k)
			copy(block, l.commands[n-k:])
			return &RepeatedSequence{Length: k, Block: block}
		}
	}
	return nil
}

func (l *Log) blocksEqual(a, b, k int) bool {
	for i := 0; i < k; i++ {
		if l.prints[a+i] != l.prints[b+i] {
			return false
		}
		if !l.commands[a+i].Equal(l.commands[b+i]) {
			return false
		}
	}
	return true
}

// Len returns the number of logged commands.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.commands)
}

// Commands returns a copy of the log.
func (l *Log) Commands() []commands.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]commands.Command, len(l.commands))
	copy(out, l.commands)
	return out
}
