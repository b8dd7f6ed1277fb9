// Package commands turns free-text model replies into device commands.
package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/codefionn/reproschnell/internal/logger"
)

// Kind classifies the outcome of parsing a reply.
type Kind int

const (
	// KindCommands means at least one command was decoded.
	KindCommands Kind = iota
	// KindEmpty means the model explicitly answered with an empty list or mapping.
	KindEmpty
	// KindNone means the reply contained no bracketed structure at all.
	KindNone
	// KindMalformed means a bracketed span was found but could not be decoded.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindCommands:
		return "commands"
	case KindEmpty:
		return "empty"
	case KindNone:
		return "none"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// ErrUnexpectedShape is wrapped by Extraction.Err when the decoded literal is
// not a mapping or a list of mappings.
var ErrUnexpectedShape = errors.New("unexpected literal shape")

// Extraction is the detailed result of Parse.
type Extraction struct {
	Commands []Command
	Kind     Kind
	// Span is the bracketed substring that was decoded.
	Span string
	// Err explains a KindMalformed result.
	Err error
}

// Parse locates the outermost list (or, failing that, mapping) in reply and
// decodes it. Text around the brackets is ignored.
func Parse(reply string) Extraction {
	if span, ok := outerSpan(reply, '[', ']'); ok {
		return parseList(span)
	}
	if span, ok := outerSpan(reply, '{', '}'); ok {
		return parseMapping(span)
	}
	return Extraction{Kind: KindNone}
}

// Extract returns the commands in reply, or an empty slice when there are
// none. It never fails: malformed input is logged and yields no commands.
func Extract(reply string) []Command {
	ex := Parse(reply)
	if ex.Kind == KindMalformed {
		logger.Warn("Unable to convert message to command list: %v", ex.Err)
	}
	if ex.Commands == nil {
		return []Command{}
	}
	return ex.Commands
}

// outerSpan returns reply from the first open to the last close delimiter.
// Both delimiters must be present; a close before the open yields an empty
// span which decodes as malformed.
func outerSpan(reply string, open, close byte) (string, bool) {
	start := strings.IndexByte(reply, open)
	end := strings.LastIndexByte(reply, close)
	if start < 0 || end < 0 {
		return "", false
	}
	if end < start {
		return "", true
	}
	return reply[start : end+1], true
}

func isSentinel(span string, sentinels ...string) bool {
	compact := strings.Join(strings.Fields(span), "")
	for _, s := range sentinels {
		if compact == s {
			return true
		}
	}
	return false
}

func parseList(span string) Extraction {
	if isSentinel(span, "[]", "[{}]") {
		return Extraction{Kind: KindEmpty, Span: span, Commands: []Command{}}
	}

	v, err := decodeLiteral(span)
	if err != nil {
		return malformed(span, err)
	}
	items, ok := v.([]any)
	if !ok {
		return malformed(span, fmt.Errorf("%w: want list, got %T", ErrUnexpectedShape, v))
	}

	cmds := make([]Command, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return malformed(span, fmt.Errorf("%w: element %d is %T, want mapping", ErrUnexpectedShape, i, item))
		}
		if len(m) == 0 {
			continue
		}
		cmds = append(cmds, Command(m))
	}

	if len(cmds) == 0 {
		return Extraction{Kind: KindEmpty, Span: span, Commands: cmds}
	}
	return Extraction{Kind: KindCommands, Span: span, Commands: cmds}
}

func parseMapping(span string) Extraction {
	if isSentinel(span, "{}") {
		return Extraction{Kind: KindEmpty, Span: span, Commands: []Command{}}
	}

	v, err := decodeLiteral(span)
	if err != nil {
		return malformed(span, err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return malformed(span, fmt.Errorf("%w: want mapping, got %T", ErrUnexpectedShape, v))
	}
	if len(m) == 0 {
		return Extraction{Kind: KindEmpty, Span: span, Commands: []Command{}}
	}
	return Extraction{Kind: KindCommands, Span: span, Commands: []Command{Command(m)}}
}

func malformed(span string, err error) Extraction {
	return Extraction{Kind: KindMalformed, Span: span, Err: err}
}
