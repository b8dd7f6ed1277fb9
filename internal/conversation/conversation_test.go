package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/reproschnell/internal/history"
	"github.com/codefionn/reproschnell/internal/summarizer"
)

type echoSender struct {
	seen []int
	err  error
}

func (s *echoSender) Send(ctx context.Context, h *history.History) (string, error) {
	s.seen = append(s.seen, h.Len())
	if s.err != nil {
		return "", s.err
	}
	last, _ := h.Last()
	return "reply to " + last.Content, nil
}

type stubCompacter struct {
	calls int
	err   error
}

func (s *stubCompacter) Compact(ctx context.Context, h *history.History) (*summarizer.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	h.Reset([]history.Turn{{Role: history.RoleSystem, Content: "rules"}, {Role: history.RoleUser, Content: "summary"}})
	return &summarizer.Result{}, nil
}

var preamble = []history.Turn{{Role: history.RoleSystem, Content: "rules"}}

func TestExchangeKeepsTurnOrder(t *testing.T) {
	sender := &echoSender{}
	c := New(preamble, history.NewBudgeter(nil, 0, 0, 0), &stubCompacter{}, sender)

	for i := 1; i <= 3; i++ {
		reply, err := c.Exchange(context.Background(), fmt.Sprintf("P%d", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("reply to P%d", i), reply)
	}

	want := []history.Turn{
		{Role: history.RoleSystem, Content: "rules"},
		{Role: history.RoleUser, Content: "P1"},
		{Role: history.RoleAssistant, Content: "reply to P1"},
		{Role: history.RoleUser, Content: "P2"},
		{Role: history.RoleAssistant, Content: "reply to P2"},
		{Role: history.RoleUser, Content: "P3"},
		{Role: history.RoleAssistant, Content: "reply to P3"},
	}
	assert.Equal(t, want, c.History.Turns())
	assert.Equal(t, []int{2, 4, 6}, sender.seen)
	assert.Equal(t, 3, c.Calls())
	assert.Equal(t, 0, c.Compactions())
}

func TestExchangeCompactsBeforeAppendingPrompt(t *testing.T) {
	compacter := &stubCompacter{}
	c := New(preamble, history.NewBudgeter(nil, 20, 0.75, 0), compacter, &echoSender{})
	c.History.Append(history.RoleUser, strings.Repeat("x", 100))

	_, err := c.Exchange(context.Background(), "next")
	require.NoError(t, err)

	assert.Equal(t, 1, compacter.calls)
	assert.Equal(t, 1, c.Compactions())
	turns := c.History.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, "summary", turns[1].Content)
	assert.Equal(t, "next", turns[2].Content)
	assert.Equal(t, "reply to next", turns[3].Content)
}

func TestExchangeToleratesIneffectiveCompaction(t *testing.T) {
	compacter := &stubCompacter{err: summarizer.ErrCompactionIneffective}
	c := New(preamble, history.NewBudgeter(nil, 20, 0.75, 0), compacter, &echoSender{})
	c.History.Append(history.RoleUser, strings.Repeat("x", 100))

	_, err := c.Exchange(context.Background(), "next")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Compactions())
}

func TestExchangePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	c := New(preamble, nil, nil, &echoSender{err: boom})
	_, err := c.Exchange(context.Background(), "P1")
	assert.ErrorIs(t, err, boom)
	// The prompt stays so a checkpoint shows what was asked.
	last, _ := c.History.Last()
	assert.Equal(t, "P1", last.Content)

	compacter := &stubCompacter{err: summarizer.ErrSummaryFailed}
	c = New(preamble, history.NewBudgeter(nil, 20, 0.75, 0), compacter, &echoSender{})
	c.History.Append(history.RoleUser, strings.Repeat("x", 100))
	_, err = c.Exchange(context.Background(), "P1")
	assert.ErrorIs(t, err, summarizer.ErrSummaryFailed)
}
