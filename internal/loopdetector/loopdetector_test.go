package loopdetector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/reproschnell/internal/commands"
)

var (
	tap  = commands.Command{"action": "tap", "x": int64(10), "y": int64(20)}
	back = commands.Command{"action": "back"}
	home = commands.Command{"action": "home"}
)

func TestAddRejectsEmptyBatch(t *testing.T) {
	log := New()

	_, err := log.Add(nil)
	assert.ErrorIs(t, err, ErrNoCommands)

	_, err = log.Add([]commands.Command{})
	assert.ErrorIs(t, err, ErrNoCommands)
	assert.Equal(t, 0, log.Len())
}

func TestRepeatWithIntegralFloat(t *testing.T) {
	log := New()

	rep, err := log.Add(commands.Extract("[{'action': 'tap', 'x': 1}]"))
	require.NoError(t, err)
	assert.Nil(t, rep)

	rep, err = log.Add(commands.Extract("[{'action': 'tap', 'x': 1.0}]"))
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, 1, rep.Length)
}

func TestSingleCommandRepeatAcrossBatches(t *testing.T) {
	log := New()

	rep, err := log.Add([]commands.Command{tap})
	require.NoError(t, err)
	assert.Nil(t, rep)

	rep, err = log.Add([]commands.Command{{"action": "tap", "y": int64(20), "x": int64(10)}})
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, 1, rep.Length)
	assert.Equal(t, []commands.Command{tap}, rep.Block)
}

func TestTwoCommandBlockRepeat(t *testing.T) {
	log := New()

	rep, err := log.Add([]commands.Command{tap, back, tap, back})
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, 2, rep.Length)
	assert.Equal(t, []commands.Command{tap, back}, rep.Block)
	assert.Contains(t, rep.Error(), "length 2")
}

func TestRepeatNotAtTailIsIgnored(t *testing.T) {
	log := New()

	// tap, tap sits inside the batch but the tail is tap, back.
	rep, err := log.Add([]commands.Command{tap, tap, back})
	require.NoError(t, err)
	assert.Nil(t, rep)
	assert.Equal(t, 3, log.Len())
}

func TestSmallestBlockWins(t *testing.T) {
	log := New()

	_, err := log.Add([]commands.Command{home, back, home, back})
	require.NoError(t, err)

	rep, err := log.Add([]commands.Command{back})
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, 1, rep.Length)
}

func TestDistinctCommandsNoSignal(t *testing.T) {
	log := New()

	for _, c := range []commands.Command{tap, back, home, {"action": "scroll"}} {
		rep, err := log.Add([]commands.Command{c})
		require.NoError(t, err)
		assert.Nil(t, rep)
	}
	assert.Len(t, log.Commands(), 4)
}
