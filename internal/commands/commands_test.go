package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONList(t *testing.T) {
	cmds := Extract(`[{"action":"tap","x":1,"y":2}]`)

	require.Len(t, cmds, 1)
	assert.Equal(t, Command{"action": "tap", "x": int64(1), "y": int64(2)}, cmds[0])
}

func TestExtractIgnoresSurroundingProse(t *testing.T) {
	reply := "Sure, here is the next step:\n[{\"action\": \"scroll\", \"direction\": \"down\"}]\nLet me know the result."

	cmds := Extract(reply)
	require.Len(t, cmds, 1)
	assert.Equal(t, "scroll", cmds[0].Action())
	assert.Equal(t, "down", cmds[0]["direction"])
}

func TestExtractPythonLiteral(t *testing.T) {
	reply := `[{'action': 'input', 'text': 'it\'s', 'clear': True, 'index': None}, {'action': 'back'}]`

	cmds := Extract(reply)
	require.Len(t, cmds, 2)
	assert.Equal(t, "it's", cmds[0]["text"])
	assert.Equal(t, true, cmds[0]["clear"])
	assert.Nil(t, cmds[0]["index"])
	assert.Equal(t, "back", cmds[1].Action())
}

func TestExtractSingleMapping(t *testing.T) {
	cmds := Extract(`I think we are done: {"action": "finish", "result": true}`)

	require.Len(t, cmds, 1)
	reproduced, ok := cmds[0].Verdict()
	require.True(t, ok)
	assert.True(t, reproduced)
}

func TestParseSentinels(t *testing.T) {
	for _, reply := range []string{"[]", "[ ]", "[{}]", "[ { } ]", "{}", "done {  }"} {
		ex := Parse(reply)
		assert.Equal(t, KindEmpty, ex.Kind, reply)
		assert.Empty(t, ex.Commands, reply)
		assert.NotNil(t, ex.Commands, reply)
	}
}

func TestParseDropsEmptyMappings(t *testing.T) {
	ex := Parse(`[{}, {"action": "back"}, {}]`)

	require.Equal(t, KindCommands, ex.Kind)
	require.Len(t, ex.Commands, 1)
	assert.Equal(t, "back", ex.Commands[0].Action())
}

func TestParseNoStructure(t *testing.T) {
	ex := Parse("I could not find the settings button.")

	assert.Equal(t, KindNone, ex.Kind)
	assert.Empty(t, Extract("I could not find the settings button."))
}

func TestParseMalformed(t *testing.T) {
	tests := map[string]string{
		"unterminated string": `[{"action": "tap}]`,
		"non-mapping element": `[1, 2]`,
		"bare words":          `[tap the button]`,
		"close before open":   `] then [`,
		"trailing garbage":    `[{"action": "tap"}] extra ] `,
	}

	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			ex := Parse(reply)
			assert.Equal(t, KindMalformed, ex.Kind)
			assert.Error(t, ex.Err)
			assert.Empty(t, Extract(reply))
		})
	}
}

func TestParsePrefersListOverMapping(t *testing.T) {
	ex := Parse(`{"note": "ignored"} [{"action": "home"}]`)

	require.Equal(t, KindCommands, ex.Kind)
	assert.Equal(t, `[{"action": "home"}]`, ex.Span)
}

func TestDecodeLiteralNumbers(t *testing.T) {
	v, err := decodeLiteral(`[1, -2, 3.5, 1e3, +4]`)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(-2), 3.5, 1000.0, int64(4)}, v)
}

func TestDecodeLiteralTuples(t *testing.T) {
	v, err := decodeLiteral(`{'coords': (100, 200), 'single': (1,), 'empty': (), 'grouped': ('x')}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"coords":  []any{int64(100), int64(200)},
		"single":  []any{int64(1)},
		"empty":   []any{},
		"grouped": "x",
	}, v)

	cmds := Extract("[{'action': 'swipe', 'from': (100, 200), 'to': (100, 800)}]")
	require.Len(t, cmds, 1)
	assert.Equal(t, []any{int64(100), int64(800)}, cmds[0]["to"])

	_, err = decodeLiteral(`(1, 2`)
	assert.Error(t, err)
}

func TestDecodeLiteralRejectsDeepNesting(t *testing.T) {
	deep := ""
	for i := 0; i < maxLiteralDepth+2; i++ {
		deep += "["
	}
	for i := 0; i < maxLiteralDepth+2; i++ {
		deep += "]"
	}

	_, err := decodeLiteral(deep)
	var syntaxErr *SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestCommandEqualityAndFingerprint(t *testing.T) {
	a := Command{"action": "tap", "x": int64(1)}
	b := Command{"x": int64(1), "action": "tap"}
	c := Command{"action": "tap", "x": int64(2)}

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.False(t, a.Equal(c))
	assert.Equal(t, `{"action":"tap","x":1}`, a.String())
}

func TestCommandEqualityComparesNumbersByValue(t *testing.T) {
	whole := Extract("[{'action': 'tap', 'x': 1, 'path': [2, 3]}]")[0]
	asFloat := Extract("[{'action': 'tap', 'x': 1.0, 'path': [2.0, 3]}]")[0]
	plain := Command{"action": "tap", "x": 1, "path": []any{2, 3}}

	assert.True(t, whole.Equal(asFloat))
	assert.True(t, whole.Equal(plain))
	assert.Equal(t, whole.Fingerprint(), asFloat.Fingerprint())
	assert.Equal(t, whole.Fingerprint(), plain.Fingerprint())

	half := Command{"action": "tap", "x": 1.5, "path": []any{2, 3}}
	assert.False(t, whole.Equal(half))
	assert.NotEqual(t, whole.Fingerprint(), half.Fingerprint())
}

func TestFindVerdict(t *testing.T) {
	_, ok := FindVerdict([]Command{{"action": "tap"}})
	assert.False(t, ok)

	reproduced, ok := FindVerdict([]Command{{"action": "tap"}, {"result": false}})
	require.True(t, ok)
	assert.False(t, reproduced)
}
