package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/reproschnell/internal/history"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
}

func TestSaveWritesNamedJSONFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chat_history")
	w := &Writer{Dir: dir, Now: fixedClock}

	turns := []history.Turn{
		{Role: history.RoleSystem, Content: "rules"},
		{Role: history.RoleUser, Content: "Bug Report: crash"},
	}
	path, err := w.Save("com.example.app", turns)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "com.example.app_chat_2024-03-09 14-05-07.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw []map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []map[string]string{
		{"role": "system", "content": "rules"},
		{"role": "user", "content": "Bug Report: crash"},
	}, raw)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	w := &Writer{Dir: t.TempDir(), Now: fixedClock}
	turns := []history.Turn{{Role: history.RoleAssistant, Content: `[{"action":"back"}]`}}

	path, err := w.Save("pkg", turns)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, turns, loaded)
}

func TestSaveSanitizesLabel(t *testing.T) {
	assert.Equal(t, "attempt_chat_2024-03-09 14-05-07.json", FileName(" / ", fixedClock()))
	assert.Equal(t, "a-b_chat_2024-03-09 14-05-07.json", FileName("a/b", fixedClock()))
}

func TestSaveEmptyHistory(t *testing.T) {
	w := &Writer{Dir: t.TempDir(), Now: fixedClock}

	path, err := w.Save("pkg", nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestLoadRejectsUnknownRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"role":"tool","content":"x"}]`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
