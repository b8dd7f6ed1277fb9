// Package checkpoint persists conversation histories as JSON files so an
// interrupted or failed attempt can be inspected later.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/codefionn/reproschnell/internal/history"
	"github.com/codefionn/reproschnell/internal/logger"
)

// TimeLayout is the timestamp layout used in checkpoint file names.
const TimeLayout = "2006-01-02 15-04-05"

var unsafeLabel = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Writer saves histories below Dir.
type Writer struct {
	Dir string
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewWriter creates a writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Now: time.Now}
}

// FileName returns the checkpoint file name for label at t.
func FileName(label string, t time.Time) string {
	return fmt.Sprintf("%s_chat_%s.json", sanitizeLabel(label), t.Format(TimeLayout))
}

func sanitizeLabel(label string) string {
	label = strings.ReplaceAll(strings.TrimSpace(label), string(os.PathSeparator), "-")
	label = strings.Trim(unsafeLabel.ReplaceAllString(label, "-"), "-")
	if label == "" {
		label = "attempt"
	}
	return label
}

// Save writes turns as a JSON array of {role, content} records and returns
// the file path. The file is written to a temporary name and renamed.
func (w *Writer) Save(label string, turns []history.Turn) (string, error) {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	if turns == nil {
		turns = []history.Turn{}
	}
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	finalPath := filepath.Join(w.Dir, FileName(label, now()))
	tempPath := finalPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to rename checkpoint: %w", err)
	}

	logger.Debug("Checkpoint: saved %d turns to %s", len(turns), finalPath)
	return finalPath, nil
}

// Load reads a checkpoint written by Save.
func Load(path string) ([]history.Turn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	turns, err := history.DecodeTurns(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", path, err)
	}
	return turns, nil
}
