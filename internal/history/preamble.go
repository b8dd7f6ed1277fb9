package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrPreambleEmpty is returned when a preamble file holds no turns.
var ErrPreambleEmpty = errors.New("preamble contains no turns")

type rawTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LoadPreamble reads the instruction preamble, a JSON list of
// {"role", "content"} records, from path.
func LoadPreamble(path string) ([]Turn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preamble: %w", err)
	}
	turns, err := DecodeTurns(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse preamble %s: %w", path, err)
	}
	if len(turns) == 0 {
		return nil, ErrPreambleEmpty
	}
	return turns, nil
}

// DecodeTurns decodes a JSON list of role/content records, validating roles.
func DecodeTurns(data []byte) ([]Turn, error) {
	var raw []rawTurn
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	turns := make([]Turn, 0, len(raw))
	for i, r := range raw {
		role, err := ParseRole(r.Role)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}
		turns = append(turns, Turn{Role: role, Content: r.Content})
	}
	return turns, nil
}
