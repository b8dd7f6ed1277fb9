package commands

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// VerdictField is the key a model uses to report whether the bug reproduced.
const VerdictField = "result"

// Command is one device action decoded from a model reply. Its fields are
// opaque to this package beyond equality.
type Command map[string]any

// Action returns the "action" field when it is a string.
func (c Command) Action() string {
	s, _ := c["action"].(string)
	return s
}

// Verdict reports the boolean VerdictField, if the command carries one.
func (c Command) Verdict() (reproduced bool, ok bool) {
	v, ok := c[VerdictField].(bool)
	return v, ok
}

// Equal compares the canonical forms of two commands, so numbers compare by
// value: 1 and 1.0 are equal.
func (c Command) Equal(other Command) bool {
	return reflect.DeepEqual(c.canonical(), other.canonical())
}

// Fingerprint hashes the JSON of the canonical form. Equal commands have
// equal fingerprints; the converse needs Equal to confirm.
func (c Command) Fingerprint() uint64 {
	canon := c.canonical()
	data, err := json.Marshal(canon)
	if err != nil {
		return xxhash.Sum64String(fmt.Sprintf("%#v", canon))
	}
	return xxhash.Sum64(data)
}

func (c Command) canonical() map[string]any {
	return canonicalValue(map[string]any(c)).(map[string]any)
}

// canonicalValue rewrites every integral number as int64 and every other
// number as float64, recursing into mappings and lists.
func canonicalValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = canonicalValue(e)
		}
		return out
	case Command:
		return canonicalValue(map[string]any(x))
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = canonicalValue(e)
		}
		return out
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case float32:
		return canonicalFloat(float64(x))
	case float64:
		return canonicalFloat(x)
	default:
		return v
	}
}

func canonicalFloat(f float64) any {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

// String renders the command as compact JSON with sorted keys.
func (c Command) String() string {
	data, err := json.Marshal(map[string]any(c))
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(c))
	}
	return string(data)
}

// FindVerdict returns the first verdict carried by cmds.
func FindVerdict(cmds []Command) (reproduced bool, ok bool) {
	for _, c := range cmds {
		if v, ok := c.Verdict(); ok {
			return v, true
		}
	}
	return false, false
}
