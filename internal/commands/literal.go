package commands

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxLiteralDepth bounds nesting so hostile input cannot blow the stack.
const maxLiteralDepth = 32

// SyntaxError reports where a literal could not be decoded.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("literal syntax error at offset %d: %s", e.Offset, e.Msg)
}

// decodeLiteral decodes a data literal written either as JSON or in Python
// literal spelling (single-quoted strings, True/False/None, trailing commas).
// Only mappings with string keys, lists, tuples, strings, integers, floats,
// booleans and null are accepted; nothing is ever evaluated. Tuples decode
// as lists.
//
// Integers decode to int64, other numbers to float64, mappings to
// map[string]any and lists to []any.
func decodeLiteral(src string) (any, error) {
	p := &literalParser{src: src}
	p.skipSpace()
	v, err := p.value(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing %q", p.rest(10))
	}
	return v, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *literalParser) rest(n int) string {
	end := p.pos + n
	if end > len(p.src) {
		end = len(p.src)
	}
	return p.src[p.pos:end]
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) value(depth int) (any, error) {
	if depth > maxLiteralDepth {
		return nil, p.errorf("nesting deeper than %d", maxLiteralDepth)
	}
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}

	switch c := p.src[p.pos]; {
	case c == '{':
		return p.mapping(depth)
	case c == '[':
		return p.list(depth)
	case c == '(':
		return p.tuple(depth)
	case c == '"' || c == '\'':
		return p.str()
	case c == '-' || c == '+' || (c >= '0' && c <= '9') || c == '.':
		return p.number()
	default:
		return p.keyword()
	}
}

func (p *literalParser) mapping(depth int) (any, error) {
	p.pos++ // {
	out := make(map[string]any)
	for {
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == '}' {
			p.pos++
			return out, nil
		}
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated mapping")
		}
		if c := p.src[p.pos]; c != '"' && c != '\'' {
			return nil, p.errorf("mapping keys must be strings")
		}
		key, err := p.str()
		if err != nil {
			return nil, err
		}

		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return nil, p.errorf("expected ':' after key %q", key)
		}
		p.pos++
		p.skipSpace()

		val, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		out[key.(string)] = val

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated mapping")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or '}' in mapping")
		}
	}
}

func (p *literalParser) list(depth int) (any, error) {
	p.pos++ // [
	out := make([]any, 0)
	for {
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ']' {
			p.pos++
			return out, nil
		}
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated list")
		}

		val, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		out = append(out, val)

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated list")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or ']' in list")
		}
	}
}

// tuple decodes a parenthesized sequence. Without a comma the parentheses
// only group, as in Python: ('x') is 'x'.
func (p *literalParser) tuple(depth int) (any, error) {
	p.pos++ // (
	out := make([]any, 0)
	sawComma := false
	for {
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ')' {
			p.pos++
			if len(out) == 1 && !sawComma {
				return out[0], nil
			}
			return out, nil
		}
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated tuple")
		}

		val, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		out = append(out, val)

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated tuple")
		}
		switch p.src[p.pos] {
		case ',':
			sawComma = true
			p.pos++
		case ')':
		default:
			return nil, p.errorf("expected ',' or ')' in tuple")
		}
	}
}

func (p *literalParser) str() (any, error) {
	quote := p.src[p.pos]
	p.pos++

	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return sb.String(), nil
		case c == '\n':
			return nil, p.errorf("newline in string literal")
		case c == '\\':
			if err := p.escape(&sb); err != nil {
				return nil, err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			sb.WriteRune(r)
			p.pos += size
		}
	}
	return nil, p.errorf("unterminated string")
}

func (p *literalParser) escape(sb *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '"', '\'', '\\', '/':
		sb.WriteByte(c)
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'u':
		if p.pos+4 > len(p.src) {
			return p.errorf("short \\u escape")
		}
		code, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 32)
		if err != nil {
			return p.errorf("invalid \\u escape")
		}
		sb.WriteRune(rune(code))
		p.pos += 4
	default:
		return p.errorf("unknown escape \\%c", c)
	}
	return nil
}

func (p *literalParser) number() (any, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' || c == '_' {
			p.pos++
			continue
		}
		break
	}
	text := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	if text == "" {
		return nil, p.errorf("empty number")
	}

	if i, err := strconv.ParseInt(strings.TrimPrefix(text, "+"), 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.pos = start
		return nil, p.errorf("invalid number %q", text)
	}
	return f, nil
}

func (p *literalParser) keyword() (any, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			p.pos++
			continue
		}
		break
	}
	switch word := p.src[start:p.pos]; word {
	case "true", "True":
		return true, nil
	case "false", "False":
		return false, nil
	case "null", "None":
		return nil, nil
	case "":
		return nil, p.errorf("unexpected character %q", p.rest(1))
	default:
		p.pos = start
		return nil, p.errorf("unsupported identifier %q", word)
	}
}
