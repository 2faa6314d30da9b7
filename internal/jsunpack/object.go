package jsunpack

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
)

const (
	// MaxObjectLen bounds the scan for the closing brace of an object literal.
	MaxObjectLen = 64 << 10
	// maxLeadIn bounds the distance between a marker and the opening brace.
	maxLeadIn = 64
)

// ExtractObject returns the brace-balanced object literal that follows marker in script,
// e.g. ExtractObject(s, "window.masterPlaylist") on `window.masterPlaylist = {...}`.
// Braces inside string literals are ignored.
func ExtractObject(script, marker string) (string, bool) {
	idx := strings.Index(script, marker)
	if idx < 0 {
		return "", false
	}
	rest := script[idx+len(marker):]
	open := strings.IndexByte(rest, '{')
	if open < 0 || open > maxLeadIn {
		return "", false
	}
	rest = rest[open:]

	depth := 0
	var inString byte
	limit := min(len(rest), MaxObjectLen)
	for i := 0; i < limit; i++ {
		c := rest[i]
		if inString != 0 {
			switch c {
			case '\\':
				i++
			case inString:
				inString = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			inString = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[:i+1], true
			}
		}
	}
	return "", false
}

// ToJSON converts a JS object literal to strict JSON: single-quoted strings become
// double-quoted, bare keys are quoted, trailing commas are dropped and undefined
// becomes null. When keys is non-empty only those bare keys are quoted.
func ToJSON(literal string, keys ...string) string {
	var b strings.Builder
	b.Grow(len(literal) + len(literal)/8)

	for i := 0; i < len(literal); i++ {
		c := literal[i]
		switch {
		case c == '"' || c == '\'' || c == '`':
			i = writeString(&b, literal, i)
		case c == ',':
			j := skipSpace(literal, i+1)
			if j < len(literal) && (literal[j] == '}' || literal[j] == ']') {
				continue
			}
			b.WriteByte(c)
		case isIdentStart(c):
			j := i
			for j < len(literal) && isIdentByte(literal[j]) {
				j++
			}
			ident := literal[i:j]
			next := skipSpace(literal, j)
			isKey := next < len(literal) && literal[next] == ':'
			switch {
			case isKey && (len(keys) == 0 || slices.Contains(keys, ident)):
				b.WriteString(`"` + ident + `"`)
			case !isKey && ident == "undefined":
				b.WriteString("null")
			default:
				b.WriteString(ident)
			}
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// DecodeObject extracts the object literal after marker and decodes it into v.
// Fields missing from the literal are left untouched.
func DecodeObject(script, marker string, v any, keys ...string) error {
	literal, ok := ExtractObject(script, marker)
	if !ok {
		return apperrors.NewParseError("", marker)
	}
	if err := json.Unmarshal([]byte(ToJSON(literal, keys...)), v); err != nil {
		return fmt.Errorf("decode %s: %w", marker, err)
	}
	return nil
}

// writeString copies the string literal starting at literal[i] as a JSON string and
// returns the index of its closing quote. JS-only escapes are rewritten: \xNN
// becomes \u00NN, \v and \0 become \u escapes, and any other escaped character
// stands for itself. Raw control characters are escaped.
func writeString(b *strings.Builder, literal string, i int) int {
	quote := literal[i]
	b.WriteByte('"')
	for i++; i < len(literal); i++ {
		c := literal[i]
		switch {
		case c == '\\' && i+1 < len(literal):
			i = writeEscape(b, literal, i+1)
		case c == quote:
			b.WriteByte('"')
			return i
		case c == '"':
			b.WriteString(`\"`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20:
			fmt.Fprintf(b, `\u%04x`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return i
}

// writeEscape writes the JSON form of the escape whose letter is at literal[i]
// and returns the index of its last byte.
func writeEscape(b *strings.Builder, literal string, i int) int {
	switch c := literal[i]; c {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		b.WriteByte('\\')
		b.WriteByte(c)
	case 'u':
		if i+4 < len(literal) && isHex(literal[i+1:i+5]) {
			b.WriteString(`\u`)
			b.WriteString(literal[i+1 : i+5])
			return i + 4
		}
		b.WriteByte('u')
	case 'x':
		if i+2 < len(literal) && isHex(literal[i+1:i+3]) {
			b.WriteString(`\u00`)
			b.WriteString(literal[i+1 : i+3])
			return i + 2
		}
		b.WriteByte('x')
	case 'v':
		b.WriteString(`\u000b`)
	case '0':
		b.WriteString(`\u0000`)
	case '\n':
		// line continuation
	case '\r':
		if i+1 < len(literal) && literal[i+1] == '\n' {
			return i + 1
		}
	default:
		if c < 0x20 {
			fmt.Fprintf(b, `\u%04x`, c)
		} else {
			b.WriteByte(c)
		}
	}
	return i
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return c == '$' || isWordByte(c)
}
