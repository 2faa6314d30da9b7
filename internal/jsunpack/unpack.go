// Package jsunpack decodes scripts packed with the p,a,c,k,e,d packer and pulls
// object literals and player fields out of inline scripts.
package jsunpack

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
)

const (
	scriptEnd = "</script>"

	// tokenAlphabet is the digit set of the packer's encoder: 0-9, a-z, then A-Z.
	tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var (
	packedStartRe = regexp.MustCompile(`eval\(function\(p,a,c,k,e,[dr]\)`)

	// The payload and the keyword list are JS string literals in either quote style.
	// RE2 has no backreferences, hence one expression per quote.
	argsSingleRe = regexp.MustCompile(`(?s)\}\s*\(\s*'((?:[^'\\]|\\.)*)'\s*,\s*(\d+)\s*,\s*(\d+)\s*,\s*'((?:[^'\\]|\\.)*)'\s*\.split\(\s*'\|'\s*\)`)
	argsDoubleRe = regexp.MustCompile(`(?s)\}\s*\(\s*"((?:[^"\\]|\\.)*)"\s*,\s*(\d+)\s*,\s*(\d+)\s*,\s*"((?:[^"\\]|\\.)*)"\s*\.split\(\s*"\|"\s*\)`)
)

// Detect reports whether s contains a packed script.
func Detect(s string) bool {
	return packedStartRe.MatchString(s)
}

// Find returns the first packed script in html, from the eval call up to the
// closing </script> tag or the end of input.
func Find(html string) (string, bool) {
	scripts := FindAll(html)
	if len(scripts) == 0 {
		return "", false
	}
	return scripts[0], true
}

// FindAll returns every packed script in html, in document order.
func FindAll(html string) []string {
	var out []string
	for _, loc := range packedStartRe.FindAllStringIndex(html, -1) {
		rest := html[loc[0]:]
		if end := strings.Index(rest, scriptEnd); end >= 0 {
			rest = rest[:end]
		}
		out = append(out, strings.TrimSpace(rest))
	}
	return out
}

// Unpack decodes a packed script and returns the original source.
//
// Tokens are substituted from the highest index to the lowest, each one only where
// it stands as a whole word. A keyword may itself look like a lower token (the
// literal "10" stored at index 1), which substituting upwards would rewrite twice.
func Unpack(script string) (string, error) {
	m := argsSingleRe.FindStringSubmatch(script)
	if m == nil {
		m = argsDoubleRe.FindStringSubmatch(script)
	}
	if m == nil {
		return "", &apperrors.UnpackError{Reason: "packer signature not recognized"}
	}

	payload := unescapeJS(m[1])
	radix, err := strconv.Atoi(m[2])
	if err != nil || radix < 2 || radix > len(tokenAlphabet) {
		return "", &apperrors.UnpackError{Reason: "unsupported radix " + m[2]}
	}
	count, err := strconv.Atoi(m[3])
	if err != nil {
		return "", &apperrors.UnpackError{Reason: "invalid keyword count " + m[3]}
	}
	keywords := strings.Split(unescapeJS(m[4]), "|")

	for c := count - 1; c >= 0; c-- {
		if c >= len(keywords) || keywords[c] == "" {
			continue
		}
		payload = replaceToken(payload, encodeToken(c, radix), keywords[c])
	}
	return payload, nil
}

// UnpackHTML finds the first packed script in html and unpacks it.
func UnpackHTML(html string) (string, error) {
	script, ok := Find(html)
	if !ok {
		return "", &apperrors.UnpackError{Reason: "packed script not found"}
	}
	return Unpack(script)
}

// UnpackAll unpacks every packed script in html and joins the sources with newlines.
// Scripts that fail to unpack are skipped; an error is returned only when none succeed.
func UnpackAll(html string) (string, error) {
	scripts := FindAll(html)
	if len(scripts) == 0 {
		return "", &apperrors.UnpackError{Reason: "packed script not found"}
	}
	var (
		parts   []string
		lastErr error
	)
	for _, s := range scripts {
		src, err := Unpack(s)
		if err != nil {
			lastErr = err
			continue
		}
		parts = append(parts, src)
	}
	if len(parts) == 0 {
		return "", lastErr
	}
	return strings.Join(parts, "\n"), nil
}

// encodeToken renders n in the packer's base-radix notation.
func encodeToken(n, radix int) string {
	if n < radix {
		return string(tokenAlphabet[n])
	}
	return encodeToken(n/radix, radix) + string(tokenAlphabet[n%radix])
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// replaceToken replaces every whole-word occurrence of token in s. It matches the
// JS expression /\btoken\b/g for alphanumeric tokens.
func replaceToken(s, token, word string) string {
	var (
		b        strings.Builder
		last     int
		replaced bool
	)
	for i := 0; i <= len(s)-len(token); {
		j := strings.Index(s[i:], token)
		if j < 0 {
			break
		}
		j += i
		end := j + len(token)
		if (j == 0 || !isWordByte(s[j-1])) && (end == len(s) || !isWordByte(s[end])) {
			if !replaced {
				b.Grow(len(s))
				replaced = true
			}
			b.WriteString(s[last:j])
			b.WriteString(word)
			last = end
			i = end
			continue
		}
		i = j + 1
	}
	if !replaced {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// unescapeJS decodes the escapes of a JS string literal body.
// Unknown escapes yield the escaped character, as in JS.
func unescapeJS(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := s[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'x':
			if i+2 < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					b.WriteRune(rune(v))
					i += 2
					continue
				}
			}
			b.WriteByte(e)
		case 'u':
			if i+4 < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+5], 16, 16); err == nil {
					b.WriteRune(rune(v))
					i += 4
					continue
				}
			}
			b.WriteByte(e)
		default:
			b.WriteByte(e)
		}
	}
	return b.String()
}
