package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/grafana/regexp"
)

// matcher finds every non-overlapping match in a field, as submatch index
// pairs. textMatcher and byteMatcher share one compiled pattern type and only
// differ in how they look at the field.
type matcher interface {
	groupLookup
	findAll(field []byte) [][]int
}

type textMatcher struct {
	*regexp.Regexp
}

func (m textMatcher) findAll(field []byte) [][]int {
	return m.FindAllStringSubmatchIndex(string(field), -1)
}

type byteMatcher struct {
	*regexp.Regexp
}

func (m byteMatcher) findAll(field []byte) [][]int {
	return m.FindAllSubmatchIndex(field, -1)
}

func compileMatcher(pattern string, raw bool) (matcher, error) {
	expr := pattern
	if raw {
		var err error
		expr, err = stripUnicodeFlag(pattern)
		if err != nil {
			return nil, &PatternCompileError{Pattern: pattern, Err: err}
		}
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &PatternCompileError{Pattern: pattern, Err: err}
	}

	if raw {
		return byteMatcher{re}, nil
	}

	return textMatcher{re}, nil
}

var errRawByteEscape = errors.New(`escapes above \x7F can not match a raw byte with the u flag off`)

// stripUnicodeFlag drops the u flag from inline flag groups such as (?-u) or
// (?iu:...). Matching over bytes never decodes the field, so the flag has
// nothing to toggle, and the parser would otherwise reject it.
//
// Where u is off, \xHH above \x7F would mean a single raw byte, but the engine
// always reads it as the code point U+00HH. Those escapes are rejected.
func stripUnicodeFlag(pattern string) (string, error) {
	var b strings.Builder
	b.Grow(len(pattern))

	// State of the u flag for each open group, innermost last.
	unicode := []bool{true}

	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]

		switch {
		case c == '\\':
			n, err := checkEscape(pattern[i:], unicode[len(unicode)-1])
			if err != nil {
				return "", err
			}

			b.WriteString(pattern[i : i+n])
			i += n - 1
			continue
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
			b.WriteByte(c)
			// A ] right after [ or [^ is a literal.
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				i++
				b.WriteByte(pattern[i])
			}
			if i+1 < len(pattern) && pattern[i+1] == ']' {
				i++
				b.WriteByte(pattern[i])
			}
			continue
		case c == '(':
			top := unicode[len(unicode)-1]

			fg, ok := rewriteFlagGroup(pattern[i:], top)
			if !ok {
				unicode = append(unicode, top)
				break
			}

			if fg.scoped {
				unicode = append(unicode, fg.unicode)
			} else {
				unicode[len(unicode)-1] = fg.unicode
			}

			b.WriteString(fg.text)
			i += fg.n - 1
			continue
		case c == ')':
			if len(unicode) > 1 {
				unicode = unicode[:len(unicode)-1]
			}
		}

		b.WriteByte(c)
	}

	return b.String(), nil
}

// checkEscape reports how many bytes of the escape at the start of s to copy
// as is.
func checkEscape(s string, unicode bool) (int, error) {
	if len(s) < 2 {
		return len(s), nil
	}

	switch s[1] {
	case 'Q':
		// Quoted literal text up to \E, or the end of the pattern.
		if end := strings.Index(s[2:], `\E`); end >= 0 {
			return end + 4, nil
		}
		return len(s), nil
	case 'x':
		if unicode {
			return 2, nil
		}
	default:
		return 2, nil
	}

	var hex string
	n := 2
	switch {
	case len(s) > 2 && s[2] == '{':
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return 2, nil
		}
		hex, n = s[3:end], end+1
	case len(s) >= 4:
		hex, n = s[2:4], 4
	default:
		return 2, nil
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		// Malformed, left for the regexp parser to report.
		return n, nil
	}

	if v > 0x7f {
		return 0, fmt.Errorf("%w: %s", errRawByteEscape, s[:n])
	}

	return n, nil
}

type flagGroup struct {
	text    string
	n       int
	unicode bool
	scoped  bool
}

// rewriteFlagGroup rewrites the flag group at the start of s. n is how many
// bytes of s it consumed, unicode the state of the u flag after it given the
// state before. ok is false when s does not start with a flag group.
func rewriteFlagGroup(s string, unicode bool) (flagGroup, bool) {
	if !strings.HasPrefix(s, "(?") {
		return flagGroup{}, false
	}

	end := 2
	for end < len(s) && (s[end] == '-' || isLetter(s[end])) {
		end++
	}
	if end == len(s) || (s[end] != ')' && s[end] != ':') || end == 2 {
		return flagGroup{}, false
	}

	on, off, _ := strings.Cut(s[2:end], "-")
	if strings.Contains(on, "u") {
		unicode = true
	}
	if strings.Contains(off, "u") {
		unicode = false
	}

	on = strings.ReplaceAll(on, "u", "")
	off = strings.ReplaceAll(off, "u", "")

	flags := on
	if off != "" {
		flags += "-" + off
	}

	fg := flagGroup{n: end + 1, unicode: unicode, scoped: s[end] == ':'}
	switch {
	case flags != "":
		fg.text = "(?" + flags + s[end:end+1]
	case fg.scoped:
		fg.text = "(?:"
	default:
		// (?u) or (?-u) alone, nothing left to set.
	}

	return fg, true
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// substituter rewrites a single field.
type substituter struct {
	m    matcher
	tmpl template
}

func newSubstituter(pattern, replacement string, raw bool) (*substituter, error) {
	m, err := compileMatcher(pattern, raw)
	if err != nil {
		return nil, err
	}

	return &substituter{
		m:    m,
		tmpl: compileTemplate(replacement, m),
	}, nil
}

// replaceAll returns field itself when nothing matches.
func (s *substituter) replaceAll(field []byte) []byte {
	matches := s.m.findAll(field)
	if len(matches) == 0 {
		return field
	}

	out := make([]byte, 0, len(field))
	last := 0
	for _, match := range matches {
		out = append(out, field[last:match[0]]...)
		out = s.tmpl.expand(out, field, match)
		last = match[1]
	}

	return append(out, field[last:]...)
}

// apply substitutes the field at column in place. Records too short to have
// that column are left alone; the return value reports whether the column
// existed.
func (s *substituter) apply(record [][]byte, column int) bool {
	if column >= len(record) {
		return false
	}

	record[column] = s.replaceAll(record[column])
	return true
}
