package main

import (
	"bytes"
	"strconv"
	"strings"
)

// groupLookup is the part of a compiled pattern a template needs to turn
// group references into indices.
type groupLookup interface {
	NumSubexp() int
	SubexpIndex(name string) int
}

// template is a replacement string compiled against a pattern. Each part is
// either a literal or a capture group index, never both.
type template struct {
	parts []templatePart
}

type templatePart struct {
	literal []byte
	group   int
}

// compileTemplate understands $name, ${name}, $N and $$. References to groups
// the pattern does not have are dropped so they expand to nothing. A $ that
// does not start a valid reference is kept as is.
func compileTemplate(s string, groups groupLookup) template {
	var (
		t   template
		lit []byte
	)

	flush := func() {
		if len(lit) > 0 {
			t.parts = append(t.parts, templatePart{literal: lit, group: -1})
			lit = nil
		}
	}

	for len(s) > 0 {
		i := strings.IndexByte(s, '$')
		if i < 0 {
			lit = append(lit, s...)
			break
		}

		lit = append(lit, s[:i]...)
		s = s[i:]

		if len(s) > 1 && s[1] == '$' {
			lit = append(lit, '$')
			s = s[2:]
			continue
		}

		name, rest, ok := extractRef(s)
		if !ok {
			lit = append(lit, '$')
			s = s[1:]
			continue
		}
		s = rest

		if group := resolveRef(name, groups); group >= 0 {
			flush()
			t.parts = append(t.parts, templatePart{group: group})
		}
	}
	flush()

	return t
}

// extractRef parses the reference at the start of s, which begins with '$'.
func extractRef(s string) (name, rest string, ok bool) {
	if len(s) < 2 {
		return "", "", false
	}

	if s[1] == '{' {
		end := 2
		for end < len(s) && s[end] != '}' {
			end++
		}
		if end == len(s) {
			return "", "", false
		}

		// ${} is a reference to the empty name, it expands to nothing.
		return s[2:end], s[end+1:], true
	}

	end := 1
	for end < len(s) && isNameByte(s[end]) {
		end++
	}
	if end == 1 {
		return "", "", false
	}

	return s[1:end], s[end:], true
}

func isNameByte(c byte) bool {
	return c == '_' ||
		('0' <= c && c <= '9') ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z')
}

func resolveRef(name string, groups groupLookup) int {
	if name == "" {
		return -1
	}

	if isDigits(name) {
		n, err := strconv.Atoi(name)
		if err != nil || n > groups.NumSubexp() {
			return -1
		}

		return n
	}

	return groups.SubexpIndex(name)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return len(s) > 0
}

// expand appends the template for one match to dst. match holds submatch
// index pairs into src as returned by FindAllSubmatchIndex.
func (t template) expand(dst, src []byte, match []int) []byte {
	for _, p := range t.parts {
		if p.group < 0 {
			dst = append(dst, p.literal...)
			continue
		}

		if 2*p.group+1 >= len(match) {
			continue
		}

		start, end := match[2*p.group], match[2*p.group+1]
		if start < 0 {
			continue
		}

		dst = append(dst, src[start:end]...)
	}

	return dst
}

func (t template) String() string {
	var buf bytes.Buffer
	for _, p := range t.parts {
		if p.group < 0 {
			buf.Write(bytes.ReplaceAll(p.literal, []byte("$"), []byte("$$")))
			continue
		}

		buf.WriteString("${" + strconv.Itoa(p.group) + "}")
	}

	return buf.String()
}
