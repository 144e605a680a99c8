package main

import (
	"bytes"
	"strconv"
)

// columnSelector is either a header name or a zero based index.
type columnSelector struct {
	name  string
	index int
	named bool
}

func (c columnSelector) String() string {
	if c.named {
		return strconv.Quote(c.name)
	}

	return strconv.Itoa(c.index)
}

// parseColumn interprets anything that parses as an integer as an index,
// everything else as a name.
func parseColumn(s string, noHeaders bool) (columnSelector, error) {
	if s == "" {
		return columnSelector{}, usagef("-column is required")
	}

	n, err := strconv.Atoi(s)
	if err == nil {
		if n < 0 {
			return columnSelector{}, usagef("column index must not be negative: %d", n)
		}

		return columnSelector{index: n}, nil
	}

	if noHeaders {
		return columnSelector{}, usagef("column %q is not an index, names require a header row", s)
	}

	return columnSelector{name: s, named: true}, nil
}

// resolve maps the selector to a field position. header is nil when there is
// no header row.
func (c columnSelector) resolve(header [][]byte) (int, error) {
	if !c.named {
		return c.index, nil
	}

	name := []byte(c.name)
	for i, field := range header {
		if bytes.Equal(field, name) {
			return i, nil
		}
	}

	return 0, &ColumnNotFoundError{Name: c.name}
}
