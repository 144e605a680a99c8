package main

import "fmt"

// UsageError reports bad or conflicting command-line arguments.
type UsageError struct {
	Msg string
}

func usagef(format string, args ...any) *UsageError {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

func (e *UsageError) Error() string {
	return "usage: " + e.Msg
}

type PatternCompileError struct {
	Pattern string
	Err     error
}

func (e *PatternCompileError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternCompileError) Unwrap() error {
	return e.Err
}

type ColumnNotFoundError struct {
	Name string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column not found: %q", e.Name)
}

// InvalidUTF8Error is returned in text mode for input lines that are not
// valid UTF-8. Line numbers start at 1.
type InvalidUTF8Error struct {
	Line int
}

func (e *InvalidUTF8Error) Error() string {
	return fmt.Sprintf("line %d: invalid utf-8, use -bytes to work on raw bytes", e.Line)
}
