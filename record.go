package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// recordReader splits lines on a delimiter. There is no quoting, a delimiter
// inside a field always starts a new field.
type recordReader struct {
	r         *bufio.Reader
	delim     []byte
	checkUTF8 bool
	line      int
	done      bool
}

func newRecordReader(r io.Reader, delim []byte, checkUTF8 bool) *recordReader {
	return &recordReader{
		r:         bufio.NewReader(r),
		delim:     delim,
		checkUTF8: checkUTF8,
	}
}

// Read returns the next record, or io.EOF once the input is exhausted.
func (rr *recordReader) Read() ([][]byte, error) {
	if rr.done {
		return nil, io.EOF
	}

	line, err := rr.r.ReadBytes('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read input: %w", err)
		}

		rr.done = true
		if len(line) == 0 {
			return nil, io.EOF
		}
	}

	rr.line++

	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))

	if rr.checkUTF8 && !utf8.Valid(line) {
		return nil, &InvalidUTF8Error{Line: rr.line}
	}

	return bytes.Split(line, rr.delim), nil
}

// Line is the number of the last line returned by Read.
func (rr *recordReader) Line() int {
	return rr.line
}

type recordWriter struct {
	w     *bufio.Writer
	delim []byte
}

func newRecordWriter(w io.Writer, delim []byte) *recordWriter {
	return &recordWriter{
		w:     bufio.NewWriter(w),
		delim: delim,
	}
}

func (rw *recordWriter) Write(record [][]byte) error {
	for i, field := range record {
		if i > 0 {
			if _, err := rw.w.Write(rw.delim); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}

		if _, err := rw.w.Write(field); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	if err := rw.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

func (rw *recordWriter) Flush() error {
	if err := rw.w.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}
