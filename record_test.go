package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func readAll(t *testing.T, rr *recordReader) ([][]string, error) {
	t.Helper()

	var records [][]string
	for {
		record, err := rr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}

		fields := make([]string, len(record))
		for i, f := range record {
			fields[i] = string(f)
		}
		records = append(records, fields)
	}
}

func TestRecordReader(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name     string
		input    string
		delim    string
		expected [][]string
	}{
		{
			name:     "empty",
			input:    "",
			delim:    ",",
			expected: nil,
		},
		{
			name:  "lines",
			input: "a,b\nc\n\nd,e",
			delim: ",",
			expected: [][]string{
				{"a", "b"},
				{"c"},
				{""},
				{"d", "e"},
			},
		},
		{
			name:  "crlf",
			input: "a,b\r\nc,\r\n",
			delim: ",",
			expected: [][]string{
				{"a", "b"},
				{"c", ""},
			},
		},
		{
			name:  "quotes are plain bytes",
			input: "\"a,b\",c\n",
			delim: ",",
			expected: [][]string{
				{"\"a", "b\"", "c"},
			},
		},
		{
			name:  "multibyte delimiter",
			input: "a¦b¦\n",
			delim: "¦",
			expected: [][]string{
				{"a", "b", ""},
			},
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rr := newRecordReader(strings.NewReader(tc.input), []byte(tc.delim), true)

			got, err := readAll(t, rr)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}

			if _, err := rr.Read(); !errors.Is(err, io.EOF) {
				t.Errorf("expected io.EOF after the last record, got %v", err)
			}
		})
	}
}

func TestRecordReader_invalidUTF8(t *testing.T) {
	t.Parallel()

	input := "ok,ok\nbad,\xff\n"

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		rr := newRecordReader(strings.NewReader(input), []byte(","), true)
		got, err := readAll(t, rr)

		var utf8Err *InvalidUTF8Error
		if !errors.As(err, &utf8Err) {
			t.Fatalf("expected InvalidUTF8Error, got %v", err)
		}

		if diff := cmp.Diff(2, utf8Err.Line); diff != "" {
			t.Errorf("line mismatch (-want +got):\n%s", diff)
		}

		if diff := cmp.Diff([][]string{{"ok", "ok"}}, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("bytes", func(t *testing.T) {
		t.Parallel()

		rr := newRecordReader(strings.NewReader(input), []byte(","), false)
		got, err := readAll(t, rr)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := [][]string{{"ok", "ok"}, {"bad", "\xff"}}
		if diff := cmp.Diff(expected, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestRecordWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rw := newRecordWriter(&buf, []byte(";"))

	records := [][][]byte{
		{[]byte("a"), []byte("b")},
		{[]byte("")},
		{[]byte("c"), []byte(""), []byte("\xff")},
	}
	for _, record := range records {
		if err := rw.Write(record); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if buf.Len() != 0 {
		t.Errorf("expected output to be buffered until flush, got %q", buf.String())
	}

	if err := rw.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff("a;b\n\nc;;\xff\n", buf.String()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
