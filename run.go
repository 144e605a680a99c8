package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

type config struct {
	delimiter   string
	column      columnSelector
	noHeaders   bool
	bytes       bool
	pattern     string
	replacement string
}

// run streams stdin to stdout, rewriting the configured column of every
// record. Output written so far is flushed even when run fails.
func run(
	ctx context.Context,
	cfg config,
	stdin io.Reader,
	stdout io.Writer,
	logger *slog.Logger,
) (err error) {
	sub, err := newSubstituter(cfg.pattern, cfg.replacement, cfg.bytes)
	if err != nil {
		return err
	}

	logger.Debug(
		"compiled",
		"pattern", cfg.pattern,
		"template", sub.tmpl.String(),
		"bytes", cfg.bytes,
	)

	delim := []byte(cfg.delimiter)
	reader := newRecordReader(stdin, delim, !cfg.bytes)
	writer := newRecordWriter(stdout, delim)
	defer func() {
		if ferr := writer.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}()

	var header [][]byte
	if !cfg.noHeaders {
		header, err = reader.Read()
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	}

	column, err := cfg.column.resolve(header)
	if err != nil {
		return err
	}

	logger.Debug("resolved column", "selector", cfg.column.String(), "index", column)

	if header != nil {
		if err := writer.Write(header); err != nil {
			return err
		}
	}

	var records, short int
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return err
		}

		records++
		if !sub.apply(record, column) {
			short++
			logger.Debug("short record", "line", reader.Line(), "fields", len(record))
		}

		if err := writer.Write(record); err != nil {
			return err
		}
	}

	logger.Debug("done", "records", records, "short", short)

	return nil
}
