package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode/utf8"

	ansicolor "github.com/fatih/color"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

var version = "0.1.0"

func main() {
	// Writes to a closed stdout return EPIPE instead of killing the process,
	// see exitCode.
	signal.Ignore(syscall.SIGPIPE)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := realMain(
		ctx,
		os.Args,
		os.Stdin,
		os.Stdout,
		os.Stderr,
	)

	code := exitCode(err)
	if code != 0 {
		fmt.Fprintf(os.Stderr, "%v %v\n", colorError.Sprint("error:"), err)
	}

	cancel()
	os.Exit(code)
}

// exitCode maps the error returned by realMain to a process exit status.
func exitCode(err error) int {
	var usageErr *UsageError

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, syscall.EPIPE):
		// Whoever reads our output went away, e.g. `csvre ... | head`.
		return 0
	case errors.As(err, &usageErr):
		return 2
	default:
		return 1
	}
}

func realMain(
	ctx context.Context,
	args []string,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
) error {
	exec := args[0]

	fs := flag.NewFlagSet(exec, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		flagDelimiter string
		flagColumn    string
		flagNoHeaders bool
		flagBytes     bool
	)

	fs.StringVar(&flagDelimiter, "d", ",", "field delimiter, used for both input and output")
	fs.StringVar(&flagDelimiter, "delimiter", ",", "same as -d")
	fs.StringVar(&flagColumn, "c", "", "column to operate on, a header name or zero based index")
	fs.StringVar(&flagColumn, "column", "", "same as -c")
	fs.BoolVar(&flagNoHeaders, "n", false, "input has no header row, only indices can be used with -c")
	fs.BoolVar(&flagNoHeaders, "no-headers", false, "same as -n")
	fs.BoolVar(&flagBytes, "b", false, "match on raw bytes instead of utf-8 text")
	fs.BoolVar(&flagBytes, "bytes", false, "same as -b")
	flagVersion := fs.Bool("version", false, "print version and exit")
	flagDebug := fs.Bool("debug", false, "log debug information to stderr")

	rootCmd := &ffcli.Command{
		Name:       exec,
		ShortUsage: fmt.Sprintf("%v [flags] -column=COLUMN <regex> <replacement>", exec),
		ShortHelp:  "Replace data in a CSV column with regular expressions.",
		LongHelp:   strings.TrimSpace(longHelp),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if *flagVersion {
				fmt.Fprintln(stdout, version)
				return nil
			}

			cfg, err := newConfig(flagDelimiter, flagColumn, flagNoHeaders, flagBytes, args)
			if err != nil {
				return err
			}

			logout := io.Discard
			if *flagDebug {
				logout = stderr
			}

			logger := slog.New(
				slog.NewTextHandler(
					logout,
					&slog.HandlerOptions{Level: slog.LevelDebug},
				),
			)

			logger.Debug(
				"config",
				"delimiter", cfg.delimiter,
				"column", cfg.column.String(),
				"no_headers", cfg.noHeaders,
				"bytes", cfg.bytes,
			)

			return run(ctx, cfg, stdin, stdout, logger)
		},
	}

	if err := rootCmd.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}

		return &UsageError{Msg: err.Error()}
	}

	if err := parseEnv(fs); err != nil {
		return &UsageError{Msg: err.Error()}
	}

	return rootCmd.Run(ctx)
}

// longNames maps each short flag to the long flag sharing its variable.
var longNames = map[string]string{
	"d": "delimiter",
	"c": "column",
	"n": "no-headers",
	"b": "bytes",
}

// parseEnv sets flags from CSVRE_* environment variables, keyed by long name.
// A flag given on the command line, under either of its names, keeps that
// value.
func parseEnv(fs *flag.FlagSet) error {
	provided := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := longNames[name]; ok {
			name = long
		}
		provided[name] = true
	})

	envfs := flag.NewFlagSet(fs.Name(), flag.ContinueOnError)
	envfs.SetOutput(io.Discard)
	fs.VisitAll(func(f *flag.Flag) {
		if _, short := longNames[f.Name]; short || provided[f.Name] {
			return
		}
		envfs.Var(f.Value, f.Name, f.Usage)
	})

	return ff.Parse(envfs, nil, ff.WithEnvVarPrefix("CSVRE"))
}

func newConfig(
	delimiter string,
	column string,
	noHeaders bool,
	raw bool,
	args []string,
) (config, error) {
	if len(args) != 2 {
		return config{}, usagef("expected <regex> and <replacement>, got %d arguments", len(args))
	}

	if err := validateDelimiter(delimiter); err != nil {
		return config{}, err
	}

	selector, err := parseColumn(column, noHeaders)
	if err != nil {
		return config{}, err
	}

	return config{
		delimiter:   delimiter,
		column:      selector,
		noHeaders:   noHeaders,
		bytes:       raw,
		pattern:     args[0],
		replacement: args[1],
	}, nil
}

func validateDelimiter(delimiter string) error {
	r, size := utf8.DecodeRuneInString(delimiter)
	if r == utf8.RuneError || size != len(delimiter) {
		return usagef("delimiter must be a single character: %q", delimiter)
	}

	if r == '\n' || r == '\r' {
		return usagef("delimiter can not be a line break: %q", delimiter)
	}

	return nil
}

var colorError = ansicolor.New(ansicolor.FgRed)

const longHelp = `
Reads delimited records from stdin, replaces every match of <regex> in the
selected column with <replacement> and writes the records to stdout using the
same delimiter. Fields are split on the delimiter only, quotes have no special
meaning. Records too short to have the column are written unchanged.

<replacement> can reference capture groups of <regex>: $name and ${name} for
named groups, $0 for the whole match, $1 for the first group and so on. Invalid
references (unknown name or index) are replaced with the empty string. Use $$
for a literal $.

With -bytes, input is not required to be utf-8 and inline u flags such as
(?-u) are accepted. Where u is off, escapes above \x7F are rejected as they
can not match a single raw byte.

Long flags can also be set through the environment using the CSVRE_ prefix,
e.g. CSVRE_DELIMITER=';'. Flags given on the command line take precedence.
`
