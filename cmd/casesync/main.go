// Command casesync uploads case definitions from a CSV file to ShipHero
// without the web UI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/casesync/internal/config"
	"github.com/JonMunkholm/casesync/internal/core"
	"github.com/JonMunkholm/casesync/internal/logging"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitPartial = 3 // the run finished but some rows failed
)

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

type globalOptions struct {
	logLevel  string
	logFormat string
	cfg       *config.Config
}

func newRootCmd() *cobra.Command {
	var opts globalOptions

	cmd := &cobra.Command{
		Use:           "casesync",
		Short:         "Upload case barcodes and quantities to ShipHero from a CSV file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Missing .env is fine; the environment may carry everything.
			_ = godotenv.Overload()

			cfg, err := config.Load()
			if err != nil {
				return withCode(exitUsage, err)
			}
			opts.cfg = cfg

			level := cfg.Logging.Level
			if cmd.Flags().Changed("log-level") {
				level = opts.logLevel
			}
			format := cfg.Logging.Format
			if cmd.Flags().Changed("log-format") {
				format = opts.logFormat
			}
			// stdout is reserved for JSON output.
			slog.SetDefault(logging.New(os.Stderr, level, format))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	cmd.AddCommand(newHeadersCmd(&opts))
	cmd.AddCommand(newProcessCmd(&opts))
	cmd.AddCommand(newRefreshCmd(&opts))
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		printError(stderr, err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return exitFailure
	}
	return exitOK
}

// printError writes the friendly message for known failures, followed by
// the underlying error.
func printError(w io.Writer, err error) {
	if core.IsUserFacing(err) {
		fmt.Fprintln(w, "Error:", core.FormatUserError(err))
		fmt.Fprintln(w, "  detail:", err)
		return
	}
	fmt.Fprintln(w, "Error:", err)
}
