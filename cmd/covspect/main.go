package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/covspect/covspect/internal/app"
	"github.com/covspect/covspect/internal/errdefs"
	"github.com/covspect/covspect/internal/logging"
)

var (
	version    = "1.0.0"
	verbose    bool
	isFirstRun bool
)

// Exit codes for structured error reporting.
const (
	ExitSuccess    = 0
	ExitInternal   = 1
	ExitInvalidArg = 2
	ExitNotFound   = 3
	ExitNetwork    = 5
)

func main() {
	logging.Init(false)
	isFirstRun = app.IsFirstRun()

	root := &cobra.Command{
		Use:   "covspect",
		Short: "Code coverage report explorer",
		Long: `Covspect resolves and aggregates code coverage reports.

It answers which lines of a file are covered, how well a directory is
covered overall, and how coverage evolved over time, reading covdir
reports from a local directory or a GCS bucket. The serve command
exposes the same queries over HTTP.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
			if isFirstRun {
				slog.Debug("first run, user config directory created")
			}
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewLatestCmd())
	root.AddCommand(NewCoverageCmd())
	root.AddCommand(NewHistoryCmd())
	root.AddCommand(NewFiltersCmd())
	root.AddCommand(NewImportCmd())
	root.AddCommand(NewVersionCmd())

	if err := root.Execute(); err != nil {
		exitCode := classifyError(err)
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
}

// classifyError maps an error to an exit code. Typed errors from the
// query path are checked first; flag and argument errors from cobra
// only carry text, so those fall back to message sniffing.
func classifyError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errdefs.IsInvalidFilter(err), errdefs.IsPathNotFound(err):
		return ExitInvalidArg
	case errdefs.IsNotFound(err):
		return ExitNotFound
	case errdefs.IsStoreUnavailable(err):
		return ExitNetwork
	}

	if os.IsNotExist(err) {
		return ExitNotFound
	}

	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "dial") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "i/o timeout") {
		return ExitNetwork
	}

	if strings.Contains(msg, "required") ||
		strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "must be") ||
		strings.Contains(msg, "unknown flag") ||
		strings.Contains(msg, "unknown command") {
		return ExitInvalidArg
	}

	return ExitInternal
}
