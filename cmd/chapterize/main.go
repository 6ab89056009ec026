package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/patrickenfuego/chapterize/internal/cli"
	"github.com/patrickenfuego/chapterize/internal/lang"
	"github.com/patrickenfuego/chapterize/internal/ledger"
	"github.com/patrickenfuego/chapterize/internal/model"
	"github.com/patrickenfuego/chapterize/internal/recognize"
	"github.com/patrickenfuego/chapterize/internal/segment"
	"github.com/patrickenfuego/chapterize/internal/timecode"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitUsage         = 2
	ExitLanguage      = 3
	ExitModel         = 4
	ExitModelFetch    = 5
	ExitTimecode      = 6
	ExitTranscription = 7
	ExitNoChapters    = 8
	ExitFormat        = 9
	ExitLedger        = 10
	ExitInterrupt     = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create the CLI environment with production defaults.
	env := cli.DefaultEnv()

	rootCmd := cli.ChapterizeCmd(env)
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)
	// Silence Cobra's default error/usage printing; we handle it ourselves.
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors: our sentinel plus Cobra flag/arg parsing errors.
	if errors.Is(err, cli.ErrUsage) || isCobraUsageError(err) {
		return ExitUsage
	}

	// Language errors.
	if errors.Is(err, lang.ErrInvalid) || errors.Is(err, lang.ErrNoProfile) {
		return ExitLanguage
	}

	// Model selection errors.
	if errors.Is(err, model.ErrUnsupportedModel) || errors.Is(err, model.ErrWrongSize) {
		return ExitModel
	}

	// Model download/extract errors.
	if errors.Is(err, model.ErrDownloadFailed) || errors.Is(err, model.ErrExtract) {
		return ExitModelFetch
	}

	// Timecode errors.
	if errors.Is(err, timecode.ErrMalformed) || errors.Is(err, timecode.ErrConversion) {
		return ExitTimecode
	}

	// Transcription errors.
	if errors.Is(err, recognize.ErrTranscription) || errors.Is(err, recognize.ErrBinaryNotFound) ||
		errors.Is(err, recognize.ErrEmptyTranscript) {
		return ExitTranscription
	}

	// No chapter boundaries detected.
	if errors.Is(err, segment.ErrEmptySegments) {
		return ExitNoChapters
	}

	// Unsupported input format.
	if errors.Is(err, cli.ErrUnsupportedFormat) {
		return ExitFormat
	}

	// Cue file errors.
	if errors.Is(err, ledger.ErrMalformed) || errors.Is(err, ledger.ErrExists) {
		return ExitLedger
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// These patterns are stable across Cobra versions (tested with v1.8+).
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
