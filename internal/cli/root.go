// Package cli implements the notes-e2e command line.
package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/kuitang/notes-e2e/internal/config"
	"github.com/kuitang/notes-e2e/internal/obs"
)

// Exit codes.
const (
	ExitSuccess      = 0 // every selected scenario passed or was skipped
	ExitFailure      = 1 // at least one scenario failed
	ExitCommandError = 2 // bad flags, bad configuration, unreachable dependencies
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func commandError(message string, err error) *ExitError {
	return &ExitError{Code: ExitCommandError, Message: message, Err: err}
}

// ExitCode maps err to a process exit code. Errors without a code are
// command errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// RootOptions holds the persistent flags.
type RootOptions struct {
	ConfigFile string
	Format     string // "text" | "json"
	LogLevel   string
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand builds the notes-e2e command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "notes-e2e",
		Short: "End-to-end suite for the Notes application",
		Long: `notes-e2e drives the Notes REST API and web UI through the TC001-TC840
scenario catalog, tears down every account and note it creates and writes
JSON, Markdown and HTML reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return commandError(fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			obs.Init()
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "YAML config file (default $NOTES_E2E_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewServeFakeCommand(opts))

	return cmd
}

// loadConfig layers the config file, the environment and the log level
// flag. Callers apply their own flag overrides and then validate.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	path := o.ConfigFile
	if path == "" {
		path = config.FileFromEnv()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, commandError("load config", err)
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	obs.SetLevel(obs.ParseLevel(cfg.LogLevel))
	return cfg, nil
}
