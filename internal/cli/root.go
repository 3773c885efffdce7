// Package cli implements the pantry command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flag values and the state resolved from them
// before a subcommand runs.
type RootOptions struct {
	ConfigDir string
	DataDir   string
	Backend   string
	Output    string
	LogLevel  string

	settings *settings
	logger   *slog.Logger
}

// NewRootCommand creates the pantry command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "pantry",
		Short:         "Keep track of what is on the shelves",
		Long:          "pantry records named products with quantities and lets you add,\nfind, delete and watch them from the command line.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd, opts)
			if err != nil {
				if _, ok := err.(*ExitError); ok {
					return err
				}
				return sysError("load configuration", err)
			}
			logger, err := newLogger(cmd.ErrOrStderr(), s.LogLevel)
			if err != nil {
				return userError("configure logging", err)
			}
			opts.settings = s
			opts.logger = logger
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&opts.DataDir, "data-dir", "", "data directory (default: $(CWD)/.pantry-db)")
	pf.StringVar(&opts.Backend, "backend", defaultBackend, "storage backend (sqlite|memory|dynamodb)")
	pf.StringVarP(&opts.Output, "output", "o", defaultOutput, "output format (table|json|yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", defaultLogLevel, "log level (debug|info|warn|error)")

	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newFindCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newShellCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// Execute runs the command tree with args and returns the exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return ExitCode(err)
}

// Main is the process entry point.
func Main() {
	os.Exit(Execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
