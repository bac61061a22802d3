package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/entsync/internal/schema"
	"github.com/roach88/entsync/internal/store"
)

// newFormatter builds the formatter for a command's output streams.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// newLogger returns a text logger on w. Debug output is enabled with
// --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openStore opens the store named by --db with the selected driver.
func openStore(opts *RootOptions, logger *slog.Logger) (*store.Store, error) {
	if opts.Database == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	driver := opts.Driver
	if driver == "" {
		driver = store.DriverCGo
	}
	st, err := store.Open(opts.Database, store.WithDriver(driver), store.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// loadRegistry loads the declarations in --schema.
func loadRegistry(opts *RootOptions) (*schema.Registry, error) {
	if opts.Schema == "" {
		return nil, NewExitError(ExitCommandError, "--schema is required")
	}
	reg, err := schema.LoadRegistry(opts.Schema)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	return reg, nil
}
