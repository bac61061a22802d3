package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/entsync/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	Schema   string
	Driver   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidDrivers lists the SQLite drivers accepted by --driver.
var ValidDrivers = []string{store.DriverCGo, store.DriverPure}

// NewRootCommand creates the root command for the entsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "entsync",
		Short: "entsync - declarative entity synchronization",
		Long: `Reconcile JSON payloads into a local SQLite object store.

Entities, their identity properties and relationships are declared in CUE
or YAML schema files. Each payload is matched by identity, mapped onto the
stored object and its related objects are found or created.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if !slices.Contains(ValidDrivers, opts.Driver) {
				return fmt.Errorf("invalid driver %q: must be one of %v", opts.Driver, ValidDrivers)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the SQLite object store")
	cmd.PersistentFlags().StringVar(&opts.Schema, "schema", "", "directory of CUE/YAML entity declarations")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", store.DriverCGo, "sqlite driver (sqlite3|sqlite)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}
