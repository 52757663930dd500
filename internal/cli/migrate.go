package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daybookhq/daybook/internal/store"
)

// MigrateResult reports the store state after schema maintenance.
type MigrateResult struct {
	Database string   `json:"database"`
	Tables   []string `json:"tables"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database up to the expected schema",
		Long: `Open the database and run schema maintenance: create missing tables
and indexes, add columns introduced after the first release, and
rebuild tables that still carry retired constraints.

Every command runs the same maintenance on startup; migrate exists to
do it explicitly and report the result.

Example:
  daybook migrate --db ./daybook.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, cmd)
		},
	}

	return cmd
}

func runMigrate(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	cfg := resolveConfig(opts)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	tables, err := listTables(ctx, st)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to inspect schema", err)
	}

	result := MigrateResult{Database: cfg.DatabasePath, Tables: tables}

	return NewOutputFormatter(opts, cmd).Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Database ready: %s\n", result.Database)
		fmt.Fprintf(w, "Tables: %s\n", strings.Join(result.Tables, ", "))
	})
}

// listTables reads the user table names from sqlite_master.
func listTables(ctx context.Context, st *store.Store) ([]string, error) {
	rows, err := st.Query(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}
