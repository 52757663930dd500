package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/daybookhq/daybook/internal/session"
)

// SessionsCountResult reports the number of live sessions.
type SessionsCountResult struct {
	Sessions int `json:"sessions"`
}

// NewSessionsCommand groups the session maintenance subcommands.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and prune stored web sessions",
		Long: `Web sessions live in the same database as the journal. count reports
how many unexpired sessions exist; clear logs everyone out by deleting
them all.`,
	}

	cmd.AddCommand(newSessionsCountCommand(rootOpts))
	cmd.AddCommand(newSessionsClearCommand(rootOpts))

	return cmd
}

func newSessionsCountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count live sessions",
		Long: `Count sessions that have not expired yet.

Example:
  daybook sessions count --db ./daybook.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsCount(rootOpts, cmd)
		},
	}
}

func newSessionsClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all sessions",
		Long: `Delete every stored session, expired or not. Everyone currently
signed in has to sign in again.

Example:
  daybook sessions clear --db ./daybook.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsClear(rootOpts, cmd)
		},
	}
}

func runSessionsCount(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	cfg := resolveConfig(opts)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := session.NewSQLiteStore(st.DB()).Count(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to count sessions", err)
	}

	return NewOutputFormatter(opts, cmd).Success(SessionsCountResult{Sessions: n}, func(w io.Writer) {
		fmt.Fprintf(w, "Live sessions: %d\n", n)
	})
}

func runSessionsClear(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	cfg := resolveConfig(opts)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := session.NewSQLiteStore(st.DB()).Clear(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to clear sessions", err)
	}

	return NewOutputFormatter(opts, cmd).Success(map[string]string{"cleared": "all"}, func(w io.Writer) {
		fmt.Fprintln(w, "Cleared all sessions.")
	})
}
