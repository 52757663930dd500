package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// BackfillResult reports how many entries were rewritten.
type BackfillResult struct {
	Converted int `json:"converted"`
}

// NewBackfillCommand creates the backfill command.
func NewBackfillCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Encrypt legacy plaintext entries in place",
		Long: `Rewrite entries whose title and body are still stored as plaintext
into the encrypted at-rest form. Entries already encrypted are left
alone, so the command is safe to rerun and safe to interrupt.

Example:
  daybook backfill --db ./daybook.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(rootOpts, cmd)
		},
	}

	return cmd
}

func runBackfill(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	cfg := resolveConfig(opts)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := newJournal(cfg, st)
	n, err := svc.EncryptBackfill(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "backfill failed", err)
	}

	return NewOutputFormatter(opts, cmd).Success(BackfillResult{Converted: n}, func(w io.Writer) {
		if n == 0 {
			fmt.Fprintln(w, "All entries already encrypted.")
			return
		}
		fmt.Fprintf(w, "Re-encrypted %d entries.\n", n)
	})
}
