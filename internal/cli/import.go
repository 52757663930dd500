package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daybookhq/daybook/internal/crypto"
	"github.com/daybookhq/daybook/internal/export"
	"github.com/daybookhq/daybook/internal/store"
)

// ImportOptions holds options for the import command.
type ImportOptions struct {
	*RootOptions
	CSV      bool
	Password string
}

// ImportResult reports a completed import.
type ImportResult struct {
	Imported int    `json:"imported"`
	File     string `json:"file"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import entries from an exported document",
		Long: `Import entries from a previously exported document. Encrypted
exports are detected by their envelope and need --password; plain
files are read as JSON unless --csv says otherwise.

The whole document is validated before anything is written, and the
entries land in a single transaction: a rejected document imports
nothing.

Examples:
  daybook import journal.json
  daybook import --csv journal.csv
  daybook import --password "travel copy" journal.enc`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.CSV, "csv", false, "read the file as CSV")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password for encrypted exports")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	ctx := context.Background()
	f := NewOutputFormatter(opts.RootOptions, cmd)

	raw, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read import file", err)
	}
	f.VerboseLog("Read %d bytes from %s", len(raw), path)

	var doc export.Document
	switch {
	case crypto.IsEncrypted(strings.TrimSpace(string(raw))):
		if opts.Password == "" {
			return NewExitError(ExitCommandError, "file is encrypted: supply --password")
		}
		doc, err = export.Decrypt(strings.TrimSpace(string(raw)), opts.Password)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to decrypt import file", err)
		}
	case opts.CSV:
		doc, err = export.ParseCSV(raw)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to parse CSV document", err)
		}
	default:
		doc, err = export.ParseJSON(raw)
		if err != nil {
			return WrapExitError(ExitFailure, "invalid import document", err)
		}
	}

	cfg := resolveConfig(opts.RootOptions)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	entries := make([]store.Entry, 0, len(doc.Entries))
	for _, r := range doc.Entries {
		entries = append(entries, r.Entry())
	}

	svc := newJournal(cfg, st)
	n, err := svc.Import(ctx, entries)
	if err != nil {
		return WrapExitError(ExitFailure, "import failed", err)
	}

	return f.Success(ImportResult{Imported: n, File: path}, func(w io.Writer) {
		fmt.Fprintf(w, "Imported %d entries from %s\n", n, path)
	})
}
