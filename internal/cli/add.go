package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/daybookhq/daybook/internal/store"
)

// AddOptions holds options for the add command.
type AddOptions struct {
	*RootOptions
	Body string
	Date string
	Mood string
	Tags []string
	Pin  bool
}

// AddResult reports the entry created by the add command.
type AddResult struct {
	ID        string `json:"id"`
	EntryDate string `json:"entry_date"`
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a journal entry",
		Long: `Create a journal entry. The title comes from the argument; the body,
mood, tags and date come from flags. The date defaults to today.

Examples:
  daybook add "Morning pages" --body "Slept well." --mood calm
  daybook add "Trip notes" --date 2024-03-01 --tags travel,food --pin`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Body, "body", "", "entry body text")
	cmd.Flags().StringVar(&opts.Date, "date", "", "entry date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&opts.Mood, "mood", "", "mood label")
	cmd.Flags().StringSliceVar(&opts.Tags, "tags", nil, "comma-separated tags")
	cmd.Flags().BoolVar(&opts.Pin, "pin", false, "pin the entry")

	return cmd
}

func runAdd(opts *AddOptions, title string, cmd *cobra.Command) error {
	ctx := context.Background()

	date := opts.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --date %q: want YYYY-MM-DD", opts.Date))
	}

	cfg := resolveConfig(opts.RootOptions)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := newJournal(cfg, st)
	id, err := svc.Create(ctx, store.Entry{
		Title:     title,
		Body:      opts.Body,
		Mood:      opts.Mood,
		EntryDate: date,
		Pinned:    opts.Pin,
		Tags:      opts.Tags,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to create entry", err)
	}

	return NewOutputFormatter(opts.RootOptions, cmd).Success(AddResult{ID: id, EntryDate: date}, func(w io.Writer) {
		fmt.Fprintf(w, "Created entry %s (%s)\n", id, date)
	})
}
