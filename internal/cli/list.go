package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/daybookhq/daybook/internal/store"
)

// ListOptions holds options for the list command.
type ListOptions struct {
	*RootOptions
	Mood   string
	Tag    string
	From   string
	To     string
	Pinned bool
	Limit  int
}

// EntryView is one row of list output. Bodies stay out of listings;
// use show for the full entry.
type EntryView struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Mood      string   `json:"mood,omitempty"`
	EntryDate string   `json:"entry_date"`
	Pinned    bool     `json:"pinned"`
	Tags      []string `json:"tags"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries",
		Long: `List journal entries, newest first. Filters combine with AND.

Examples:
  daybook list
  daybook list --mood calm --tag garden
  daybook list --from 2024-03-01 --to 2024-03-31 --limit 10
  daybook list --pinned`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mood, "mood", "", "only entries with this mood")
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "only entries carrying this tag")
	cmd.Flags().StringVar(&opts.From, "from", "", "inclusive lower date bound, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.To, "to", "", "inclusive upper date bound, YYYY-MM-DD")
	cmd.Flags().BoolVar(&opts.Pinned, "pinned", false, "only pinned entries")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of entries (0 = no limit)")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if err := validateDateFlag("--from", opts.From); err != nil {
		return err
	}
	if err := validateDateFlag("--to", opts.To); err != nil {
		return err
	}

	cfg := resolveConfig(opts.RootOptions)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := newJournal(cfg, st)
	entries, err := svc.List(ctx, store.EntryFilter{
		Mood:       opts.Mood,
		Tag:        opts.Tag,
		From:       opts.From,
		To:         opts.To,
		PinnedOnly: opts.Pinned,
		Limit:      opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list entries", err)
	}

	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, EntryView{
			ID:        e.ID,
			Title:     e.Title,
			Mood:      e.Mood,
			EntryDate: e.EntryDate,
			Pinned:    e.Pinned,
			Tags:      e.Tags,
		})
	}

	return NewOutputFormatter(opts.RootOptions, cmd).Success(views, func(w io.Writer) {
		if len(views) == 0 {
			fmt.Fprintln(w, "No entries found.")
			return
		}
		for _, v := range views {
			pin := "  "
			if v.Pinned {
				pin = "* "
			}
			line := fmt.Sprintf("%s%s  %s  %s", pin, v.EntryDate, shortID(v.ID), v.Title)
			if v.Mood != "" {
				line += fmt.Sprintf("  (%s)", v.Mood)
			}
			if len(v.Tags) > 0 {
				line += fmt.Sprintf("  [%s]", strings.Join(v.Tags, ", "))
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintf(w, "\nEntries: %d\n", len(views))
	})
}

// validateDateFlag rejects a non-empty date flag that is not YYYY-MM-DD.
func validateDateFlag(name, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid %s %q: want YYYY-MM-DD", name, value))
	}
	return nil
}

// shortID truncates a UUID for display.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
