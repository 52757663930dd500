package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// EntryDetail is the full entry as shown by the show command.
type EntryDetail struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Mood      string         `json:"mood,omitempty"`
	EntryDate string         `json:"entry_date"`
	Pinned    bool           `json:"pinned"`
	Tags      []string       `json:"tags"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Reminders []ReminderView `json:"reminders,omitempty"`
}

// ReminderView is one reminder row of show output.
type ReminderView struct {
	ID       string    `json:"id"`
	RemindAt time.Time `json:"remind_at"`
	Channel  string    `json:"channel"`
	Sent     bool      `json:"sent"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one journal entry in full",
		Long: `Show a single entry with its body, tags, timestamps and any
reminders attached to it.

Example:
  daybook show 6e1f8f0a-4a1c-4f6d-9c8e-2b7d1a3f5c90`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runShow(opts *RootOptions, id string, cmd *cobra.Command) error {
	ctx := context.Background()

	cfg := resolveConfig(opts)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := newJournal(cfg, st)
	e, err := svc.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitFailure, fmt.Sprintf("entry %s not found", id))
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read entry", err)
	}

	reminders, err := svc.EntryReminders(ctx, id)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read reminders", err)
	}

	detail := EntryDetail{
		ID:        e.ID,
		Title:     e.Title,
		Body:      e.Body,
		Mood:      e.Mood,
		EntryDate: e.EntryDate,
		Pinned:    e.Pinned,
		Tags:      e.Tags,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	for _, r := range reminders {
		detail.Reminders = append(detail.Reminders, ReminderView{
			ID:       r.ID,
			RemindAt: r.RemindAt,
			Channel:  r.Channel,
			Sent:     r.Sent,
		})
	}

	return NewOutputFormatter(opts, cmd).Success(detail, func(w io.Writer) {
		fmt.Fprintf(w, "Title: %s\n", detail.Title)
		fmt.Fprintf(w, "Date: %s\n", detail.EntryDate)
		if detail.Mood != "" {
			fmt.Fprintf(w, "Mood: %s\n", detail.Mood)
		}
		if detail.Pinned {
			fmt.Fprintln(w, "Pinned: yes")
		}
		if len(detail.Tags) > 0 {
			fmt.Fprintf(w, "Tags: %s\n", strings.Join(detail.Tags, ", "))
		}
		fmt.Fprintf(w, "Created: %s\n", detail.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "Updated: %s\n", detail.UpdatedAt.Format(time.RFC3339))
		if len(detail.Reminders) > 0 {
			fmt.Fprintln(w, "Reminders:")
			for _, r := range detail.Reminders {
				status := "pending"
				if r.Sent {
					status = "sent"
				}
				fmt.Fprintf(w, "  %s via %s (%s)\n", r.RemindAt.Format(time.RFC3339), r.Channel, status)
			}
		}
		fmt.Fprintf(w, "\n%s\n", detail.Body)
	})
}
