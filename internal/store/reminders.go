package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reminder schedules a nudge for an entry.
type Reminder struct {
	ID       string
	EntryID  string
	RemindAt time.Time
	Channel  string
	Sent     bool
}

// DefaultReminderChannel is used when a reminder is created without one.
const DefaultReminderChannel = "email"

// CreateReminder inserts a reminder for an entry. A missing ID is
// filled with a fresh UUID and a missing channel defaults to email.
// Returns the stored ID.
//
// RemindAt is stored as UTC truncated to whole seconds; the driver
// encodes timestamps as text, and a uniform offset and precision keep
// SQL comparisons against them correct.
func (s *Store) CreateReminder(ctx context.Context, r Reminder) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Channel == "" {
		r.Channel = DefaultReminderChannel
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders
		(id, entry_id, remind_at, channel, sent)
		VALUES (?, ?, ?, ?, 0)
	`,
		r.ID,
		r.EntryID,
		r.RemindAt.UTC().Truncate(time.Second),
		r.Channel,
	)
	if err != nil {
		return "", fmt.Errorf("create reminder: %w", err)
	}

	return r.ID, nil
}

// DueReminders returns unsent reminders whose remind_at is at or before
// now, soonest first with ID as the deterministic tiebreak.
//
// Returns an empty slice (not nil) when none are due.
func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_id, remind_at, channel, sent
		FROM reminders
		WHERE sent = 0 AND remind_at <= ?
		ORDER BY remind_at ASC, id COLLATE BINARY ASC
	`, now.UTC().Truncate(time.Second))
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	defer rows.Close()

	return collectReminders(rows)
}

// EntryReminders returns all reminders attached to an entry, soonest
// first. Returns an empty slice (not nil) when there are none.
func (s *Store) EntryReminders(ctx context.Context, entryID string) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_id, remind_at, channel, sent
		FROM reminders
		WHERE entry_id = ?
		ORDER BY remind_at ASC, id COLLATE BINARY ASC
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("query entry reminders: %w", err)
	}
	defer rows.Close()

	return collectReminders(rows)
}

// MarkReminderSent flags a reminder as delivered.
// Returns sql.ErrNoRows (wrapped) if the reminder does not exist.
func (s *Store) MarkReminderSent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE reminders SET sent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark reminder sent: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("mark reminder sent %s: %w", id, sql.ErrNoRows)
	}

	return nil
}

// DeleteReminder removes a reminder.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) DeleteReminder(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete reminder: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("delete reminder %s: %w", id, sql.ErrNoRows)
	}

	return nil
}

func collectReminders(rows *sql.Rows) ([]Reminder, error) {
	var reminders []Reminder
	for rows.Next() {
		var r Reminder
		var sent int
		if err := rows.Scan(&r.ID, &r.EntryID, &r.RemindAt, &r.Channel, &sent); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.Sent = sent != 0
		reminders = append(reminders, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reminders: %w", err)
	}

	if reminders == nil {
		reminders = []Reminder{}
	}

	return reminders, nil
}
