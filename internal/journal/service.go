// Package journal is the application layer over the store: it owns
// at-rest encryption of entry content and tag canonicalization, so no
// caller ever hands plaintext to the store or reads ciphertext out of
// it.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/daybookhq/daybook/internal/crypto"
	"github.com/daybookhq/daybook/internal/store"
)

// Service wraps the store with the at-rest codec. Title and body are
// encrypted before every write and decrypted after every read; mood,
// dates, and tags stay plaintext because the store filters on them.
type Service struct {
	store *store.Store
	codec *crypto.Codec
}

// NewService creates the journal service.
func NewService(st *store.Store, codec *crypto.Codec) *Service {
	return &Service{store: st, codec: codec}
}

// Create encrypts the entry's content and persists it. Tags are
// canonicalized first. Returns the new entry's ID.
func (s *Service) Create(ctx context.Context, e store.Entry) (string, error) {
	enc, err := s.encryptContent(e)
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	return s.store.CreateEntry(ctx, enc)
}

// Get returns the entry with its content decrypted. Legacy plaintext
// rows pass through unchanged.
func (s *Service) Get(ctx context.Context, id string) (store.Entry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return store.Entry{}, err
	}
	return s.decryptContent(e), nil
}

// Update re-encrypts the entry's content with a fresh IV and rewrites
// the row. Ciphertext is never mutated in place.
func (s *Service) Update(ctx context.Context, e store.Entry) error {
	enc, err := s.encryptContent(e)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return s.store.UpdateEntry(ctx, enc)
}

// Delete removes an entry and everything hanging off it.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteEntry(ctx, id)
}

// Pin sets or clears an entry's pinned flag.
func (s *Service) Pin(ctx context.Context, id string, pinned bool) error {
	return s.store.SetPinned(ctx, id, pinned)
}

// List returns matching entries with their content decrypted.
func (s *Service) List(ctx context.Context, filter store.EntryFilter) ([]store.Entry, error) {
	entries, err := s.store.ListEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i] = s.decryptContent(entries[i])
	}
	return entries, nil
}

// Tags returns all tag names in use.
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	return s.store.ListTags(ctx)
}

// AddReminder schedules a reminder for an entry.
func (s *Service) AddReminder(ctx context.Context, entryID string, at time.Time, channel string) (string, error) {
	return s.store.CreateReminder(ctx, store.Reminder{
		EntryID:  entryID,
		RemindAt: at,
		Channel:  channel,
	})
}

// DueReminders returns unsent reminders due at or before now.
func (s *Service) DueReminders(ctx context.Context, now time.Time) ([]store.Reminder, error) {
	return s.store.DueReminders(ctx, now)
}

// EntryReminders lists all reminders attached to one entry.
func (s *Service) EntryReminders(ctx context.Context, entryID string) ([]store.Reminder, error) {
	return s.store.EntryReminders(ctx, entryID)
}

// MarkReminderSent flags a reminder as delivered.
func (s *Service) MarkReminderSent(ctx context.Context, id string) error {
	return s.store.MarkReminderSent(ctx, id)
}

// Import encrypts and inserts a batch of entries in one transaction, so
// a failed import leaves no partial rows behind. Returns the number of
// entries written.
func (s *Service) Import(ctx context.Context, entries []store.Entry) (int, error) {
	sealed := make([]store.Entry, 0, len(entries))
	for _, e := range entries {
		enc, err := s.encryptContent(e)
		if err != nil {
			return 0, fmt.Errorf("import: %w", err)
		}
		sealed = append(sealed, enc)
	}

	ids, err := s.store.CreateEntries(ctx, sealed)
	if err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}
	return len(ids), nil
}

// EncryptBackfill encrypts any stored content still in legacy
// plaintext and reports how many entries were rewritten. Rows already
// in envelope form are skipped, so the operation is safe to rerun and
// safe to interrupt; a partial run just leaves fewer plaintext rows
// for the next one. Timestamps are untouched since the visible content
// does not change.
func (s *Service) EncryptBackfill(ctx context.Context) (int, error) {
	entries, err := s.store.ListEntries(ctx, store.EntryFilter{})
	if err != nil {
		return 0, fmt.Errorf("backfill: %w", err)
	}

	rewritten := 0
	for _, e := range entries {
		if crypto.IsEnvelope(e.Title) && crypto.IsEnvelope(e.Body) {
			continue
		}

		title, body := e.Title, e.Body
		if !crypto.IsEnvelope(title) {
			if title, err = s.codec.Encrypt(title); err != nil {
				return rewritten, fmt.Errorf("backfill entry %s: %w", e.ID, err)
			}
		}
		if !crypto.IsEnvelope(body) {
			if body, err = s.codec.Encrypt(body); err != nil {
				return rewritten, fmt.Errorf("backfill entry %s: %w", e.ID, err)
			}
		}

		if err := s.store.RewriteEntryContent(ctx, e.ID, title, body); err != nil {
			return rewritten, fmt.Errorf("backfill entry %s: %w", e.ID, err)
		}
		rewritten++
	}

	return rewritten, nil
}

func (s *Service) encryptContent(e store.Entry) (store.Entry, error) {
	title, err := s.codec.Encrypt(e.Title)
	if err != nil {
		return store.Entry{}, err
	}
	body, err := s.codec.Encrypt(e.Body)
	if err != nil {
		return store.Entry{}, err
	}
	e.Title = title
	e.Body = body
	e.Tags = normalizeTags(e.Tags)
	return e, nil
}

func (s *Service) decryptContent(e store.Entry) store.Entry {
	e.Title = s.codec.SafeDecrypt(e.Title)
	e.Body = s.codec.SafeDecrypt(e.Body)
	return e
}
