package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is a journal entry row. Title and Body hold whatever the caller
// wrote - the store does not know or care whether they are encrypted
// envelopes or plaintext.
type Entry struct {
	ID        string
	Title     string
	Body      string
	Mood      string // optional, "" means unset
	EntryDate string // YYYY-MM-DD
	Pinned    bool
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryFilter narrows ListEntries. Zero values mean "no constraint".
type EntryFilter struct {
	Mood       string
	Tag        string
	From       string // inclusive entry_date lower bound, YYYY-MM-DD
	To         string // inclusive entry_date upper bound, YYYY-MM-DD
	PinnedOnly bool
	Limit      int
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// CreateEntry inserts an entry and its tag links in one transaction.
// A missing ID is filled with a fresh UUID. Returns the stored ID.
func (s *Store) CreateEntry(ctx context.Context, e Entry) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("create entry: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	id, err := insertEntry(ctx, tx, e)
	if err != nil {
		return "", fmt.Errorf("create entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("create entry: commit: %w", err)
	}

	return id, nil
}

// CreateEntries inserts a batch of entries in a single transaction:
// either every entry lands or none do. Returns the stored IDs in input
// order.
func (s *Store) CreateEntries(ctx context.Context, entries []Entry) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create entries: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	ids := make([]string, 0, len(entries))
	for i, e := range entries {
		id, err := insertEntry(ctx, tx, e)
		if err != nil {
			return nil, fmt.Errorf("create entries: entry %d: %w", i, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create entries: commit: %w", err)
	}

	return ids, nil
}

// insertEntry writes one entry row plus its tag links inside tx.
func insertEntry(ctx context.Context, tx *sql.Tx, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO entries
		(id, title, body, mood, entry_date, pinned)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Title,
		e.Body,
		nullIfEmpty(e.Mood),
		e.EntryDate,
		boolToInt(e.Pinned),
	)
	if err != nil {
		return "", err
	}

	if err := replaceEntryTags(ctx, tx, e.ID, e.Tags); err != nil {
		return "", err
	}

	return e.ID, nil
}

// GetEntry retrieves a single entry by ID, tags included.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetEntry(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, body, mood, entry_date, pinned, created_at, updated_at
		FROM entries
		WHERE id = ?
	`, id)

	e, err := scanEntry(row)
	if err != nil {
		return Entry{}, err
	}

	tags, err := s.entryTags(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	e.Tags = tags

	return e, nil
}

// UpdateEntry rewrites an entry's content fields and replaces its tag
// links. The row's updated_at is bumped to the current time.
// Returns sql.ErrNoRows (wrapped) if the entry does not exist.
func (s *Store) UpdateEntry(ctx context.Context, e Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update entry: begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE entries
		SET title = ?, body = ?, mood = ?, entry_date = ?, pinned = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`,
		e.Title,
		e.Body,
		nullIfEmpty(e.Mood),
		e.EntryDate,
		boolToInt(e.Pinned),
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entry: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("update entry %s: %w", e.ID, sql.ErrNoRows)
	}

	if err := replaceEntryTags(ctx, tx, e.ID, e.Tags); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update entry: commit: %w", err)
	}

	return nil
}

// DeleteEntry removes an entry. Tag links and reminders go with it via
// ON DELETE CASCADE. Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("delete entry %s: %w", id, sql.ErrNoRows)
	}

	return nil
}

// RewriteEntryContent replaces only the stored title and body, leaving
// updated_at and everything else alone. Used when re-encoding stored
// content in place, where nothing the user sees has changed.
// Returns sql.ErrNoRows (wrapped) if the entry does not exist.
func (s *Store) RewriteEntryContent(ctx context.Context, id, title, body string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE entries SET title = ?, body = ? WHERE id = ?
	`, title, body, id)
	if err != nil {
		return fmt.Errorf("rewrite entry content: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rewrite entry content: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("rewrite entry content %s: %w", id, sql.ErrNoRows)
	}

	return nil
}

// SetPinned flips an entry's pinned flag.
// Returns sql.ErrNoRows (wrapped) if the entry does not exist.
func (s *Store) SetPinned(ctx context.Context, id string, pinned bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE entries SET pinned = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, boolToInt(pinned), id)
	if err != nil {
		return fmt.Errorf("set pinned: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set pinned: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("set pinned %s: %w", id, sql.ErrNoRows)
	}

	return nil
}

// ListEntries returns entries matching the filter, newest entry_date
// first with ID as the deterministic tiebreak. Tags are batch-loaded
// with a single query rather than one per entry.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	query := `
		SELECT e.id, e.title, e.body, e.mood, e.entry_date, e.pinned, e.created_at, e.updated_at
		FROM entries e
	`
	var conds []string
	var args []any

	if filter.Tag != "" {
		query += `
		JOIN entry_tags et ON et.entry_id = e.id
		JOIN tags t ON t.id = et.tag_id
		`
		conds = append(conds, "t.name = ?")
		args = append(args, filter.Tag)
	}
	if filter.Mood != "" {
		conds = append(conds, "e.mood = ?")
		args = append(args, filter.Mood)
	}
	if filter.From != "" {
		conds = append(conds, "e.entry_date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		conds = append(conds, "e.entry_date <= ?")
		args = append(args, filter.To)
	}
	if filter.PinnedOnly {
		conds = append(conds, "e.pinned = 1")
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY e.entry_date DESC, e.id COLLATE BINARY ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	if entries == nil {
		return []Entry{}, nil
	}

	tagsByEntry, err := s.entryTagsBatch(ctx, entries)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Tags = tagsByEntry[entries[i].ID]
	}

	return entries, nil
}

// ListTags returns all tag names in use, sorted.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	if names == nil {
		names = []string{}
	}

	return names, nil
}

// scanEntry scans an entries row into an Entry. Tags are loaded
// separately.
func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var mood sql.NullString
	var pinned int

	if err := row.Scan(
		&e.ID, &e.Title, &e.Body, &mood, &e.EntryDate, &pinned,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	e.Mood = mood.String
	e.Pinned = pinned != 0

	return e, nil
}

// entryTags returns an entry's tag names, sorted.
func (s *Store) entryTags(ctx context.Context, entryID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name
		FROM tags t
		JOIN entry_tags et ON et.tag_id = t.id
		WHERE et.entry_id = ?
		ORDER BY t.name ASC
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("query entry tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan entry tag: %w", err)
		}
		tags = append(tags, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry tags: %w", err)
	}

	return tags, nil
}

// entryTagsBatch loads tag names for a set of entries in one query,
// keyed by entry ID.
func (s *Store) entryTagsBatch(ctx context.Context, entries []Entry) (map[string][]string, error) {
	if len(entries) == 0 {
		return map[string][]string{}, nil
	}

	placeholders := make([]byte, 0, len(entries)*2-1)
	args := make([]any, len(entries))
	for i, e := range entries {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = e.ID
	}

	query := `
		SELECT et.entry_id, t.name
		FROM entry_tags et
		JOIN tags t ON t.id = et.tag_id
		WHERE et.entry_id IN (` + string(placeholders) + `)
		ORDER BY t.name ASC
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("batch entry tags: %w", err)
	}
	defer rows.Close()

	tagsByEntry := make(map[string][]string)
	for rows.Next() {
		var entryID, name string
		if err := rows.Scan(&entryID, &name); err != nil {
			return nil, fmt.Errorf("scan batch entry tag: %w", err)
		}
		tagsByEntry[entryID] = append(tagsByEntry[entryID], name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch entry tags: %w", err)
	}

	return tagsByEntry, nil
}

// replaceEntryTags rewrites the entry's tag links inside the caller's
// transaction. Tag rows are created on first use and shared across
// entries; unlinking never deletes the tag row itself.
func replaceEntryTags(ctx context.Context, tx *sql.Tx, entryID string, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_tags WHERE entry_id = ?`, entryID); err != nil {
		return fmt.Errorf("clear entry tags: %w", err)
	}

	for _, name := range tags {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tags (id, name) VALUES (?, ?)
			ON CONFLICT(name) DO NOTHING
		`, uuid.NewString(), name)
		if err != nil {
			return fmt.Errorf("upsert tag %q: %w", name, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO entry_tags (entry_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?
			ON CONFLICT(entry_id, tag_id) DO NOTHING
		`, entryID, name)
		if err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}

	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
