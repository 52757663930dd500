// Package session persists web sessions in the daybook database.
//
// It implements the store contract generic session middleware expects:
// rows expire lazily, so an expired-but-present row is simply treated
// as absent on read and nothing sweeps the table in the background.
// Payloads are opaque serialized blobs; encryption is not this
// package's concern.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Record is one persisted session.
type Record struct {
	SID       string
	Payload   string
	ExpiresAt time.Time
}

// Store is the session persistence contract used by the web layer.
type Store interface {
	// Get returns the record for sid, or nil when the session is
	// absent or expired.
	Get(ctx context.Context, sid string) (*Record, error)

	// Set upserts the session with a fresh expiry of now + ttl.
	Set(ctx context.Context, sid, payload string, ttl time.Duration) error

	// Destroy deletes the session. Deleting an absent session is not
	// an error.
	Destroy(ctx context.Context, sid string) error

	// Touch extends an existing session's expiry to now + ttl without
	// rewriting the payload. Touching an absent session is a no-op.
	Touch(ctx context.Context, sid string, ttl time.Duration) error

	// Clear deletes all sessions.
	Clear(ctx context.Context) error

	// Count returns the number of unexpired sessions.
	Count(ctx context.Context) (int, error)
}

// SQLiteStore keeps sessions in the sessions table of the main
// database. Expiry is stored as epoch milliseconds.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a session store on an open database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Get returns the session for sid, or nil when absent or expired. An
// expired row found during the read is deleted opportunistically; that
// deletion is best-effort and its failure does not affect the result.
func (s *SQLiteStore) Get(ctx context.Context, sid string) (*Record, error) {
	var payload string
	var expire int64
	err := s.db.QueryRowContext(ctx,
		`SELECT sess, expire FROM sessions WHERE sid = ?`, sid,
	).Scan(&payload, &expire)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if expire < s.now().UnixMilli() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE sid = ?`, sid)
		return nil, nil
	}

	return &Record{
		SID:       sid,
		Payload:   payload,
		ExpiresAt: time.UnixMilli(expire),
	}, nil
}

// Set upserts the session with expiry now + ttl.
func (s *SQLiteStore) Set(ctx context.Context, sid, payload string, ttl time.Duration) error {
	expire := s.now().Add(ttl).UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (sid, sess, expire)
		VALUES (?, ?, ?)
		ON CONFLICT(sid) DO UPDATE SET sess = excluded.sess, expire = excluded.expire
	`, sid, payload, expire)
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Destroy deletes the session. Absent sessions are ignored.
func (s *SQLiteStore) Destroy(ctx context.Context, sid string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE sid = ?`, sid); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// Touch extends the session's expiry to now + ttl, leaving the payload
// untouched. Touching an absent session is a no-op.
func (s *SQLiteStore) Touch(ctx context.Context, sid string, ttl time.Duration) error {
	expire := s.now().Add(ttl).UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET expire = ? WHERE sid = ?`, expire, sid)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Clear deletes all sessions.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return nil
}

// Count returns the number of unexpired sessions. Expired rows that
// have not been lazily deleted yet are excluded.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE expire >= ?`, s.now().UnixMilli(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}
