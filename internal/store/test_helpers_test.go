package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntry builds an entry with the fields tests care about.
func createTestEntry(title, date string, tags ...string) Entry {
	return Entry{
		Title:     title,
		Body:      "body of " + title,
		EntryDate: date,
		Tags:      tags,
	}
}

// mustCreateEntry inserts an entry and returns its ID.
func mustCreateEntry(t *testing.T, s *Store, e Entry) string {
	t.Helper()
	id, err := s.CreateEntry(context.Background(), e)
	if err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}
	return id
}
