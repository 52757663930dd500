package store

import (
	"context"
	"testing"
)

func TestEnsure_FreshDatabaseHasUpgradeColumns(t *testing.T) {
	s := createTestStore(t)

	// Fresh databases get mood and pinned from the base DDL directly;
	// the upgrade pass must treat them as already present.
	columns := getTableColumns(t, s.db, "entries")
	for _, col := range []string{"mood", "pinned"} {
		if !contains(columns, col) {
			t.Errorf("entries table missing column %q", col)
		}
	}
}

func TestEnsure_RunsTwice(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	m := NewManager(s.db)
	if err := m.Ensure(ctx); err != nil {
		t.Fatalf("second Ensure() failed: %v", err)
	}
}

func TestEnsureColumn_AddsMissingColumn(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.db.Exec(`CREATE TABLE scratch (id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("failed to create scratch table: %v", err)
	}

	m := NewManager(s.db)
	if err := m.EnsureColumn(ctx, "scratch", "extra", "TEXT"); err != nil {
		t.Fatalf("EnsureColumn() failed: %v", err)
	}

	columns := getTableColumns(t, s.db, "scratch")
	if !contains(columns, "extra") {
		t.Errorf("scratch table missing column extra, columns: %v", columns)
	}
}

func TestEnsureColumn_PresentColumnIsNoOp(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	m := NewManager(s.db)

	// Twice on the same column: second call must see it and do nothing.
	for i := 0; i < 2; i++ {
		if err := m.EnsureColumn(ctx, "entries", "mood", "TEXT"); err != nil {
			t.Fatalf("EnsureColumn() iteration %d failed: %v", i, err)
		}
	}
}

func TestEnsureColumn_CaseInsensitiveMatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	m := NewManager(s.db)
	if err := m.EnsureColumn(ctx, "entries", "MOOD", "TEXT"); err != nil {
		t.Fatalf("EnsureColumn() with different case failed: %v", err)
	}

	// No second mood-ish column may appear.
	count := 0
	for _, col := range getTableColumns(t, s.db, "entries") {
		if col == "mood" || col == "MOOD" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one mood column, found %d", count)
	}
}

func TestEnsureColumn_InvalidDeclReturnsError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// NOT NULL without a default cannot be added via ALTER.
	m := NewManager(s.db)
	err := m.EnsureColumn(ctx, "entries", "strict_col", "TEXT NOT NULL")
	if err == nil {
		t.Fatal("expected error for NOT NULL column without default, got nil")
	}

	columns := getTableColumns(t, s.db, "entries")
	if contains(columns, "strict_col") {
		t.Error("strict_col should not exist after failed ALTER")
	}
}

func TestEnsureColumn_MissingTableReturnsError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	m := NewManager(s.db)
	err := m.EnsureColumn(ctx, "no_such_table", "extra", "TEXT")
	if err == nil {
		t.Fatal("expected error for missing table, got nil")
	}
}

func TestTableColumns_ReportsMetadata(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	m := NewManager(s.db)
	cols, err := m.tableColumns(ctx, "entries")
	if err != nil {
		t.Fatalf("tableColumns() failed: %v", err)
	}

	byName := map[string]columnInfo{}
	for _, c := range cols {
		byName[c.Name] = c
	}

	id, ok := byName["id"]
	if !ok {
		t.Fatal("id column not reported")
	}
	if id.PKIndex != 1 {
		t.Errorf("id PKIndex = %d, want 1", id.PKIndex)
	}

	title, ok := byName["title"]
	if !ok {
		t.Fatal("title column not reported")
	}
	if !title.NotNull {
		t.Error("title should be NOT NULL")
	}
	if !title.Default.Valid || title.Default.String != "''" {
		t.Errorf("title default = %+v, want ''", title.Default)
	}

	mood, ok := byName["mood"]
	if !ok {
		t.Fatal("mood column not reported")
	}
	if mood.NotNull {
		t.Error("mood should be nullable")
	}
}

func TestTableForeignKeys_ReportsCascade(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	m := NewManager(s.db)
	fks, err := m.tableForeignKeys(ctx, "reminders")
	if err != nil {
		t.Fatalf("tableForeignKeys() failed: %v", err)
	}

	if len(fks) != 1 {
		t.Fatalf("reminders foreign keys = %d, want 1", len(fks))
	}
	fk := fks[0]
	if fk.RefTable != "entries" {
		t.Errorf("RefTable = %q, want entries", fk.RefTable)
	}
	if len(fk.From) != 1 || fk.From[0] != "entry_id" {
		t.Errorf("From = %v, want [entry_id]", fk.From)
	}
	if fk.OnDelete != "CASCADE" {
		t.Errorf("OnDelete = %q, want CASCADE", fk.OnDelete)
	}
}
