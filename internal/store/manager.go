package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// Manager brings a live database to the expected schema shape. It is
// introspection-driven: instead of tracking a schema version, each
// operation queries the store's metadata and decides whether work is
// needed, so calling it against any past shape of the database is safe.
type Manager struct {
	db *sql.DB

	// beforeStep, when set, runs before each shadow-rebuild state.
	// Returning an error aborts the rebuild at that state. Tests use it
	// for fault injection.
	beforeStep func(rebuildStep) error
}

// NewManager creates a schema manager for the given database handle.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// upgradeColumns lists columns added after the original release.
// Databases created before them are upgraded in place at startup.
var upgradeColumns = []struct {
	table, column, decl string
}{
	{"entries", "mood", "TEXT"},
	{"entries", "pinned", "INTEGER NOT NULL DEFAULT 0"},
}

// Ensure runs the full schema lifecycle: base tables, column upgrades,
// the constraint-removal migration, then secondary indexes. Only a base
// schema failure is returned; the later stages log a warning and
// continue, trading strictness for availability so a failed migration
// can never keep the application from starting.
//
// Indexes go last: idx_entries_pinned names a column the upgrades add,
// and the shadow rebuild drops a table's indexes with the table.
func (m *Manager) Ensure(ctx context.Context) error {
	if err := m.ensureBaseSchema(ctx); err != nil {
		return fmt.Errorf("ensure base schema: %w", err)
	}

	for _, c := range upgradeColumns {
		if err := m.EnsureColumn(ctx, c.table, c.column, c.decl); err != nil {
			slog.Warn("column migration failed, continuing",
				"table", c.table, "column", c.column, "error", err)
		}
	}

	// Early releases enforced one entry per day. Removing the unique
	// constraint requires a full table rebuild on databases that still
	// carry it; fresh databases are a no-op.
	if _, err := m.RemoveUniqueConstraint(ctx, "entries", []string{"entry_date"}); err != nil {
		slog.Warn("constraint migration failed, continuing", "table", "entries", "error", err)
	}

	if err := m.ensureIndexes(ctx); err != nil {
		slog.Warn("index creation failed, continuing", "error", err)
	}

	return nil
}

// ensureBaseSchema creates all tables if absent.
// Idempotent: every statement in schema.sql is IF NOT EXISTS.
func (m *Manager) ensureBaseSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// ensureIndexes creates all secondary indexes if absent.
func (m *Manager) ensureIndexes(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, indexesSQL); err != nil {
		return fmt.Errorf("execute indexes: %w", err)
	}
	return nil
}

// EnsureColumn adds a column to a table if it is not already present.
//
// The "already exists" outcome is classified structurally rather than by
// matching the driver's error prose: the column set is introspected
// before the ALTER, and again after a failed ALTER in case another code
// path added the column in between. A column that turns out to be
// present is success; any other failure is returned for the caller to
// log as a non-fatal warning.
func (m *Manager) EnsureColumn(ctx context.Context, table, column, decl string) error {
	present, err := m.columnExists(ctx, table, column)
	if err != nil {
		return fmt.Errorf("ensure column %s.%s: %w", table, column, err)
	}
	if present {
		return nil
	}

	_, alterErr := m.db.ExecContext(ctx,
		fmt.Sprintf("ALTER TABLE %q ADD COLUMN %q %s", table, column, decl))
	if alterErr == nil {
		slog.Info("added column", "table", table, "column", column)
		return nil
	}

	present, err = m.columnExists(ctx, table, column)
	if err == nil && present {
		return nil
	}
	return fmt.Errorf("ensure column %s.%s: %w", table, column, alterErr)
}

// columnInfo describes one column from PRAGMA table_info.
type columnInfo struct {
	Name    string
	Type    string
	NotNull bool
	Default sql.NullString
	PKIndex int // 1-based position within the primary key, 0 otherwise
}

func (m *Manager) columnExists(ctx context.Context, table, column string) (bool, error) {
	cols, err := m.tableColumns(ctx, table)
	if err != nil {
		return false, err
	}
	for _, c := range cols {
		if strings.EqualFold(c.Name, column) {
			return true, nil
		}
	}
	return false, nil
}

// tableColumns introspects a table's columns in declaration order.
func (m *Manager) tableColumns(ctx context.Context, table string) ([]columnInfo, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var (
			cid     int
			c       columnInfo
			notnull int
		)
		if err := rows.Scan(&cid, &c.Name, &c.Type, &notnull, &c.Default, &c.PKIndex); err != nil {
			return nil, fmt.Errorf("scan table_info %s: %w", table, err)
		}
		c.NotNull = notnull != 0
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table_info %s: %w", table, err)
	}
	return cols, nil
}

// foreignKeyInfo describes one foreign key reconstructed from
// PRAGMA foreign_key_list, with composite keys already grouped.
type foreignKeyInfo struct {
	RefTable string
	From     []string
	To       []string
	OnUpdate string
	OnDelete string
}

// tableForeignKeys introspects a table's outgoing foreign keys.
func (m *Manager) tableForeignKeys(ctx context.Context, table string) ([]foreignKeyInfo, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("foreign_key_list %s: %w", table, err)
	}
	defer rows.Close()

	byID := map[int]*foreignKeyInfo{}
	var order []int
	for rows.Next() {
		var (
			id, seq            int
			refTable, from     string
			to                 sql.NullString
			onUpdate, onDelete string
			match              string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("scan foreign_key_list %s: %w", table, err)
		}
		fk, ok := byID[id]
		if !ok {
			fk = &foreignKeyInfo{RefTable: refTable, OnUpdate: onUpdate, OnDelete: onDelete}
			byID[id] = fk
			order = append(order, id)
		}
		fk.From = append(fk.From, from)
		if to.Valid {
			fk.To = append(fk.To, to.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign_key_list %s: %w", table, err)
	}

	fks := make([]foreignKeyInfo, 0, len(order))
	for _, id := range order {
		fks = append(fks, *byID[id])
	}
	return fks, nil
}
