package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// rebuildStep enumerates the states of the shadow-table rebuild. Every
// state has a defined unwind: roll back the transaction, drop the orphan
// shadow table, restore foreign key enforcement. MigrationError.Step
// records which state failed.
type rebuildStep int

const (
	stepBegin rebuildStep = iota
	stepCreateShadow
	stepCopyRows
	stepDropOriginal
	stepRenameShadow
	stepCommit
)

func (s rebuildStep) String() string {
	switch s {
	case stepBegin:
		return "begin"
	case stepCreateShadow:
		return "create-shadow"
	case stepCopyRows:
		return "copy-rows"
	case stepDropOriginal:
		return "drop-original"
	case stepRenameShadow:
		return "rename-shadow"
	case stepCommit:
		return "commit"
	default:
		return fmt.Sprintf("rebuildStep(%d)", int(s))
	}
}

// RemoveUniqueConstraint drops a uniqueness constraint, or an
// auto-generated unique index, spanning exactly the given columns by
// rebuilding the table through a shadow copy. Returns (false, nil) when
// no such constraint exists - the migration is a no-op on databases
// that never had it or have already been rebuilt.
//
// The rebuild runs as a single transaction whose only externally
// observable effect is the rename: readers see either the old table or
// the new one, never an intermediate state. Rows are preserved exactly,
// except that NOT-NULL timestamp columns holding empty or NULL values
// are backfilled with CURRENT_TIMESTAMP so no row is rejected by the
// target schema. Foreign key enforcement is suspended around the
// transaction; dropping the original table would otherwise cascade into
// child tables.
//
// On failure at any step the transaction is rolled back, the shadow
// table is dropped, and a *MigrationError naming the failed step is
// returned. Callers at startup treat that as a warning, never fatal.
func (m *Manager) RemoveUniqueConstraint(ctx context.Context, table string, columns []string) (bool, error) {
	indexName, err := m.findUniqueIndex(ctx, table, columns)
	if err != nil {
		return false, &MigrationError{Table: table, Step: "introspect", Err: err}
	}
	if indexName == "" {
		return false, nil
	}

	cols, err := m.tableColumns(ctx, table)
	if err != nil {
		return false, &MigrationError{Table: table, Step: "introspect", Err: err}
	}
	fks, err := m.tableForeignKeys(ctx, table)
	if err != nil {
		return false, &MigrationError{Table: table, Step: "introspect", Err: err}
	}

	shadow := table + "_rebuild"
	slog.Info("removing unique constraint via shadow rebuild",
		"table", table, "columns", columns, "index", indexName, "shadow", shadow)

	// The rebuild needs its statements and its pragmas on one connection.
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return false, &MigrationError{Table: table, Step: "connect", Err: err}
	}
	defer conn.Close()

	// A shadow left behind by a previous failed attempt would collide
	// with CREATE TABLE below.
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", shadow)); err != nil {
		return false, &MigrationError{Table: table, Step: "pre-clean", Err: err}
	}

	// foreign_keys cannot change inside a transaction, and with it on,
	// dropping the original table fires ON DELETE CASCADE in children.
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return false, &MigrationError{Table: table, Step: "pre-clean", Err: err}
	}
	defer func() {
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			slog.Error("could not restore foreign key enforcement", "error", err)
		}
	}()

	var tx *sql.Tx
	fail := func(step rebuildStep, cause error) (bool, error) {
		if tx != nil {
			_ = tx.Rollback()
		}
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", shadow)); err != nil {
			slog.Warn("could not drop orphaned shadow table", "shadow", shadow, "error", err)
		}
		return false, &MigrationError{Table: table, Step: step.String(), Err: cause}
	}

	if err := m.stepGate(stepBegin); err != nil {
		return fail(stepBegin, err)
	}
	tx, err = conn.BeginTx(ctx, nil)
	if err != nil {
		return fail(stepBegin, err)
	}

	if err := m.stepGate(stepCreateShadow); err != nil {
		return fail(stepCreateShadow, err)
	}
	if _, err := tx.ExecContext(ctx, buildShadowDDL(shadow, cols, fks)); err != nil {
		return fail(stepCreateShadow, err)
	}

	if err := m.stepGate(stepCopyRows); err != nil {
		return fail(stepCopyRows, err)
	}
	if _, err := tx.ExecContext(ctx, buildCopySQL(table, shadow, cols)); err != nil {
		return fail(stepCopyRows, err)
	}

	if err := m.stepGate(stepDropOriginal); err != nil {
		return fail(stepDropOriginal, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %q", table)); err != nil {
		return fail(stepDropOriginal, err)
	}

	if err := m.stepGate(stepRenameShadow); err != nil {
		return fail(stepRenameShadow, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %q RENAME TO %q", shadow, table)); err != nil {
		return fail(stepRenameShadow, err)
	}

	if err := m.stepGate(stepCommit); err != nil {
		return fail(stepCommit, err)
	}
	if err := tx.Commit(); err != nil {
		return fail(stepCommit, err)
	}

	slog.Info("unique constraint removed", "table", table, "columns", columns)
	return true, nil
}

func (m *Manager) stepGate(step rebuildStep) error {
	if m.beforeStep == nil {
		return nil
	}
	return m.beforeStep(step)
}

// findUniqueIndex returns the name of a unique index spanning exactly
// the given columns, or "" when none exists. Both explicit UNIQUE
// constraints (which SQLite backs with an auto-generated index) and
// unique indexes created separately qualify; the primary key does not.
func (m *Manager) findUniqueIndex(ctx context.Context, table string, columns []string) (string, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%q)", table))
	if err != nil {
		return "", fmt.Errorf("index_list %s: %w", table, err)
	}
	defer rows.Close()

	var candidates []string
	for rows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return "", fmt.Errorf("scan index_list %s: %w", table, err)
		}
		if unique != 1 || origin == "pk" || partial == 1 {
			continue
		}
		candidates = append(candidates, name)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate index_list %s: %w", table, err)
	}

	for _, name := range candidates {
		indexCols, err := m.indexColumns(ctx, name)
		if err != nil {
			return "", err
		}
		if sameColumnSet(indexCols, columns) {
			return name, nil
		}
	}
	return "", nil
}

// indexColumns returns the column names covered by an index.
func (m *Manager) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%q)", index))
	if err != nil {
		return nil, fmt.Errorf("index_info %s: %w", index, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString // NULL for expression index columns
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, fmt.Errorf("scan index_info %s: %w", index, err)
		}
		if name.Valid {
			cols = append(cols, name.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index_info %s: %w", index, err)
	}
	return cols, nil
}

// sameColumnSet compares column name sets, order-insensitive.
// SQLite identifiers compare case-insensitively.
func sameColumnSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, col := range a {
		set[strings.ToLower(col)] = true
	}
	for _, col := range b {
		if !set[strings.ToLower(col)] {
			return false
		}
	}
	return true
}

// buildShadowDDL reconstructs the table's definition from introspected
// metadata, minus any table-level UNIQUE constraint. Column types,
// NOT NULL, defaults, the primary key, and foreign keys all carry over.
func buildShadowDDL(shadow string, cols []columnInfo, fks []foreignKeyInfo) string {
	var pkCols []string
	for _, c := range cols {
		if c.PKIndex > 0 {
			pkCols = append(pkCols, c.Name)
		}
	}

	var defs []string
	for _, c := range cols {
		def := fmt.Sprintf("%q", c.Name)
		if c.Type != "" {
			def += " " + c.Type
		}
		if c.PKIndex == 1 && len(pkCols) == 1 {
			def += " PRIMARY KEY"
		}
		if c.NotNull {
			def += " NOT NULL"
		}
		if c.Default.Valid {
			// table_info reports defaults in SQL source form, quoted and
			// ready to re-emit.
			def += " DEFAULT " + c.Default.String
		}
		defs = append(defs, def)
	}

	if len(pkCols) > 1 {
		defs = append(defs, "PRIMARY KEY ("+quoteJoin(pkCols)+")")
	}

	for _, fk := range fks {
		clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %q", quoteJoin(fk.From), fk.RefTable)
		if len(fk.To) == len(fk.From) {
			clause += " (" + quoteJoin(fk.To) + ")"
		}
		if fk.OnDelete != "" && fk.OnDelete != "NO ACTION" {
			clause += " ON DELETE " + fk.OnDelete
		}
		if fk.OnUpdate != "" && fk.OnUpdate != "NO ACTION" {
			clause += " ON UPDATE " + fk.OnUpdate
		}
		defs = append(defs, clause)
	}

	return fmt.Sprintf("CREATE TABLE %q (%s)", shadow, strings.Join(defs, ", "))
}

// buildCopySQL copies every row from the original into the shadow.
// NOT-NULL timestamp columns substitute CURRENT_TIMESTAMP for empty or
// NULL values so legacy rows are not rejected by the target schema.
func buildCopySQL(table, shadow string, cols []columnInfo) string {
	names := make([]string, len(cols))
	exprs := make([]string, len(cols))
	for i, c := range cols {
		names[i] = fmt.Sprintf("%q", c.Name)
		if c.NotNull && isTimestampType(c.Type) {
			exprs[i] = fmt.Sprintf("COALESCE(NULLIF(%q, ''), CURRENT_TIMESTAMP)", c.Name)
		} else {
			exprs[i] = names[i]
		}
	}
	return fmt.Sprintf("INSERT INTO %q (%s) SELECT %s FROM %q",
		shadow, strings.Join(names, ", "), strings.Join(exprs, ", "), table)
}

func isTimestampType(declared string) bool {
	u := strings.ToUpper(declared)
	return strings.Contains(u, "DATE") || strings.Contains(u, "TIME")
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}
