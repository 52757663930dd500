package store

import (
	"errors"
	"fmt"
)

// MigrationError reports a failure inside a schema migration. It carries
// the rebuild step that failed so partial-failure behavior is an
// assertable property, not an artifact of error propagation.
//
// Migration errors are never fatal: Ensure logs them as warnings and
// startup continues on the old schema shape.
type MigrationError struct {
	// Table is the table the migration was operating on.
	Table string

	// Step names the rebuild state that failed (see rebuildStep).
	Step string

	// Err is the underlying error.
	Err error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migrate %s (%s): %v", e.Table, e.Step, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// IsMigrationError returns true if the error is a MigrationError.
// Uses errors.As to handle wrapped errors.
func IsMigrationError(err error) bool {
	var me *MigrationError
	return errors.As(err, &me)
}
