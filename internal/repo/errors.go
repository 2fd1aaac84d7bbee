package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	// It aliases gorm.ErrRecordNotFound.
	ErrNotFound = gorm.ErrRecordNotFound

	// ErrDuplicate indicates a unique constraint rejected an insert.
	ErrDuplicate = errors.New("duplicate")

	// ErrConflict indicates a compare-and-swap write lost against a
	// concurrent writer. The whole operation should be retried by the caller.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrLimitReached indicates a conditional counter increment found the
	// counter already at its maximum.
	ErrLimitReached = errors.New("limit reached")
)

// isUniqueViolation detects unique-constraint violations across drivers that
// may not map to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite: "UNIQUE constraint failed"; Postgres: "duplicate key value violates unique constraint"
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
