package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the store and repository layers.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDanglingReference indicates a foreign-key target does not exist.
	ErrDanglingReference = errors.New("dangling reference")
)

// WrapDBError wraps a database error with operation context, converting
// sql.ErrNoRows to ErrNotFound so callers can use errors.Is uniformly.
func WrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
