// internal/errors/mapper.go
package errors

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound signals a profile/game lookup miss. Callers surface it as an
// empty-result outcome ("no profile yet"), never as a raw failure.
var ErrNotFound = errors.New("record not found")

// ErrSelfAction guards ledger writes against a user acting on their own
// profile. The selector never hands out the viewer's own profile, so this
// only trips on malformed signals; the orchestrator drops the event.
var ErrSelfAction = errors.New("cannot act on own profile")

// StorageError wraps an underlying store failure. It is fatal to the
// current event only; session drafts survive it so the user can retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError, passing nil through.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsNotFound reports whether err is a lookup miss, from this package or
// straight out of gorm.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// IsConstraintViolation reports whether err is a unique-constraint breach.
// Idempotent tables (likes, matches, viewed marks) treat it as "already
// consistent" and swallow it locally.
//
// Checked via gorm's translated error first, then driver message sniffing
// since MySQL (1062 "Duplicate entry") and SQLite ("UNIQUE constraint
// failed") report it differently and not every driver translates.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "unique constraint")
}
