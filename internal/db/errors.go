package db

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation references a note or entry
	// that does not exist. Reads (GetNote) and DeleteNote stay soft instead.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for input the store refuses to persist:
	// empty titles or headings, and reorders that are not a permutation.
	ErrValidation = errors.New("validation failed")
)

// StorageError reports a failure of the underlying SQLite database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorage reports whether err came from the database rather than from
// the caller's input.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
