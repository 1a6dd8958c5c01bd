package gameplay

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage matches every failure raised by the storage engine.
	ErrStorage = errors.New("gameplay storage error")

	// ErrInvalidStatistic is returned for statistics that cannot be persisted.
	ErrInvalidStatistic = errors.New("invalid statistic")
)

// StorageError wraps a connection, query, or commit failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// DataIntegrityError reports a persisted kind-tag that no value kind maps to.
type DataIntegrityError struct {
	ID   int64
	Key  string
	Kind string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("statistic %d (%s) has unsupported value type %q", e.ID, e.Key, e.Kind)
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
