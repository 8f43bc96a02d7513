package fraud

import (
	"errors"
	"fmt"
)

var (
	// ErrResultNotFound is returned when no stored result matches the lookup
	ErrResultNotFound = errors.New("fraud detection result not found")
	// ErrResultExists is returned when saving a result whose id is already taken
	ErrResultExists = errors.New("fraud detection result already exists")
	// ErrCorruptRecord is returned when a stored row cannot be decoded
	ErrCorruptRecord = errors.New("fraud detection result record is corrupt")
)

// StorageError reports a failure of the backing store
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("fraud result storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err originates from the backing store
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// InvalidRiskLevelError is returned for an unknown risk level name
type InvalidRiskLevelError struct {
	Value string
}

func (e *InvalidRiskLevelError) Error() string {
	return fmt.Sprintf("invalid risk level %q", e.Value)
}
