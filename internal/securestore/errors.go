package securestore

import (
	"errors"
	"fmt"
)

// ErrStorage is matched by every StorageFailure via errors.Is
var ErrStorage = errors.New("secure storage failure")

// ErrUnsupportedBackend is returned when configuration names a backend that
// is not available for the selected platform
var ErrUnsupportedBackend = errors.New("unsupported secure store backend")

// StorageFailure reports a write that did not reach the backing medium.
// Reads and deletes never produce one.
type StorageFailure struct {
	Op      string // set, marshal
	Key     string
	Backend string
	Err     error
}

func (f *StorageFailure) Error() string {
	return fmt.Sprintf("securestore %s %q on %s: %v", f.Op, f.Key, f.Backend, f.Err)
}

func (f *StorageFailure) Unwrap() error {
	return f.Err
}

// Is makes errors.Is(err, ErrStorage) true for any StorageFailure
func (f *StorageFailure) Is(target error) bool {
	return target == ErrStorage
}
