package securestore

import "context"

// Medium is the platform specific storage under a Store. Implementations
// address string values by string key and must treat a missing key as
// (found=false, err=nil) on Get and as success on Delete.
type Medium interface {
	// Name identifies the backend in logs and metrics
	Name() string

	// SecretGrade reports whether values are protected at rest beyond the
	// process sandbox
	SecretGrade() bool

	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Delete(ctx context.Context, key string) error
}
