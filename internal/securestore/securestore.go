// Package securestore persists authentication secrets behind a single
// key/value interface. The backing medium is chosen once at startup.
//
// Writes fail loudly with a *StorageFailure. Reads and deletes fail quietly:
// a read error is reported as "absent" and a delete error is only logged,
// so a broken medium degrades to "not signed in" instead of crashing callers.
//
// An empty value reads as absent. When a medium refuses a delete the store
// overwrites the key with an empty value instead, so a failed removal still
// forgets the secret as long as the medium accepts writes.
package securestore

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"talentlink/internal/logging"

	"github.com/sirupsen/logrus"
)

// Well-known keys
const (
	KeyAuthToken    = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyUserData     = "user_data"
)

// tombstone marks a key whose delete failed
const tombstone = ""

// WellKnownKeys lists every key removed by ClearAll
var WellKnownKeys = []string{KeyAuthToken, KeyRefreshToken, KeyUserData}

// Store mediates all access to the backing medium. It holds no cache and no
// lock; ordering between concurrent callers is whatever the medium provides.
type Store struct {
	medium  Medium
	logger  *logrus.Entry
	stats   *logging.ErrorStatistics
	metrics *Metrics
}

// New creates a store over the given medium. metrics may be nil.
func New(medium Medium, logger *logrus.Logger, metrics *Metrics) *Store {
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Store{
		medium:  medium,
		logger:  logging.NewServiceLogger(logger, "securestore").WithField("backend", medium.Name()),
		stats:   logging.NewErrorStatistics(),
		metrics: metrics,
	}

	if !medium.SecretGrade() {
		s.logger.Warn("Secure store backend is not secret-grade; credentials are stored without at-rest protection")
	}

	return s
}

// Backend returns the name of the active medium
func (s *Store) Backend() string {
	return s.medium.Name()
}

// SecretGrade reports whether the active medium protects values at rest
func (s *Store) SecretGrade() bool {
	return s.medium.SecretGrade()
}

// Diagnostics returns counters for failures that were swallowed or reported
func (s *Store) Diagnostics() *logging.ErrorStatistics {
	return s.stats.Snapshot()
}

// Close releases the medium if it holds resources
func (s *Store) Close() error {
	if closer, ok := s.medium.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SetItem stores value under key, replacing any previous value. Storing ""
// is equivalent to removing the key.
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	if err := s.medium.Set(ctx, key, value); err != nil {
		s.record(logging.LogStorageError(s.logger, err, s.medium.Name(), "set", key, false))
		s.metrics.observe("set", resultError)
		return &StorageFailure{Op: "set", Key: key, Backend: s.medium.Name(), Err: err}
	}

	s.metrics.observe("set", resultOK)
	return nil
}

// GetItem returns the value stored under key. Unset keys and read errors
// both return ok=false.
func (s *Store) GetItem(ctx context.Context, key string) (string, bool) {
	value, found, err := s.medium.Get(ctx, key)
	if err != nil {
		s.record(logging.LogStorageError(s.logger, err, s.medium.Name(), "get", key, true))
		s.metrics.observe("get", resultError)
		return "", false
	}

	if !found || value == tombstone {
		s.metrics.observe("get", resultAbsent)
		return "", false
	}

	s.metrics.observe("get", resultOK)
	return value, true
}

// RemoveItem deletes key. Failures are logged and counted, never returned.
// If the delete fails the key is overwritten with a tombstone.
func (s *Store) RemoveItem(ctx context.Context, key string) {
	if err := s.medium.Delete(ctx, key); err != nil {
		s.record(logging.LogStorageError(s.logger, err, s.medium.Name(), "delete", key, true))
		s.metrics.observe("delete", resultError)
		s.bury(ctx, key)
		return
	}

	s.metrics.observe("delete", resultOK)
}

func (s *Store) bury(ctx context.Context, key string) {
	if err := s.medium.Set(ctx, key, tombstone); err != nil {
		s.record(logging.LogStorageError(s.logger, err, s.medium.Name(), "tombstone", key, false))
		s.metrics.observe("tombstone", resultError)
		return
	}

	s.metrics.observe("tombstone", resultOK)
}

// SetAuthToken stores the access token
func (s *Store) SetAuthToken(ctx context.Context, token string) error {
	return s.SetItem(ctx, KeyAuthToken, token)
}

// GetAuthToken returns the access token
func (s *Store) GetAuthToken(ctx context.Context) (string, bool) {
	return s.GetItem(ctx, KeyAuthToken)
}

// RemoveAuthToken forgets the access token
func (s *Store) RemoveAuthToken(ctx context.Context) {
	s.RemoveItem(ctx, KeyAuthToken)
}

// SetRefreshToken stores the refresh token
func (s *Store) SetRefreshToken(ctx context.Context, token string) error {
	return s.SetItem(ctx, KeyRefreshToken, token)
}

// GetRefreshToken returns the refresh token
func (s *Store) GetRefreshToken(ctx context.Context) (string, bool) {
	return s.GetItem(ctx, KeyRefreshToken)
}

// RemoveRefreshToken forgets the refresh token
func (s *Store) RemoveRefreshToken(ctx context.Context) {
	s.RemoveItem(ctx, KeyRefreshToken)
}

// SetUserData serializes record as JSON and stores it. Nothing is written
// when serialization fails.
func (s *Store) SetUserData(ctx context.Context, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		s.record(logging.LogStorageError(s.logger, err, s.medium.Name(), "marshal", KeyUserData, false))
		s.metrics.observe("marshal", resultError)
		return &StorageFailure{Op: "marshal", Key: KeyUserData, Backend: s.medium.Name(), Err: err}
	}

	return s.SetItem(ctx, KeyUserData, string(data))
}

// GetUserData decodes the stored user record into out, which must be a
// pointer. It returns false when nothing is stored or the stored value does
// not decode; out may then be partially written and should be discarded.
func (s *Store) GetUserData(ctx context.Context, out any) bool {
	raw, ok := s.GetItem(ctx, KeyUserData)
	if !ok {
		return false
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.record(logging.LogStorageError(s.logger, err, s.medium.Name(), "unmarshal", KeyUserData, true))
		s.metrics.observe("unmarshal", resultError)
		return false
	}

	return true
}

// GetUserDataMap returns the stored user record as a generic JSON object
func (s *Store) GetUserDataMap(ctx context.Context) (map[string]any, bool) {
	var record map[string]any
	if !s.GetUserData(ctx, &record) || record == nil {
		return nil, false
	}
	return record, true
}

// ClearAll removes every well-known key. Each removal is attempted even if
// an earlier one failed.
func (s *Store) ClearAll(ctx context.Context) {
	for _, key := range WellKnownKeys {
		s.RemoveItem(ctx, key)
	}
	s.logger.Debug("Cleared stored credentials")
}

func (s *Store) record(structuredErr *logging.StructuredError) {
	s.stats.Record(structuredErr)
}

// IsStorageFailure reports whether err came from a failed write
func IsStorageFailure(err error) bool {
	var failure *StorageFailure
	return errors.As(err, &failure)
}
