package logging

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different categories of errors for classification
type ErrorCategory string

const (
	// Credential storage errors
	ErrorCategoryStorage ErrorCategory = "storage"
	// Authentication/session errors
	ErrorCategorySecurity ErrorCategory = "security"
	// Configuration errors
	ErrorCategoryConfig ErrorCategory = "config"
	// Rejected user input
	ErrorCategoryValidation ErrorCategory = "validation"
	// Unknown/Uncategorized errors
	ErrorCategoryUnknown ErrorCategory = "unknown"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	ErrorSeverityCritical ErrorSeverity = "critical"
	ErrorSeverityHigh     ErrorSeverity = "high"
	ErrorSeverityMedium   ErrorSeverity = "medium"
	ErrorSeverityInfo     ErrorSeverity = "info"
)

// ErrorContext provides additional context for error logging
type ErrorContext struct {
	Category    ErrorCategory          `json:"category"`
	Severity    ErrorSeverity          `json:"severity"`
	Component   string                 `json:"component"`
	Operation   string                 `json:"operation"`
	Key         string                 `json:"key,omitempty"`
	Backend     string                 `json:"backend,omitempty"`
	Recoverable bool                   `json:"recoverable"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// StructuredError represents a structured error with context
type StructuredError struct {
	Err       error        `json:"error"`
	Context   ErrorContext `json:"context"`
	Timestamp time.Time    `json:"timestamp"`
	Stack     string       `json:"stack,omitempty"`
}

// Error implements the error interface
func (se *StructuredError) Error() string {
	if se.Err != nil {
		return se.Err.Error()
	}
	return "unknown error"
}

// Unwrap returns the underlying error
func (se *StructuredError) Unwrap() error {
	return se.Err
}

// NewStructuredError creates a new structured error with context. A missing
// category is recorded as unknown.
func NewStructuredError(err error, context ErrorContext) *StructuredError {
	if context.Category == "" {
		context.Category = ErrorCategoryUnknown
	}

	structuredErr := &StructuredError{
		Err:       err,
		Context:   context,
		Timestamp: time.Now(),
	}

	// Capture stack trace for critical errors only
	if context.Severity == ErrorSeverityCritical {
		structuredErr.Stack = captureStackTrace()
	}

	return structuredErr
}

// LogStructuredError logs a structured error with appropriate level and context
func LogStructuredError(logger logrus.FieldLogger, structuredErr *StructuredError) {
	if logger == nil || structuredErr == nil {
		return
	}

	entry := logger.WithFields(logrus.Fields{
		"error_category": structuredErr.Context.Category,
		"error_severity": structuredErr.Context.Severity,
		"operation":      structuredErr.Context.Operation,
		"recoverable":    structuredErr.Context.Recoverable,
	})

	if structuredErr.Context.Component != "" {
		entry = entry.WithField("component", structuredErr.Context.Component)
	}
	if structuredErr.Context.Key != "" {
		entry = entry.WithField("key", structuredErr.Context.Key)
	}
	if structuredErr.Context.Backend != "" {
		entry = entry.WithField("backend", structuredErr.Context.Backend)
	}
	for key, value := range structuredErr.Context.Metadata {
		entry = entry.WithField(fmt.Sprintf("meta_%s", key), value)
	}
	if structuredErr.Stack != "" {
		entry = entry.WithField("stack_trace", structuredErr.Stack)
	}

	switch structuredErr.Context.Severity {
	case ErrorSeverityCritical, ErrorSeverityHigh:
		entry.Error(structuredErr.Error())
	case ErrorSeverityMedium:
		entry.Warn(structuredErr.Error())
	case ErrorSeverityInfo:
		entry.Info(structuredErr.Error())
	default:
		entry.Error(structuredErr.Error())
	}
}

// LogStorageError logs a credential storage failure. Failures that the caller
// never sees (reads, deletes) are logged as recoverable.
func LogStorageError(logger logrus.FieldLogger, err error, backend, operation, key string, recoverable bool) *StructuredError {
	severity := ErrorSeverityHigh
	if recoverable {
		severity = ErrorSeverityMedium
	}

	structuredErr := NewStructuredError(err, ErrorContext{
		Category:    ErrorCategoryStorage,
		Severity:    severity,
		Component:   "securestore",
		Operation:   operation,
		Key:         key,
		Backend:     backend,
		Recoverable: recoverable,
	})
	LogStructuredError(logger, structuredErr)
	return structuredErr
}

// LogSecurityError logs authentication related errors
func LogSecurityError(logger logrus.FieldLogger, err error, operation string) *StructuredError {
	structuredErr := NewStructuredError(err, ErrorContext{
		Category:    ErrorCategorySecurity,
		Severity:    ErrorSeverityHigh,
		Component:   "session",
		Operation:   operation,
		Recoverable: false,
	})
	LogStructuredError(logger, structuredErr)
	return structuredErr
}

// LogConfigError logs a configuration the process cannot run with
func LogConfigError(logger logrus.FieldLogger, err error, operation string) *StructuredError {
	structuredErr := NewStructuredError(err, ErrorContext{
		Category:    ErrorCategoryConfig,
		Severity:    ErrorSeverityCritical,
		Component:   "config",
		Operation:   operation,
		Recoverable: false,
	})
	LogStructuredError(logger, structuredErr)
	return structuredErr
}

// LogValidationError logs rejected user input. Only field names reach the
// log; the values themselves may be secrets.
func LogValidationError(logger logrus.FieldLogger, err error, component, operation string, fields []string) *StructuredError {
	structuredErr := NewStructuredError(err, ErrorContext{
		Category:    ErrorCategoryValidation,
		Severity:    ErrorSeverityInfo,
		Component:   component,
		Operation:   operation,
		Recoverable: true,
		Metadata:    map[string]interface{}{"fields": fields},
	})
	LogStructuredError(logger, structuredErr)
	return structuredErr
}

// ErrorStatistics tracks error counts for diagnostics
type ErrorStatistics struct {
	TotalErrors      int64                   `json:"total_errors"`
	ErrorsByCategory map[ErrorCategory]int64 `json:"errors_by_category"`
	ErrorsBySeverity map[ErrorSeverity]int64 `json:"errors_by_severity"`
	LastError        time.Time               `json:"last_error"`
	LastErrorMessage string                  `json:"last_error_message"`
	mutex            sync.RWMutex
}

// NewErrorStatistics creates an empty statistics tracker
func NewErrorStatistics() *ErrorStatistics {
	return &ErrorStatistics{
		ErrorsByCategory: make(map[ErrorCategory]int64),
		ErrorsBySeverity: make(map[ErrorSeverity]int64),
	}
}

// Record adds a structured error to the statistics
func (s *ErrorStatistics) Record(structuredErr *StructuredError) {
	if structuredErr == nil {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.TotalErrors++
	s.ErrorsByCategory[structuredErr.Context.Category]++
	s.ErrorsBySeverity[structuredErr.Context.Severity]++
	s.LastError = structuredErr.Timestamp
	s.LastErrorMessage = structuredErr.Error()
}

// Snapshot returns a copy that is safe to read without locking
func (s *ErrorStatistics) Snapshot() *ErrorStatistics {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := &ErrorStatistics{
		TotalErrors:      s.TotalErrors,
		ErrorsByCategory: make(map[ErrorCategory]int64, len(s.ErrorsByCategory)),
		ErrorsBySeverity: make(map[ErrorSeverity]int64, len(s.ErrorsBySeverity)),
		LastError:        s.LastError,
		LastErrorMessage: s.LastErrorMessage,
	}
	for k, v := range s.ErrorsByCategory {
		stats.ErrorsByCategory[k] = v
	}
	for k, v := range s.ErrorsBySeverity {
		stats.ErrorsBySeverity[k] = v
	}

	return stats
}

// captureStackTrace captures the current stack trace
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
