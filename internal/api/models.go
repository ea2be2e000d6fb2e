package api

import (
	"net/http"
	"time"

	"talentlink/internal/session"
)

// HealthCheckResponse represents the health endpoint payload
type HealthCheckResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Version     string    `json:"version"`
	Uptime      string    `json:"uptime"`
	Backend     string    `json:"backend"`
	SecretGrade bool      `json:"secretGrade"`
	// Failures the store swallowed since startup
	StorageErrors int64 `json:"storageErrors"`
}

// SessionRequest carries the login form together with the tokens the
// backend issued for it
type SessionRequest struct {
	Email        string       `json:"email"`
	Password     string       `json:"password"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	User         session.User `json:"user"`
}

// ValidateRequest carries a single value for the scalar validation kinds
type ValidateRequest struct {
	Value string `json:"value"`
}

// ValidateResponse is returned by every validation kind
type ValidateResponse struct {
	Kind    string            `json:"kind"`
	Valid   bool              `json:"valid"`
	Value   interface{}       `json:"value,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	RequestID string            `json:"requestId,omitempty"`
	Path      string            `json:"path,omitempty"`
	Method    string            `json:"method,omitempty"`
	Status    int               `json:"status"`
}

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	ErrorCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrorCodeInvalidJSON        ErrorCode = "INVALID_JSON"
	ErrorCodeMissingField       ErrorCode = "MISSING_FIELD"
	ErrorCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrorCodeMethodNotAllowed   ErrorCode = "METHOD_NOT_ALLOWED"
	ErrorCodeUnsupportedMedia   ErrorCode = "UNSUPPORTED_MEDIA_TYPE"
	ErrorCodeForbiddenOrigin    ErrorCode = "FORBIDDEN_ORIGIN"
	ErrorCodeStorageError       ErrorCode = "STORAGE_ERROR"
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
)

// HTTPStatusMapping maps error codes to HTTP status codes
var HTTPStatusMapping = map[ErrorCode]int{
	ErrorCodeValidationFailed: http.StatusBadRequest,
	ErrorCodeInvalidJSON:      http.StatusBadRequest,
	ErrorCodeMissingField:     http.StatusBadRequest,

	ErrorCodeForbiddenOrigin:  http.StatusForbidden,
	ErrorCodeNotFound:         http.StatusNotFound,
	ErrorCodeMethodNotAllowed: http.StatusMethodNotAllowed,
	ErrorCodeUnsupportedMedia: http.StatusUnsupportedMediaType,

	// The medium refused the write; retrying later may succeed
	ErrorCodeStorageError:       http.StatusServiceUnavailable,
	ErrorCodeServiceUnavailable: http.StatusServiceUnavailable,

	ErrorCodeInternalError: http.StatusInternalServerError,
}

// GetHTTPStatus returns the appropriate HTTP status code for an error code
func (ec ErrorCode) GetHTTPStatus() int {
	if status, exists := HTTPStatusMapping[ec]; exists {
		return status
	}
	return http.StatusInternalServerError
}

// NewErrorResponse creates a standardized error response
func NewErrorResponse(code ErrorCode, message string, r *http.Request, requestID string) *ErrorResponse {
	response := &ErrorResponse{
		Error:     "true",
		Code:      string(code),
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		Status:    code.GetHTTPStatus(),
	}

	if r != nil {
		response.Path = r.URL.Path
		response.Method = r.Method
	}

	return response
}

// AddDetail adds a detail to the error response
func (er *ErrorResponse) AddDetail(key, value string) *ErrorResponse {
	if er.Details == nil {
		er.Details = make(map[string]string)
	}
	er.Details[key] = value
	return er
}
