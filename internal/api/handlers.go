package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"sort"
	"strings"
	"time"

	"talentlink/internal/forms"
	"talentlink/internal/inputguard"
	"talentlink/internal/logging"
	"talentlink/internal/securestore"
	"talentlink/internal/session"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxRequestBytes = 64 << 10

// Handlers contains the HTTP handlers of the local shell
type Handlers struct {
	logger    *logrus.Entry
	store     *securestore.Store
	sessions  *session.Manager
	events    *EventHub
	version   string
	startTime time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(logger *logrus.Entry, store *securestore.Store, sessions *session.Manager, events *EventHub, version string) *Handlers {
	return &Handlers{
		logger:    logger,
		store:     store,
		sessions:  sessions,
		events:    events,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !h.store.SecretGrade() {
		status = "degraded"
	}

	h.writeJSONResponse(w, HealthCheckResponse{
		Status:        status,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		Uptime:        time.Since(h.startTime).Round(time.Second).String(),
		Backend:       h.store.Backend(),
		SecretGrade:   h.store.SecretGrade(),
		StorageErrors: h.store.Diagnostics().TotalErrors,
	}, http.StatusOK)
}

// CreateSession handles POST /api/v1/session
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	login := forms.LoginForm{Email: req.Email, Password: req.Password}
	if err := login.Validate(); err != nil {
		h.writeValidationError(w, r, err)
		return
	}
	login = login.Sanitize()

	if req.AccessToken == "" {
		h.writeErrorResponse(w, r, ErrorCodeMissingField, "accessToken is required", nil)
		return
	}

	user := req.User
	if user.Email == "" {
		user.Email = login.Email
	}

	err := h.sessions.SignIn(r.Context(), session.Credentials{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		User:         user,
	})
	if err != nil {
		if securestore.IsStorageFailure(err) {
			h.writeErrorResponse(w, r, ErrorCodeStorageError, "Could not save the session on this device", nil)
			return
		}
		h.writeErrorResponse(w, r, ErrorCodeInternalError, "Sign in failed", nil)
		return
	}

	status := h.sessions.Status(r.Context())
	h.events.Broadcast(EventSessionStarted, sessionEvent(status))
	h.writeJSONResponse(w, status, http.StatusCreated)
}

// GetSession handles GET /api/v1/session
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, h.sessions.Status(r.Context()), http.StatusOK)
}

// DeleteSession handles DELETE /api/v1/session
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.SignOut(r.Context())
	h.events.Broadcast(EventSessionEnded, SessionEvent{})
	h.writeJSONResponse(w, h.sessions.Status(r.Context()), http.StatusOK)
}

// SessionEvents handles GET /api/v1/session/events. The socket opens with
// the current session state and then carries every sign-in and sign-out.
func (h *Handlers) SessionEvents(w http.ResponseWriter, r *http.Request) {
	first := h.events.NewMessage(EventSessionStatus, sessionEvent(h.sessions.Status(r.Context())))

	err := h.events.Serve(w, r, first)
	switch {
	case errors.Is(err, ErrTooManyConnections):
		h.writeErrorResponse(w, r, ErrorCodeServiceUnavailable, "Too many event connections", nil)
	case err != nil:
		// The upgrader has already answered the request
		h.logger.WithError(err).Debug("Event connection refused")
	}
}

func sessionEvent(status session.Status) SessionEvent {
	event := SessionEvent{Authenticated: status.Authenticated}
	if status.User != nil {
		event.UserID = status.User.ID
	}
	return event
}

// Validate handles POST /api/v1/validate/{kind}. Invalid input is a normal
// outcome here and is reported with 200 and valid=false.
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	resp := ValidateResponse{Kind: kind}

	switch kind {
	case "email", "password", "url", "phone":
		var req ValidateRequest
		if !h.decode(w, r, &req) {
			return
		}
		validateScalar(kind, req.Value, &resp)

	case "signup":
		var form forms.SignupForm
		if !h.decode(w, r, &form) {
			return
		}
		clean := form.Sanitize()
		clean.Password = ""
		applyFormResult(&resp, clean, form.Validate())

	case "profile":
		var form forms.ProfileForm
		if !h.decode(w, r, &form) {
			return
		}
		applyFormResult(&resp, form.Sanitize(), form.Validate())

	case "post":
		var form forms.PostForm
		if !h.decode(w, r, &form) {
			return
		}
		applyFormResult(&resp, form.Sanitize(), form.Validate())

	default:
		h.writeErrorResponse(w, r, ErrorCodeNotFound, "Unknown validation kind", map[string]string{"kind": kind})
		return
	}

	h.writeJSONResponse(w, resp, http.StatusOK)
}

func validateScalar(kind, value string, resp *ValidateResponse) {
	switch kind {
	case "email":
		clean := inputguard.SanitizeEmail(value)
		setValue(resp, clean)
		resp.Valid = inputguard.ValidateEmail(clean)
		if !resp.Valid {
			resp.Message = "Please enter a valid email address"
		}
	case "password":
		result := inputguard.ValidatePassword(value)
		resp.Valid = result.Valid
		resp.Message = result.Message
	case "url":
		clean := inputguard.SanitizeURL(value)
		setValue(resp, clean)
		resp.Valid = clean != ""
		if !resp.Valid {
			resp.Message = "URL must be an absolute http or https address"
		}
	case "phone":
		clean := strings.TrimSpace(inputguard.SanitizePhoneNumber(value))
		setValue(resp, clean)
		resp.Valid = forms.ValidPhone(clean)
		if !resp.Valid {
			resp.Message = "Please enter a valid phone number"
		}
	}
}

// setValue leaves Value nil when sanitizing emptied the input
func setValue(resp *ValidateResponse, clean string) {
	if clean != "" {
		resp.Value = clean
	}
}

func applyFormResult(resp *ValidateResponse, clean interface{}, err error) {
	resp.Value = clean
	resp.Valid = err == nil

	var verrs forms.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Errors = verrs
	}
}

// MethodNotAllowed answers a known path requested with the wrong method
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeErrorResponse(w, r, ErrorCodeMethodNotAllowed, "Method not allowed", map[string]string{"method": r.Method})
}

// decode reads a JSON body. Other content types are refused so that a page
// cannot reach the shell with a form or text/plain post.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		h.writeErrorResponse(w, r, ErrorCodeUnsupportedMedia, "Content-Type must be application/json", nil)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		h.writeErrorResponse(w, r, ErrorCodeInvalidJSON, "Request body must be valid JSON", nil)
		return false
	}
	return true
}

func (h *Handlers) writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs forms.ValidationErrors
	if !errors.As(err, &verrs) {
		h.writeErrorResponse(w, r, ErrorCodeValidationFailed, err.Error(), nil)
		return
	}

	fields := make([]string, 0, len(verrs))
	for field := range verrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	logging.LogValidationError(h.logger.WithField("request_id", requestIDFrom(r)), err, "api", r.Method+" "+r.URL.Path, fields)

	h.writeErrorResponse(w, r, ErrorCodeValidationFailed, "Validation failed", verrs)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeErrorResponse writes a standardized JSON error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, r *http.Request, code ErrorCode, message string, details map[string]string) {
	requestID := requestIDFrom(r)
	errorResponse := NewErrorResponse(code, message, r, requestID)
	for key, value := range details {
		errorResponse.AddDetail(key, value)
	}

	h.logger.WithFields(logrus.Fields{
		"error_code":  code,
		"status_code": errorResponse.Status,
		"path":        errorResponse.Path,
		"method":      errorResponse.Method,
		"request_id":  requestID,
	}).Warn("API error response")

	h.writeJSONResponse(w, errorResponse, errorResponse.Status)
}
