// Package session drives sign-in and sign-out on top of the secure store.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"talentlink/internal/inputguard"
	"talentlink/internal/logging"
	"talentlink/internal/securestore"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

var (
	// ErrMissingToken is returned by SignIn when no access token is given
	ErrMissingToken = errors.New("access token is required")
)

// User is the profile cached alongside the tokens
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Headline string `json:"headline,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// Credentials is what the backend hands back after a successful login
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         User   `json:"user"`
}

// Status describes the stored session
type Status struct {
	Authenticated bool       `json:"authenticated"`
	Expired       bool       `json:"expired"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Subject       string     `json:"subject,omitempty"`
	HasRefresh    bool       `json:"hasRefreshToken"`
	User          *User      `json:"user,omitempty"`
	Backend       string     `json:"backend"`
	SecretGrade   bool       `json:"secretGrade"`
}

// Manager owns the session keys of a store
type Manager struct {
	store  *securestore.Store
	logger *logrus.Entry
	parser *jwt.Parser
	now    func() time.Time
}

// NewManager creates a session manager over store
func NewManager(store *securestore.Store, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}

	return &Manager{
		store:  store,
		logger: logging.NewServiceLogger(logger, "session"),
		parser: jwt.NewParser(),
		now:    time.Now,
	}
}

// SignIn stores the tokens and user profile. If any write fails the
// session keys are cleared so no half-written session survives.
func (m *Manager) SignIn(ctx context.Context, creds Credentials) error {
	if strings.TrimSpace(creds.AccessToken) == "" {
		return ErrMissingToken
	}

	user := creds.User
	user.Name = inputguard.SanitizeString(user.Name, 100)
	user.Email = inputguard.SanitizeEmail(user.Email)
	user.Headline = inputguard.SanitizeString(user.Headline, 200)
	user.Avatar = inputguard.SanitizeURL(user.Avatar)

	if err := m.write(ctx, creds, user); err != nil {
		logging.LogSecurityError(m.logger, err, "sign_in")
		m.store.ClearAll(ctx)
		return fmt.Errorf("failed to store session: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"has_refresh": creds.RefreshToken != "",
	}).Info("Signed in")

	return nil
}

func (m *Manager) write(ctx context.Context, creds Credentials, user User) error {
	if err := m.store.SetAuthToken(ctx, creds.AccessToken); err != nil {
		return err
	}

	if creds.RefreshToken != "" {
		if err := m.store.SetRefreshToken(ctx, creds.RefreshToken); err != nil {
			return err
		}
	} else {
		m.store.RemoveRefreshToken(ctx)
	}

	return m.store.SetUserData(ctx, user)
}

// SignOut removes every session key. It never fails; removal errors are
// logged by the store.
func (m *Manager) SignOut(ctx context.Context) {
	m.store.ClearAll(ctx)
	m.logger.Info("Signed out")
}

// Status inspects the stored session. A token that is a JWT with an exp
// claim in the past counts as expired. Opaque tokens never expire here.
func (m *Manager) Status(ctx context.Context) Status {
	status := Status{
		Backend:     m.store.Backend(),
		SecretGrade: m.store.SecretGrade(),
	}

	token, ok := m.store.GetAuthToken(ctx)
	if !ok || token == "" {
		return status
	}

	expiresAt, subject := m.inspect(token)
	status.ExpiresAt = expiresAt
	status.Subject = subject
	status.Expired = expiresAt != nil && !m.now().Before(*expiresAt)
	status.Authenticated = !status.Expired

	_, status.HasRefresh = m.store.GetRefreshToken(ctx)

	if user, ok := m.CurrentUser(ctx); ok {
		status.User = &user
	}

	return status
}

// AccessToken returns the stored token when the session is usable
func (m *Manager) AccessToken(ctx context.Context) (string, bool) {
	token, ok := m.store.GetAuthToken(ctx)
	if !ok || token == "" {
		return "", false
	}

	if expiresAt, _ := m.inspect(token); expiresAt != nil && !m.now().Before(*expiresAt) {
		return "", false
	}

	return token, true
}

// CurrentUser returns the cached profile
func (m *Manager) CurrentUser(ctx context.Context) (User, bool) {
	var user User
	if !m.store.GetUserData(ctx, &user) {
		return User{}, false
	}
	return user, true
}

// inspect reads exp and sub without verifying the signature; the client
// holds no signing key.
func (m *Manager) inspect(token string) (*time.Time, string) {
	parsed, _, err := m.parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, ""
	}

	var expiresAt *time.Time
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		expiresAt = &t
	}

	subject, _ := parsed.Claims.GetSubject()

	return expiresAt, subject
}
