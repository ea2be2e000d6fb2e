package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"talentlink/internal/securestore"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rejectingMedium fails writes to one key
type rejectingMedium struct {
	*securestore.MemoryMedium
	rejectKey string
}

func (r *rejectingMedium) Set(ctx context.Context, key, value string) error {
	if key == r.rejectKey {
		return errors.New("disk full")
	}
	return r.MemoryMedium.Set(ctx, key, value)
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-side-secret"))
	require.NoError(t, err)
	return token
}

func newTestManager(t *testing.T) (*Manager, *securestore.MemoryMedium) {
	t.Helper()

	medium := securestore.NewMemoryMedium()
	manager := NewManager(securestore.New(medium, nil, nil), nil)
	manager.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return manager, medium
}

func TestSignInAndStatus(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	expiresAt := time.Unix(1_700_003_600, 0)
	token := signedToken(t, jwt.MapClaims{"sub": "u-42", "exp": expiresAt.Unix()})

	err := manager.SignIn(ctx, Credentials{
		AccessToken:  token,
		RefreshToken: "refresh-1",
		User: User{
			ID:     "u-42",
			Name:   " Ada <Lovelace> ",
			Email:  "ADA@example.com",
			Avatar: "javascript:alert(1)",
		},
	})
	require.NoError(t, err)

	status := manager.Status(ctx)
	assert.True(t, status.Authenticated)
	assert.False(t, status.Expired)
	assert.True(t, status.HasRefresh)
	assert.Equal(t, "u-42", status.Subject)
	require.NotNil(t, status.ExpiresAt)
	assert.True(t, expiresAt.Equal(*status.ExpiresAt))
	assert.Equal(t, "memory", status.Backend)
	assert.False(t, status.SecretGrade)

	require.NotNil(t, status.User)
	assert.Equal(t, "Ada Lovelace", status.User.Name)
	assert.Equal(t, "ada@example.com", status.User.Email)
	assert.Empty(t, status.User.Avatar)

	got, ok := manager.AccessToken(ctx)
	assert.True(t, ok)
	assert.Equal(t, token, got)
}

func TestStatusExpiredToken(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	token := signedToken(t, jwt.MapClaims{"sub": "u-1", "exp": int64(1_699_999_999)})
	require.NoError(t, manager.SignIn(ctx, Credentials{AccessToken: token, User: User{ID: "u-1"}}))

	status := manager.Status(ctx)
	assert.False(t, status.Authenticated)
	assert.True(t, status.Expired)

	_, ok := manager.AccessToken(ctx)
	assert.False(t, ok)
}

func TestStatusOpaqueToken(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, manager.SignIn(ctx, Credentials{AccessToken: "opaque-session-id"}))

	status := manager.Status(ctx)
	assert.True(t, status.Authenticated)
	assert.Nil(t, status.ExpiresAt)
	assert.Empty(t, status.Subject)
	assert.False(t, status.HasRefresh)
}

func TestStatusSignedOut(t *testing.T) {
	manager, _ := newTestManager(t)

	status := manager.Status(context.Background())
	assert.False(t, status.Authenticated)
	assert.False(t, status.Expired)
	assert.Nil(t, status.User)
}

func TestSignInRequiresToken(t *testing.T) {
	manager, medium := newTestManager(t)

	err := manager.SignIn(context.Background(), Credentials{AccessToken: "  "})
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.Zero(t, medium.Len())
}

func TestSignInFailureLeavesNoSession(t *testing.T) {
	medium := &rejectingMedium{MemoryMedium: securestore.NewMemoryMedium(), rejectKey: securestore.KeyUserData}
	manager := NewManager(securestore.New(medium, nil, nil), nil)
	ctx := context.Background()

	err := manager.SignIn(ctx, Credentials{AccessToken: "tok", RefreshToken: "ref", User: User{ID: "u-1"}})
	require.Error(t, err)
	assert.True(t, securestore.IsStorageFailure(err))
	assert.ErrorIs(t, err, securestore.ErrStorage)

	assert.Zero(t, medium.Len())
	assert.False(t, manager.Status(ctx).Authenticated)
}

func TestSignInReplacesStaleRefreshToken(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, manager.SignIn(ctx, Credentials{AccessToken: "a", RefreshToken: "old"}))
	require.NoError(t, manager.SignIn(ctx, Credentials{AccessToken: "b"}))

	assert.False(t, manager.Status(ctx).HasRefresh)
}

func TestSignOut(t *testing.T) {
	manager, medium := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, manager.SignIn(ctx, Credentials{AccessToken: "tok", RefreshToken: "ref", User: User{ID: "u-1"}}))
	manager.SignOut(ctx)

	assert.Zero(t, medium.Len())
	_, ok := manager.CurrentUser(ctx)
	assert.False(t, ok)
	assert.False(t, manager.Status(ctx).Authenticated)
}
