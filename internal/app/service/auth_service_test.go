package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/flexystyles/storefront-backend/internal/app/repository"
	"github.com/flexystyles/storefront-backend/internal/db"
	"github.com/flexystyles/storefront-backend/internal/identity"
	pkgredis "github.com/flexystyles/storefront-backend/pkg/redis"
	"github.com/flexystyles/storefront-backend/pkg/util"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []identity.Event
}

func (p *recordingPublisher) Publish(e identity.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) all() []identity.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]identity.Event(nil), p.events...)
}

const testJWTSecret = "test-jwt-secret"

func setupAuthServiceTest(t *testing.T) (AuthService, *recordingPublisher, *pkgredis.TokenBlacklist) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	blacklist := pkgredis.NewTokenBlacklist(client)

	publisher := &recordingPublisher{}
	authService := NewAuthService(
		repository.NewUserRepository(testDB),
		publisher,
		blacklist,
		testJWTSecret,
		15*time.Minute,
		7*24*time.Hour,
	)
	return authService, publisher, blacklist
}

func TestAuthService_Register(t *testing.T) {
	authService, publisher, _ := setupAuthServiceTest(t)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "Valid registration", email: "Test@Example.com", password: "password123"},
		{name: "Duplicate email", email: "test@example.com", password: "password456", wantErr: ErrEmailAlreadyExists},
		{name: "Short password", email: "new@example.com", password: "abc", wantErr: util.ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, tokens, err := authService.Register(tt.email, tt.password, "Test User", "+91 98765 43210", "visitor-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "test@example.com", user.Email)
			assert.NotEmpty(t, tokens.AccessToken)
			assert.NotEmpty(t, tokens.RefreshToken)
		})
	}

	events := publisher.all()
	require.Len(t, events, 1)
	assert.Equal(t, identity.SignedIn, events[0].Kind)
	assert.Equal(t, "visitor-1", events[0].VisitorID)
}

func TestAuthService_Login(t *testing.T) {
	authService, publisher, _ := setupAuthServiceTest(t)
	registered, _, err := authService.Register("test@example.com", "password123", "Test User", "", "")
	require.NoError(t, err)
	assert.Empty(t, publisher.all(), "no visitor id, no event")

	_, _, err = authService.Login("test@example.com", "wrong-password", "visitor-2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = authService.Login("missing@example.com", "password123", "visitor-2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, tokens, err := authService.Login(" TEST@example.com ", "password123", "visitor-2")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	claims, err := util.ValidateToken(tokens.AccessToken, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	events := publisher.all()
	require.Len(t, events, 1)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, user.ID, *events[0].UserID)
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	authService, publisher, blacklist := setupAuthServiceTest(t)
	_, tokens, err := authService.Register("test@example.com", "password123", "Test User", "", "")
	require.NoError(t, err)

	claims, err := util.ValidateToken(tokens.AccessToken, testJWTSecret)
	require.NoError(t, err)

	require.NoError(t, authService.Logout(context.Background(), claims, "visitor-3"))

	revoked, err := blacklist.IsRevoked(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	events := publisher.all()
	require.Len(t, events, 1)
	assert.Equal(t, identity.SignedOut, events[0].Kind)
	assert.Nil(t, events[0].UserID)
}

func TestAuthService_Refresh(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)
	_, tokens, err := authService.Register("test@example.com", "password123", "Test User", "", "")
	require.NoError(t, err)

	refreshed, err := authService.Refresh(tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = authService.Refresh(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh, "access tokens cannot refresh")

	_, err = authService.Refresh("garbage")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)
	user, _, err := authService.Register("test@example.com", "password123", "Test User", "+91 98765 43210", "")
	require.NoError(t, err)

	updated, err := authService.UpdateProfile(user.ID, "Asha Rao", "")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", updated.Name)
	assert.Equal(t, "+91 98765 43210", updated.Phone, "blank fields keep their value")

	_, err = authService.UpdateProfile(9999, "x", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
