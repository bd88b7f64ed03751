package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maintenance-service/internal/dto"
	"maintenance-service/internal/entities"
	apperrors "maintenance-service/pkg/errors"
	"maintenance-service/pkg/service"
	"maintenance-service/pkg/utils"
)

func newAuthFixture(t *testing.T) (AuthServiceInterface, service.JWTService, *memStore, uint64) {
	t.Helper()
	store := newMemStore()
	users := &fakeUserRepo{store: store}
	hash, err := utils.HashPassword("secret123")
	require.NoError(t, err)
	id, err := users.Create(context.Background(), nil, entities.User{Email: "tech@example.com", FullName: "Техник", PasswordHash: hash})
	require.NoError(t, err)

	jwtSvc := service.NewJWTService("test-secret", time.Minute, time.Hour, zap.NewNop())
	return NewAuthService(users, jwtSvc, zap.NewNop()), jwtSvc, store, id
}

func requireHTTPCode(t *testing.T, err error, code int) {
	t.Helper()
	var httpErr *apperrors.HttpError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, code, httpErr.Code)
}

func TestAuthService_Login(t *testing.T) {
	auth, jwtSvc, _, userID := newAuthFixture(t)
	ctx := context.Background()

	resp, err := auth.Login(ctx, dto.LoginDTO{Email: " Tech@Example.com ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, userID, resp.UserID)

	claims, err := jwtSvc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.False(t, claims.IsRefreshToken)

	_, err = auth.Login(ctx, dto.LoginDTO{Email: "tech@example.com", Password: "wrong-pass"})
	requireHTTPCode(t, err, http.StatusUnauthorized)

	_, err = auth.Login(ctx, dto.LoginDTO{Email: "nobody@example.com", Password: "secret123"})
	requireHTTPCode(t, err, http.StatusUnauthorized)
}

func TestAuthService_LoginInactiveUser(t *testing.T) {
	auth, _, store, userID := newAuthFixture(t)
	u := store.users[userID]
	u.Active = false
	store.users[userID] = u

	_, err := auth.Login(context.Background(), dto.LoginDTO{Email: "tech@example.com", Password: "secret123"})
	requireHTTPCode(t, err, http.StatusUnauthorized)
}

func TestAuthService_RefreshTokens(t *testing.T) {
	auth, jwtSvc, _, userID := newAuthFixture(t)
	ctx := context.Background()

	access, refresh, err := jwtSvc.GenerateTokens(userID)
	require.NoError(t, err)

	resp, err := auth.RefreshTokens(ctx, refresh)
	require.NoError(t, err)
	assert.Equal(t, userID, resp.UserID)
	assert.NotEmpty(t, resp.RefreshToken)

	_, err = auth.RefreshTokens(ctx, access)
	requireHTTPCode(t, err, http.StatusUnauthorized)

	_, err = auth.RefreshTokens(ctx, "мусор")
	requireHTTPCode(t, err, http.StatusUnauthorized)

	_, orphanRefresh, err := jwtSvc.GenerateTokens(424242)
	require.NoError(t, err)
	_, err = auth.RefreshTokens(ctx, orphanRefresh)
	requireHTTPCode(t, err, http.StatusUnauthorized)
}
