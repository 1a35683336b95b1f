package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appMiddleware "github.com/FACorreiaa/go-hk-tourism-ai/app/middleware"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLogin(t *testing.T) {
	ctx := context.Background()
	hash := testHash(t, "s3cret")
	issuer := appMiddleware.NewAuthenticator("jwt-secret", discardLogger())

	tests := []struct {
		name     string
		issuer   TokenIssuer
		hash     string
		username string
		password string
		wantErr  error
	}{
		{name: "valid credentials", issuer: issuer, hash: hash, username: "admin", password: "s3cret"},
		{name: "wrong password", issuer: issuer, hash: hash, username: "admin", password: "nope", wantErr: types.ErrUnauthenticated},
		{name: "wrong username", issuer: issuer, hash: hash, username: "root", password: "s3cret", wantErr: types.ErrUnauthenticated},
		{name: "no password hash", issuer: issuer, hash: "", username: "admin", password: "s3cret", wantErr: types.ErrServiceUnavailable},
		{name: "no signing secret", issuer: appMiddleware.NewAuthenticator("", discardLogger()), hash: hash, username: "admin", password: "s3cret", wantErr: types.ErrServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAuthService(tt.issuer, "admin", tt.hash, discardLogger())
			token, expiresAt, err := svc.Login(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.WithinDuration(t, time.Now().Add(TokenTTL), expiresAt, time.Minute)
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("harbour")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("harbour")))
}

func TestLoginHandler(t *testing.T) {
	issuer := appMiddleware.NewAuthenticator("jwt-secret", discardLogger())
	h := NewAuthHandler(NewAuthService(issuer, "admin", testHash(t, "s3cret"), discardLogger()), discardLogger())

	t.Run("issues a token accepted by the admin guard", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"username":"admin","password":"s3cret"}`)))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp api.LoginResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "Bearer", resp.TokenType)

		guarded := issuer.Authenticate(appMiddleware.RequireRole(appMiddleware.RoleAdmin)(
			http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
		))
		req := httptest.NewRequest(http.MethodPost, "/api/session/cleanup", nil)
		req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("bad password", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"username":"admin","password":"guess"}`)))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin"}`)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
