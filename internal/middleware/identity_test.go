package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carevault/access-server-go/internal/model"
)

const identitySecret = "test-identity-secret-0123456789abcdef"

func signIdentityToken(t *testing.T, secret, subject, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, identityClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func identityTestHandler(captured **Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetIdentity(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentityMiddleware(t *testing.T) {
	m := NewIdentityMiddleware(identitySecret)

	t.Run("valid token puts identity on context", func(t *testing.T) {
		userID := uuid.NewString()
		var captured *Identity
		handler := m.Handler(identityTestHandler(&captured))

		req := httptest.NewRequest("GET", "/v1/tokens", nil)
		req.Header.Set("Authorization", "Bearer "+signIdentityToken(t, identitySecret, userID, "patient"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, captured)
		assert.Equal(t, userID, captured.UserID)
		assert.Equal(t, model.RolePatient, captured.Role)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		var captured *Identity
		handler := m.Handler(identityTestHandler(&captured))

		req := httptest.NewRequest("GET", "/v1/tokens", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, captured)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		var captured *Identity
		handler := m.Handler(identityTestHandler(&captured))

		req := httptest.NewRequest("GET", "/v1/tokens", nil)
		req.Header.Set("Authorization", "Bearer "+signIdentityToken(t, "another-secret-value-0123456789abcd", uuid.NewString(), "patient"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, identityClaims{
			Role: "patient",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   uuid.NewString(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		})
		signed, err := token.SignedString([]byte(identitySecret))
		require.NoError(t, err)

		var captured *Identity
		handler := m.Handler(identityTestHandler(&captured))
		req := httptest.NewRequest("GET", "/v1/tokens", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unsigned token rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, identityClaims{
			Role:             "admin",
			RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()},
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		handler := m.Handler(identityTestHandler(new(*Identity)))
		req := httptest.NewRequest("GET", "/v1/tokens", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		handler := m.Handler(identityTestHandler(new(*Identity)))
		req := httptest.NewRequest("GET", "/v1/tokens", nil)
		req.Header.Set("Authorization", "Bearer "+signIdentityToken(t, identitySecret, uuid.NewString(), "superuser"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("empty subject rejected", func(t *testing.T) {
		handler := m.Handler(identityTestHandler(new(*Identity)))
		req := httptest.NewRequest("GET", "/v1/tokens", nil)
		req.Header.Set("Authorization", "Bearer "+signIdentityToken(t, identitySecret, "", "patient"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	withIdentity := func(role model.ActorRole) *http.Request {
		req := httptest.NewRequest("POST", "/v1/access/grants", nil)
		identity := &Identity{UserID: uuid.NewString(), Role: role}
		return req.WithContext(context.WithValue(req.Context(), IdentityContextKey, identity))
	}

	t.Run("allows listed role", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireRole(model.RoleDoctor)(ok).ServeHTTP(rec, withIdentity(model.RoleDoctor))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("allows any of multiple roles", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireRole(model.RolePatient, model.RoleAdmin)(ok).ServeHTTP(rec, withIdentity(model.RoleAdmin))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects other roles", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireRole(model.RoleDoctor)(ok).ServeHTTP(rec, withIdentity(model.RolePatient))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rejects missing identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/v1/access/grants", nil)
		RequireRole(model.RoleDoctor)(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
