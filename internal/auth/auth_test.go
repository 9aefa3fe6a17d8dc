package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *JWTManager {
	return NewJWTManager("test-secret-key-that-is-long-enough", "sitekeeper-test", "sitekeeper-test", time.Hour)
}

func TestGenerateAndValidateToken(t *testing.T) {
	mgr := newTestManager()

	tok, err := mgr.GenerateToken(42, []string{"admin", "caretaker"})
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := mgr.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, []string{"admin", "caretaker"}, claims.Roles)
	assert.Equal(t, "sitekeeper-test", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	mgr := newTestManager()
	other := NewJWTManager("another-secret-that-is-also-long-enough", "sitekeeper-test", "sitekeeper-test", time.Hour)

	tok, err := mgr.GenerateToken(1, []string{"viewer"})
	require.NoError(t, err)

	_, err = other.ValidateToken(tok)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-that-is-long-enough", "sitekeeper-test", "sitekeeper-test", -time.Minute)

	tok, err := mgr.GenerateToken(1, []string{"viewer"})
	require.NoError(t, err)

	_, err = mgr.ValidateToken(tok)
	assert.Error(t, err)
}

func TestClaimsHasRole(t *testing.T) {
	claims := &Claims{Roles: []string{"caretaker"}}

	assert.True(t, claims.HasRole("caretaker"))
	assert.True(t, claims.HasRole("admin", "caretaker"))
	assert.False(t, claims.HasRole("admin"))
	assert.False(t, claims.HasRole())
}

func TestAuthMiddleware(t *testing.T) {
	mgr := newTestManager()
	handler := AuthMiddleware(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, int64(7), UserIDFromContext(r.Context()))
		assert.Equal(t, []string{"admin"}, RolesFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/sites", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("not bearer", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/sites", nil)
		req.Header.Set("Authorization", "Basic abc")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/sites", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		tok, err := mgr.GenerateToken(7, []string{"admin"})
		require.NoError(t, err)
		req := httptest.NewRequest("GET", "/sites", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestMustRole(t *testing.T) {
	mgr := newTestManager()

	protected := AuthMiddleware(mgr)(MustRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	t.Run("role present", func(t *testing.T) {
		tok, err := mgr.GenerateToken(1, []string{"admin"})
		require.NoError(t, err)
		req := httptest.NewRequest("DELETE", "/sites/1", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("role missing", func(t *testing.T) {
		tok, err := mgr.GenerateToken(1, []string{"viewer"})
		require.NoError(t, err)
		req := httptest.NewRequest("DELETE", "/sites/1", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no claims in context", func(t *testing.T) {
		bare := MustRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		w := httptest.NewRecorder()
		bare.ServeHTTP(w, httptest.NewRequest("GET", "/sites", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
