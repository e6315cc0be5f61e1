package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Sign(secret, "user-1", "customer", time.Hour, time.Now())
	require.NoError(t, err)

	id, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "user-1", Role: "customer"}, id)

	_, err = ParseToken([]byte("wrong-secret"), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := Sign(secret, "user-1", "customer", time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	secret := []byte("test-secret")
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(id.UserID + "/" + id.Role))
	})

	token, err := Sign(secret, "prov-1", "provider", time.Hour, time.Now())
	require.NoError(t, err)

	h := Middleware(secret)(echo)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "prov-1/provider", rw.Body.String())

	bad := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	bad.Header.Set("X-User-Id", "spoofed")
	bad.Header.Set("X-Role", "admin")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, bad)
	assert.Equal(t, http.StatusUnauthorized, rw.Code)

	trusted := Middleware(nil)(echo)
	rw = httptest.NewRecorder()
	trusted.ServeHTTP(rw, bad)
	assert.Equal(t, "spoofed/admin", rw.Body.String())
}
