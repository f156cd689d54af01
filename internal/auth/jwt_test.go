package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestSignValidateInspect(t *testing.T) {
	token, err := Sign(secret, Claims{UserID: 42, Email: "reader@example.com", Role: "USER"}, time.Hour)
	require.NoError(t, err)

	claims, err := Validate(secret, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)

	_, err = Validate([]byte("other"), token)
	assert.Error(t, err)

	inspected, err := Inspect(token)
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", inspected.Email)

	exp, ok := Expiry(token)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)
}

func TestExpiryOfOpaqueToken(t *testing.T) {
	_, ok := Expiry("not-a-jwt")
	assert.False(t, ok)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := BearerToken(r)
	assert.ErrorIs(t, err, ErrMissingToken)

	r.Header.Set("Authorization", "Basic abc")
	_, err = BearerToken(r)
	assert.ErrorIs(t, err, ErrMissingToken)

	r.Header.Set("Authorization", "Bearer jwt-xyz")
	token, err := BearerToken(r)
	require.NoError(t, err)
	assert.Equal(t, "jwt-xyz", token)
}

func TestMiddleware(t *testing.T) {
	var seen *Claims
	h := Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFrom(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, seen)

	token, err := Sign(secret, Claims{UserID: 5}, time.Hour)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.NotNil(t, seen)
	assert.Equal(t, int64(5), seen.UserID)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
