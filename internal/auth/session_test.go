// internal/auth/session_test.go
package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenExpireTime(t *testing.T) {
	for _, never := range []string{"", "0", "never"} {
		d, err := ParseTokenExpireTime(never)
		require.NoError(t, err)
		assert.Zero(t, d)
	}

	d, err := ParseTokenExpireTime("72h")
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, d)

	_, err = ParseTokenExpireTime("soon")
	assert.Error(t, err)
}

func TestJWTRoundTrip(t *testing.T) {
	issuer, err := NewIssuer(time.Hour)
	require.NoError(t, err)

	token, err := issuer.CreateJWT("player-1")
	require.NoError(t, err)
	id, err := issuer.AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "player-1", id)

	other, err := NewIssuer(0)
	require.NoError(t, err)
	_, err = other.AuthenticateJWT(token)
	assert.Error(t, err, "tokens from another key must be rejected")
}

func TestExpiredTokenIsRejected(t *testing.T) {
	issuer, err := NewIssuer(-time.Minute)
	require.NoError(t, err)
	token, err := issuer.CreateJWT("player-1")
	require.NoError(t, err)

	_, err = issuer.AuthenticateJWT(token)
	assert.Error(t, err)
}

func TestEnsurePlayerID(t *testing.T) {
	issuer, err := NewIssuer(0)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	id, err := issuer.EnsurePlayerID(rec, httptest.NewRequest(http.MethodGet, "/ws/nogame", nil))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)

	// Presenting the cookie again yields the same id and no new cookie.
	req := httptest.NewRequest(http.MethodGet, "/ws/nogame", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	again, err := issuer.EnsurePlayerID(rec, req)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Empty(t, rec.Result().Cookies())

	// A forged cookie is replaced.
	req = httptest.NewRequest(http.MethodGet, "/ws/nogame", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	rec = httptest.NewRecorder()
	fresh, err := issuer.EnsurePlayerID(rec, req)
	require.NoError(t, err)
	assert.NotEqual(t, id, fresh)
	assert.Len(t, rec.Result().Cookies(), 1)
}
