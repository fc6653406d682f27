package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithCookies(cookies []*http.Cookie) *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/books", nil)
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	return request
}

func TestSessionCookieRoundTrip(t *testing.T) {
	a := New("bookshelf_session", []byte("0123456789abcdef"), true)

	recorder := httptest.NewRecorder()
	require.NoError(t, a.SetSessionCookie(recorder, "session-1", time.Now().Add(time.Hour)))

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "bookshelf_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	sessionID, err := a.SessionIDFromRequest(requestWithCookies(cookies))
	require.NoError(t, err)
	assert.Equal(t, "session-1", sessionID)
}

func TestSessionIDFromRequestRejectsBadCookies(t *testing.T) {
	a := New("bookshelf_session", []byte("0123456789abcdef"), false)
	other := New("bookshelf_session", []byte("fedcba9876543210"), false)

	expired := httptest.NewRecorder()
	require.NoError(t, a.SetSessionCookie(expired, "session-1", time.Now().Add(-time.Minute)))

	forged := httptest.NewRecorder()
	require.NoError(t, other.SetSessionCookie(forged, "session-1", time.Now().Add(time.Hour)))

	noneSigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{SessionID: "session-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		cookies []*http.Cookie
	}{
		{name: "no cookie"},
		{name: "garbage value", cookies: []*http.Cookie{{Name: "bookshelf_session", Value: "garbage"}}},
		{name: "expired", cookies: expired.Result().Cookies()},
		{name: "signed with another key", cookies: forged.Result().Cookies()},
		{name: "unsigned token", cookies: []*http.Cookie{{Name: "bookshelf_session", Value: noneSigned}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.SessionIDFromRequest(requestWithCookies(tt.cookies))
			assert.ErrorIs(t, err, ErrNoSessionCookie)
		})
	}
}

func TestClearSessionCookie(t *testing.T) {
	a := New("bookshelf_session", []byte("0123456789abcdef"), false)

	recorder := httptest.NewRecorder()
	a.ClearSessionCookie(recorder)

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "bookshelf_session", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
