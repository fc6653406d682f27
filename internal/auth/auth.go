// Package auth provides the signed session cookie codec. The cookie carries
// only the session identifier, signed as an HS256 JWT.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrNoSessionCookie is returned when the request carries no valid session cookie.
var ErrNoSessionCookie = errors.New("no valid session cookie")

// Auth signs and verifies the session cookie.
type Auth struct {
	// cookieName is the name of the cookie used to store the JWT.
	cookieName string

	// signingKey is the key used to sign JWTs.
	signingKey []byte

	// secure marks the cookie as HTTPS only.
	secure bool
}

// Claims represents the JWT claims stored in the session cookie.
// It embeds standard JWT claims and adds the session identifier.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// New creates a new Auth with the given cookie name and signing secret.
func New(cookieName string, signingKey []byte, secure bool) *Auth {
	return &Auth{
		cookieName: cookieName,
		signingKey: signingKey,
		secure:     secure,
	}
}

// SetSessionCookie writes a signed cookie carrying sessionID that expires at expiresAt.
func (a *Auth) SetSessionCookie(response http.ResponseWriter, sessionID string, expiresAt time.Time) error {
	JWTString, err := a.buildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
	})
	if err != nil {
		return fmt.Errorf("in internal/auth/auth.go/SetSessionCookie(): error while `a.buildJWTString()` calling: %w", err)
	}

	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.cookieName,
			Value:    JWTString,
			Path:     "/",
			Expires:  expiresAt,
			HttpOnly: true,
			Secure:   a.secure,
			SameSite: http.SameSiteLaxMode,
		},
	)

	return nil
}

// ClearSessionCookie tells the client to drop the session cookie.
func (a *Auth) ClearSessionCookie(response http.ResponseWriter) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   a.secure,
			SameSite: http.SameSiteLaxMode,
		},
	)
}

// SessionIDFromRequest returns the session identifier carried by the request cookie.
// A missing, tampered or expired cookie yields ErrNoSessionCookie.
func (a *Auth) SessionIDFromRequest(request *http.Request) (string, error) {
	cookie, err := request.Cookie(a.cookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoSessionCookie
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		cookie.Value,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingKey, nil
		},
	)
	if err != nil || !token.Valid || claims.SessionID == "" {
		return "", ErrNoSessionCookie
	}

	return claims.SessionID, nil
}

func (a *Auth) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
