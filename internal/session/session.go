// Package session keeps server-side session state for every request.
//
// The session record lives in a store (the main database or Redis), the
// client only holds a signed cookie with its identifier. Handlers get the
// resolved record from the request context and never touch the cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/bookshelf/internal/auth"
	"github.com/patric-chuzhbe/bookshelf/internal/logger"
	"github.com/patric-chuzhbe/bookshelf/internal/models"
)

type sessionKeeper interface {
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	SaveSession(ctx context.Context, sess *models.Session) error
	DeleteSession(ctx context.Context, sessionID string) error
}

type cookieCodec interface {
	SetSessionCookie(response http.ResponseWriter, sessionID string, expiresAt time.Time) error
	ClearSessionCookie(response http.ResponseWriter)
	SessionIDFromRequest(request *http.Request) (string, error)
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// Key is the context key of the resolved *models.Session.
const Key ContextKey = "session"

// Manager resolves, mutates and persists sessions.
type Manager struct {
	store   sessionKeeper
	cookies cookieCodec
	ttl     time.Duration
	now     func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New creates a Manager over the given store and cookie codec.
func New(store sessionKeeper, cookies cookieCodec, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		cookies: cookies,
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// FromContext returns the session resolved by LoadSession, or nil.
func FromContext(ctx context.Context) *models.Session {
	sess, _ := ctx.Value(Key).(*models.Session)
	return sess
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *models.Session) context.Context {
	return context.WithValue(ctx, Key, sess)
}

func (m *Manager) newSession() *models.Session {
	return &models.Session{
		ID:        uuid.NewString(),
		ExpiresAt: m.now().Add(m.ttl),
	}
}

// Resolve returns the session referenced by the request cookie, or a fresh
// anonymous one when the cookie is missing, invalid or points to nothing.
// Only store failures are reported as errors.
func (m *Manager) Resolve(request *http.Request) (*models.Session, error) {
	sessionID, err := m.cookies.SessionIDFromRequest(request)
	if err != nil {
		return m.newSession(), nil
	}

	sess, err := m.store.GetSession(request.Context(), sessionID)
	if errors.Is(err, models.ErrNotFound) {
		return m.newSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/session/session.go/Resolve(): error while `m.store.GetSession()` calling: %w", err)
	}
	if sess.IsExpired(m.now()) {
		return m.newSession(), nil
	}

	return sess, nil
}

// LoadSession is an HTTP middleware that puts the request's session into the context.
func (m *Manager) LoadSession(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		sess, err := m.Resolve(request)
		if err != nil {
			logger.Log.Errorw("unable to load session", "error", err)
			http.Error(response, "Server Error", http.StatusInternalServerError)

			return
		}

		h.ServeHTTP(response, request.WithContext(WithSession(request.Context(), sess)))
	}

	return http.HandlerFunc(middleware)
}

// RequireUser is an HTTP middleware that redirects anonymous sessions to /login.
func RequireUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !FromContext(request.Context()).IsAuthenticated() {
			http.Redirect(response, request, "/login", http.StatusFound)

			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// Save persists sess, extends its expiry and refreshes the cookie.
func (m *Manager) Save(ctx context.Context, response http.ResponseWriter, sess *models.Session) error {
	sess.ExpiresAt = m.now().Add(m.ttl)

	if err := m.store.SaveSession(ctx, sess); err != nil {
		return fmt.Errorf("in internal/session/session.go/Save(): error while `m.store.SaveSession()` calling: %w", err)
	}

	if err := m.cookies.SetSessionCookie(response, sess.ID, sess.ExpiresAt); err != nil {
		return fmt.Errorf("in internal/session/session.go/Save(): error while `m.cookies.SetSessionCookie()` calling: %w", err)
	}

	return nil
}

// Login binds userID to the session. The session gets a new identifier and
// the record under the old one is removed.
func (m *Manager) Login(ctx context.Context, response http.ResponseWriter, sess *models.Session, userID string) error {
	previousID := sess.ID

	sess.ID = uuid.NewString()
	sess.UserID = userID

	if err := m.Save(ctx, response, sess); err != nil {
		return err
	}

	if err := m.store.DeleteSession(ctx, previousID); err != nil && !errors.Is(err, models.ErrNotFound) {
		logger.Log.Warnw("unable to drop the pre-login session", "error", err)
	}

	return nil
}

// Logout destroys the session. A store failure is reported as models.ErrSessionTeardown.
func (m *Manager) Logout(ctx context.Context, response http.ResponseWriter, sess *models.Session) error {
	err := m.store.DeleteSession(ctx, sess.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: %w", models.ErrSessionTeardown, err)
	}

	sess.UserID = ""
	sess.Flash = nil
	sess.BookOfDay = nil
	m.cookies.ClearSessionCookie(response)

	return nil
}

// SetFlash stores a one-shot message and persists the session.
func (m *Manager) SetFlash(
	ctx context.Context,
	response http.ResponseWriter,
	sess *models.Session,
	kind string,
	text string,
) error {
	sess.Flash = &models.Flash{Type: kind, Content: text}

	return m.Save(ctx, response, sess)
}

// TakeFlash returns the pending message and clears it, so the next read sees nothing.
func (m *Manager) TakeFlash(ctx context.Context, response http.ResponseWriter, sess *models.Session) (*models.Flash, error) {
	flash := sess.Flash
	if flash == nil {
		return nil, nil
	}

	sess.Flash = nil
	if err := m.Save(ctx, response, sess); err != nil {
		return nil, err
	}

	return flash, nil
}

// GetBookOfDay returns the cached book id when it was picked on date today.
func GetBookOfDay(sess *models.Session, today string) (string, bool) {
	if sess == nil || sess.BookOfDay == nil || sess.BookOfDay.Date != today {
		return "", false
	}

	return sess.BookOfDay.BookID, true
}

// SetBookOfDay caches bookID as the pick for date today and persists the session.
func (m *Manager) SetBookOfDay(
	ctx context.Context,
	response http.ResponseWriter,
	sess *models.Session,
	bookID string,
	today string,
) error {
	sess.BookOfDay = &models.BookOfDay{BookID: bookID, Date: today}

	return m.Save(ctx, response, sess)
}

var _ cookieCodec = (*auth.Auth)(nil)
