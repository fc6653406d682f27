package models

import (
	"errors"
	"time"
)

// DefaultCoverPath is used for books created without an uploaded cover.
const DefaultCoverPath = "default-cover.jpg"

// DateLayout is the calendar-day layout used by the book of the day cache.
const DateLayout = "2006-01-02"

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

const (
	FlashSuccess = "success"
	FlashError   = "error"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateEmail   = errors.New("email already in use")
	ErrNoMatch          = errors.New("invalid email or password")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrSessionTeardown  = errors.New("unable to destroy session")
	ErrValidation       = errors.New("validation error")
)

// Book is a catalog record owned by exactly one user.
type Book struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	PublishYear   int       `json:"publish_year"`
	Author        string    `json:"author"`
	CoverPagePath string    `json:"cover_page_path"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BookWithOwner is a book joined with the public part of its owner.
type BookWithOwner struct {
	Book
	OwnerName  string
	OwnerEmail string
}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// BookOfDay caches the book picked for a calendar date.
type BookOfDay struct {
	BookID string `json:"book_id"`
	Date   string `json:"date"`
}

// Session is the server-side state bound to a session cookie.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id,omitempty"`
	Flash     *Flash     `json:"flash,omitempty"`
	BookOfDay *BookOfDay `json:"book_of_day,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// IsAuthenticated reports whether a user is bound to the session.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != ""
}

// IsExpired reports whether the session is past its expiry at moment now.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
