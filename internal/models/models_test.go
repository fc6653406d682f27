package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		form    any
		field   string
		message string
	}{
		{
			name:    "signup without phone",
			form:    SignupForm{Name: "Ann", Email: "ann@example.com", Password: "secret"},
			field:   "phnum",
			message: "Phone number is required",
		},
		{
			name:    "signup with a broken email",
			form:    SignupForm{Name: "Ann", Email: "ann.example.com", Phone: "1", Password: "secret"},
			field:   "email",
			message: "Email must be a valid email address",
		},
		{
			name:    "signup with an overlong password",
			form:    SignupForm{Name: "Ann", Email: "ann@example.com", Phone: "1", Password: strings.Repeat("x", 73)},
			field:   "password",
			message: "Password is too long",
		},
		{
			name:    "book without a title",
			form:    BookForm{Description: "d", PublishYear: "1965", Author: "A"},
			field:   "title",
			message: "Title is required",
		},
		{
			name:    "book without a year",
			form:    BookForm{Title: "T", Description: "d", Author: "A"},
			field:   "publishYear",
			message: "Publish year is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.form)
			require.ErrorIs(t, err, ErrValidation)

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.field, validationErr.Field)
			assert.Equal(t, tt.message, validationErr.Message())
		})
	}

	assert.NoError(t, Validate(BookUpdateForm{}))
	assert.NoError(t, Validate(LoginForm{Email: "ann@example.com", Password: "p"}))
}

func TestPublishYear(t *testing.T) {
	tests := []struct {
		name    string
		year    string
		want    int
		message string
	}{
		{name: "common era", year: "1965", want: 1965},
		{name: "before the common era", year: "-700", want: -700},
		{name: "roman numerals", year: "MCMLXV", message: "Publish year must be an integer"},
		{name: "fraction", year: "1965.5", message: "Publish year must be an integer"},
		{name: "beyond the column range", year: "99999999999", message: "Publish year is out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, createErr := NewBook("u1", BookForm{Title: "T", Description: "d", PublishYear: tt.year, Author: "A"}, "")

			updated := Book{Title: "T", PublishYear: 1}
			updateErr := BookUpdateForm{PublishYear: tt.year}.Apply(&updated, "")

			if tt.message == "" {
				require.NoError(t, createErr)
				require.NoError(t, updateErr)
				assert.Equal(t, tt.want, created.PublishYear)
				assert.Equal(t, tt.want, updated.PublishYear)
				return
			}

			for _, err := range []error{createErr, updateErr} {
				var validationErr *ValidationError
				require.True(t, errors.As(err, &validationErr))
				assert.Equal(t, "publishYear", validationErr.Field)
				assert.Equal(t, tt.message, validationErr.Message())
			}
			assert.Equal(t, 1, updated.PublishYear)
		})
	}
}

func TestNewBook(t *testing.T) {
	form := BookForm{Title: "  Dune ", Description: "Spice", PublishYear: " 1965", Author: "Frank Herbert"}

	book, err := NewBook("u1", form, "")
	require.NoError(t, err)
	assert.Equal(t, &Book{
		UserID:        "u1",
		Title:         "Dune",
		Description:   "Spice",
		PublishYear:   1965,
		Author:        "Frank Herbert",
		CoverPagePath: DefaultCoverPath,
	}, book)

	book, err = NewBook("u1", form, "/uploads/dune.png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/dune.png", book.CoverPagePath)

	_, err = NewBook("", form, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewBook("u1", BookForm{Title: "Dune"}, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBookUpdateFormApply(t *testing.T) {
	original := Book{
		ID:            "b1",
		UserID:        "u1",
		Title:         "Dune",
		Description:   "Spice",
		PublishYear:   1965,
		Author:        "Frank Herbert",
		CoverPagePath: "/uploads/dune.png",
	}

	book := original
	require.NoError(t, BookUpdateForm{Title: " Dune Messiah ", PublishYear: "1969"}.Apply(&book, ""))
	assert.Equal(t, "Dune Messiah", book.Title)
	assert.Equal(t, 1969, book.PublishYear)
	assert.Equal(t, original.Description, book.Description)
	assert.Equal(t, original.Author, book.Author)
	assert.Equal(t, original.CoverPagePath, book.CoverPagePath)

	book = original
	require.NoError(t, BookUpdateForm{}.Apply(&book, "/uploads/new.png"))
	assert.Equal(t, "/uploads/new.png", book.CoverPagePath)
	assert.Equal(t, original.Title, book.Title)

	book = original
	err := BookUpdateForm{Title: "New", PublishYear: "soon"}.Apply(&book, "")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, original, book, "a rejected update leaves the book untouched")
}

func TestFormNormalize(t *testing.T) {
	signup := SignupForm{Name: " Ann ", Email: " Ann@Example.COM ", Phone: " 1 "}
	signup.Normalize()
	assert.Equal(t, SignupForm{Name: "Ann", Email: "ann@example.com", Phone: "1"}, signup)

	login := LoginForm{Email: "ANN@example.com ", Password: " spaced "}
	login.Normalize()
	assert.Equal(t, "ann@example.com", login.Email)
	assert.Equal(t, " spaced ", login.Password, "passwords are taken verbatim")
}

func TestSession(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var missing *Session
	assert.False(t, missing.IsAuthenticated())
	assert.False(t, (&Session{ID: "s1"}).IsAuthenticated())
	assert.True(t, (&Session{ID: "s1", UserID: "u1"}).IsAuthenticated())

	assert.False(t, (&Session{}).IsExpired(now))
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Minute)}).IsExpired(now))
	assert.True(t, (&Session{ExpiresAt: now.Add(-time.Minute)}).IsExpired(now))
}
