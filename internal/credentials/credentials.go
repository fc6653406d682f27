// Package credentials registers users and verifies their passwords.
// Passwords are hashed with bcrypt before they reach the storage.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/bookshelf/internal/models"
	"github.com/patric-chuzhbe/bookshelf/internal/user"
)

// HashCost is the bcrypt cost factor used for every stored password.
const HashCost = 10

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
}

// Store is the credential store.
type Store struct {
	db   userKeeper
	cost int
}

// New creates a Store over the given user storage.
func New(db userKeeper) *Store {
	return &Store{
		db:   db,
		cost: HashCost,
	}
}

// dummyHash is compared against when the email is unknown so that both
// failure paths spend a bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("bookshelf-dummy-password"), HashCost)

// Signup validates the form, hashes the password and persists a new user.
// It returns models.ErrDuplicateEmail when the email is already registered.
func (s *Store) Signup(ctx context.Context, form models.SignupForm) (string, error) {
	form.Normalize()
	if err := models.Validate(form); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", &models.ValidationError{Field: "password", Reason: "is too long"}
		}
		return "", fmt.Errorf("unable to hash password: %w", err)
	}

	userID, err := s.db.CreateUser(ctx, &user.User{
		Name:         form.Name,
		Email:        form.Email,
		Phone:        form.Phone,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			return "", models.ErrDuplicateEmail
		}
		return "", fmt.Errorf("unable to create user: %w", err)
	}

	return userID, nil
}

// Authenticate returns the id of the user with the given email and password,
// or models.ErrNoMatch when either is wrong.
func (s *Store) Authenticate(ctx context.Context, form models.LoginForm) (string, error) {
	form.Normalize()
	if err := models.Validate(form); err != nil {
		return "", models.ErrNoMatch
	}

	usr, err := s.db.GetUserByEmail(ctx, form.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(form.Password))
			return "", models.ErrNoMatch
		}
		return "", fmt.Errorf("unable to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(form.Password)); err != nil {
		return "", models.ErrNoMatch
	}

	return usr.ID, nil
}
