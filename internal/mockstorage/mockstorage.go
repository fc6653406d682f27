// Package mockstorage provides a testify-based mock implementation
// of the storage interfaces used by the credentials, service and session packages.
// It is used for unit testing error paths that real stores cannot easily produce.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/bookshelf/internal/models"
	"github.com/patric-chuzhbe/bookshelf/internal/user"
)

// StorageMock is a testify mock that implements every storage method.
//
// Use it in tests to simulate database behavior.
type StorageMock struct {
	mock.Mock

	// OnPing is an optional function field that can be assigned
	// to define custom mock behavior for Ping in tests.
	//
	// If set, Ping will delegate to this function instead of
	// using testify's generic mock handler.
	OnPing func(ctx context.Context) error
}

// Ping mocks the pinger interface to simulate a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	if m.OnPing != nil {
		return m.OnPing(ctx)
	}
	return nil
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// CreateUser mocks user creation and returns a generated ID.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	args := m.Called(ctx, usr)
	return args.String(0), args.Error(1)
}

// GetUserByID mocks fetching a user by their ID.
func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// GetUserByEmail mocks fetching a user by their email.
func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// InsertBook mocks storing a new book.
func (m *StorageMock) InsertBook(ctx context.Context, book *models.Book) (string, error) {
	args := m.Called(ctx, book)
	return args.String(0), args.Error(1)
}

// GetBookByID mocks fetching a single book.
func (m *StorageMock) GetBookByID(ctx context.Context, bookID string) (*models.Book, error) {
	args := m.Called(ctx, bookID)
	book, _ := args.Get(0).(*models.Book)
	return book, args.Error(1)
}

// GetAllBooks mocks listing every book.
func (m *StorageMock) GetAllBooks(ctx context.Context) ([]models.Book, error) {
	args := m.Called(ctx)
	books, _ := args.Get(0).([]models.Book)
	return books, args.Error(1)
}

// GetBooksByOwner mocks listing the books of one user.
func (m *StorageMock) GetBooksByOwner(ctx context.Context, ownerID string) ([]models.Book, error) {
	args := m.Called(ctx, ownerID)
	books, _ := args.Get(0).([]models.Book)
	return books, args.Error(1)
}

// SearchBooks mocks the title/author substring search.
func (m *StorageMock) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	args := m.Called(ctx, query)
	books, _ := args.Get(0).([]models.Book)
	return books, args.Error(1)
}

// UpdateBook mocks overwriting a book.
func (m *StorageMock) UpdateBook(ctx context.Context, book *models.Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

// DeleteBook mocks removing a book.
func (m *StorageMock) DeleteBook(ctx context.Context, bookID, ownerID string) error {
	args := m.Called(ctx, bookID, ownerID)
	return args.Error(0)
}

// GetSession mocks loading a session record.
func (m *StorageMock) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	args := m.Called(ctx, sessionID)
	sess, _ := args.Get(0).(*models.Session)
	return sess, args.Error(1)
}

// SaveSession mocks persisting a session record.
func (m *StorageMock) SaveSession(ctx context.Context, sess *models.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

// DeleteSession mocks removing a session record.
func (m *StorageMock) DeleteSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}
