package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/patric-chuzhbe/bookshelf/internal/models"
	"github.com/patric-chuzhbe/bookshelf/internal/user"
)

type booksKeeper interface {
	InsertBook(ctx context.Context, book *models.Book) (string, error)

	GetBookByID(ctx context.Context, bookID string) (*models.Book, error)

	GetAllBooks(ctx context.Context) ([]models.Book, error)

	GetBooksByOwner(ctx context.Context, ownerID string) ([]models.Book, error)

	SearchBooks(ctx context.Context, query string) ([]models.Book, error)

	UpdateBook(ctx context.Context, book *models.Book) error

	DeleteBook(ctx context.Context, bookID, ownerID string) error
}

type usersKeeper interface {
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	booksKeeper
	usersKeeper
	pinger
}

// Service implements the book operations on top of the storage.
type Service struct {
	db       storage
	location *time.Location
	now      func() time.Time
	intn     func(n int) int
}

// Option customizes a Service.
type Option func(*Service)

// WithLocation sets the time zone whose calendar date selects the book of the day.
func WithLocation(location *time.Location) Option {
	return func(s *Service) {
		s.location = location
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRandom replaces the uniform draw in [0, n) used by the book of the day.
func WithRandom(intn func(n int) int) Option {
	return func(s *Service) {
		s.intn = intn
	}
}

func New(db storage, opts ...Option) *Service {
	s := &Service{
		db:       db,
		location: time.UTC,
		now:      time.Now,
		intn:     rand.Intn,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateBook stores a new book owned by ownerID. The owner always comes from
// the session, never from the form.
func (s *Service) CreateBook(ctx context.Context, ownerID string, form models.BookForm, coverPath string) (*models.Book, error) {
	book, err := models.NewBook(ownerID, form, coverPath)
	if err != nil {
		return nil, err
	}

	bookID, err := s.db.InsertBook(ctx, book)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/CreateBook(): error while `s.db.InsertBook()` calling: %w", err)
	}
	book.ID = bookID

	return book, nil
}

// GetBook returns the book or models.ErrNotFound.
func (s *Service) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	return s.db.GetBookByID(ctx, bookID)
}

// GetBookWithOwner returns the book joined with its owner's name and email.
func (s *Service) GetBookWithOwner(ctx context.Context, bookID string) (*models.BookWithOwner, error) {
	book, err := s.db.GetBookByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	result := &models.BookWithOwner{Book: *book}

	owner, err := s.db.GetUserByID(ctx, book.UserID)
	switch {
	case err == nil:
		result.OwnerName = owner.Name
		result.OwnerEmail = owner.Email
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("in internal/service/service.go/GetBookWithOwner(): error while `s.db.GetUserByID()` calling: %w", err)
	}

	return result, nil
}

// GetOwnedBook returns the book only when ownerID owns it, models.ErrUnauthorized otherwise.
func (s *Service) GetOwnedBook(ctx context.Context, bookID, ownerID string) (*models.Book, error) {
	book, err := s.db.GetBookByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.UserID != ownerID {
		return nil, models.ErrUnauthorized
	}

	return book, nil
}

// ListOwnBooks returns the books of ownerID in insertion order.
func (s *Service) ListOwnBooks(ctx context.Context, ownerID string) ([]models.Book, error) {
	return s.db.GetBooksByOwner(ctx, ownerID)
}

// ListAllBooks returns every book regardless of owner.
func (s *Service) ListAllBooks(ctx context.Context) ([]models.Book, error) {
	return s.db.GetAllBooks(ctx)
}

// UpdateBook merges the non-empty form fields into the book. A non-owner gets
// models.ErrUnauthorized and the record is left unmodified.
func (s *Service) UpdateBook(
	ctx context.Context,
	bookID string,
	ownerID string,
	form models.BookUpdateForm,
	coverPath string,
) (*models.Book, error) {
	book, err := s.GetOwnedBook(ctx, bookID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := form.Apply(book, coverPath); err != nil {
		return nil, err
	}

	if err := s.db.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/UpdateBook(): error while `s.db.UpdateBook()` calling: %w", err)
	}

	return book, nil
}

// DeleteBook removes the book and returns the removed record. A non-owner
// gets models.ErrUnauthorized.
func (s *Service) DeleteBook(ctx context.Context, bookID, ownerID string) (*models.Book, error) {
	book, err := s.GetOwnedBook(ctx, bookID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.db.DeleteBook(ctx, bookID, ownerID); err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/DeleteBook(): error while `s.db.DeleteBook()` calling: %w", err)
	}

	return book, nil
}

// Search returns the books whose title or author contains query, ignoring case.
func (s *Service) Search(ctx context.Context, query string) ([]models.Book, error) {
	return s.db.SearchBooks(ctx, strings.TrimSpace(query))
}

// Today returns the current calendar date in the configured time zone.
func (s *Service) Today() string {
	return s.now().In(s.location).Format(models.DateLayout)
}

// BookOfTheDay returns the book cached under cachedID when it still exists,
// otherwise draws one uniformly from all books and reports drawn=true so the
// caller can cache it. An empty catalog yields a nil book and no error.
func (s *Service) BookOfTheDay(ctx context.Context, cachedID string) (book *models.Book, drawn bool, err error) {
	if cachedID != "" {
		book, err = s.db.GetBookByID(ctx, cachedID)
		if err == nil {
			return book, false, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, false, fmt.Errorf("in internal/service/service.go/BookOfTheDay(): error while `s.db.GetBookByID()` calling: %w", err)
		}
	}

	books, err := s.db.GetAllBooks(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("in internal/service/service.go/BookOfTheDay(): error while `s.db.GetAllBooks()` calling: %w", err)
	}
	if len(books) == 0 {
		return nil, false, nil
	}

	picked := books[s.intn(len(books))]

	return &picked, true, nil
}

// Ping checks the health of the database/storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
