// Package jsondb provides a file-backed storage for users, books and sessions.
// The whole dataset is kept in memory and written to a JSON file on Close.
package jsondb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/bookshelf/internal/models"
	"github.com/patric-chuzhbe/bookshelf/internal/user"
)

type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

// CacheStruct is the persisted shape of the database file.
type CacheStruct struct {
	Users         map[string]*user.User
	EmailToUserID map[string]string
	Books         map[string]*models.Book
	BookOrder     []string
	Sessions      map[string]*models.Session
}

// NewCache returns an empty dataset.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:         map[string]*user.User{},
		EmailToUserID: map[string]string{},
		Books:         map[string]*models.Book{},
		BookOrder:     []string{},
		Sessions:      map[string]*models.Session{},
	}
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cache)
	if err != nil {
		return err
	}

	return nil
}

// New opens the database file, creating it when it does not exist.
// An empty file is initialized with an empty dataset.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) && !errors.Is(err, io.EOF) {
			return nil, err
		}
		db.Cache = NewCache()
		if err := writeToJSONFile(fileName, db.Cache); err != nil {
			return nil, err
		}
	}
	db.fillEmptyMaps()

	return db, nil
}

func (db *JSONDB) fillEmptyMaps() {
	if db.Cache.Users == nil {
		db.Cache.Users = map[string]*user.User{}
	}
	if db.Cache.EmailToUserID == nil {
		db.Cache.EmailToUserID = map[string]string{}
	}
	if db.Cache.Books == nil {
		db.Cache.Books = map[string]*models.Book{}
	}
	if db.Cache.Sessions == nil {
		db.Cache.Sessions = map[string]*models.Session{}
	}
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the dataset to the database file.
func (db *JSONDB) Close() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

// CreateUser stores usr under a new identifier. The email is the uniqueness key.
func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	email := strings.ToLower(usr.Email)
	if _, exists := db.Cache.EmailToUserID[email]; exists {
		return "", models.ErrDuplicateEmail
	}

	stored := *usr
	stored.ID = uuid.New().String()
	db.Cache.Users[stored.ID] = &stored
	db.Cache.EmailToUserID[email] = stored.ID

	return stored.ID, nil
}

func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return nil, models.ErrNotFound
	}
	result := *usr

	return &result, nil
}

func (db *JSONDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	userID, found := db.Cache.EmailToUserID[strings.ToLower(email)]
	if !found {
		return nil, models.ErrNotFound
	}
	result := *db.Cache.Users[userID]

	return &result, nil
}

// InsertBook stores a new book and returns its identifier.
func (db *JSONDB) InsertBook(ctx context.Context, book *models.Book) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now().UTC()
	stored := *book
	stored.ID = uuid.New().String()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	db.Cache.Books[stored.ID] = &stored
	db.Cache.BookOrder = append(db.Cache.BookOrder, stored.ID)

	return stored.ID, nil
}

func (db *JSONDB) GetBookByID(ctx context.Context, bookID string) (*models.Book, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	book, found := db.Cache.Books[bookID]
	if !found {
		return nil, models.ErrNotFound
	}
	result := *book

	return &result, nil
}

// allBooks returns copies of every book in insertion order. The caller holds the lock.
func (db *JSONDB) allBooks() []models.Book {
	result := make([]models.Book, 0, len(db.Cache.BookOrder))
	for _, id := range db.Cache.BookOrder {
		if book, found := db.Cache.Books[id]; found {
			result = append(result, *book)
		}
	}

	return result
}

func (db *JSONDB) GetAllBooks(ctx context.Context) ([]models.Book, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.allBooks(), nil
}

func (db *JSONDB) GetBooksByOwner(ctx context.Context, ownerID string) ([]models.Book, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return funk.Filter(db.allBooks(), func(book models.Book) bool {
		return book.UserID == ownerID
	}).([]models.Book), nil
}

// SearchBooks returns books whose title or author contains query, ignoring case.
func (db *JSONDB) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	needle := strings.ToLower(query)

	return funk.Filter(db.allBooks(), func(book models.Book) bool {
		return strings.Contains(strings.ToLower(book.Title), needle) ||
			strings.Contains(strings.ToLower(book.Author), needle)
	}).([]models.Book), nil
}

// UpdateBook overwrites the stored book. Only a book owned by book.UserID is updated.
func (db *JSONDB) UpdateBook(ctx context.Context, book *models.Book) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, found := db.Cache.Books[book.ID]
	if !found || stored.UserID != book.UserID {
		return models.ErrNotFound
	}

	updated := *book
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	db.Cache.Books[book.ID] = &updated

	return nil
}

// DeleteBook removes the book if it is owned by ownerID.
func (db *JSONDB) DeleteBook(ctx context.Context, bookID, ownerID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, found := db.Cache.Books[bookID]
	if !found || stored.UserID != ownerID {
		return models.ErrNotFound
	}

	delete(db.Cache.Books, bookID)
	db.Cache.BookOrder = funk.Filter(db.Cache.BookOrder, func(id string) bool {
		return id != bookID
	}).([]string)

	return nil
}

// GetSession returns the session; expired sessions are dropped and reported as not found.
func (db *JSONDB) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	sess, found := db.Cache.Sessions[sessionID]
	if !found {
		return nil, models.ErrNotFound
	}
	if sess.IsExpired(time.Now()) {
		delete(db.Cache.Sessions, sessionID)
		return nil, models.ErrNotFound
	}

	return copySession(sess), nil
}

func (db *JSONDB) SaveSession(ctx context.Context, sess *models.Session) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.Cache.Sessions[sess.ID] = copySession(sess)

	return nil
}

func (db *JSONDB) DeleteSession(ctx context.Context, sessionID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.Cache.Sessions, sessionID)

	return nil
}

func copySession(sess *models.Session) *models.Session {
	result := *sess
	if sess.Flash != nil {
		flash := *sess.Flash
		result.Flash = &flash
	}
	if sess.BookOfDay != nil {
		bookOfDay := *sess.BookOfDay
		result.BookOfDay = &bookOfDay
	}

	return &result
}
