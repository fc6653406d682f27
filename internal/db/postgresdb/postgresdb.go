// Package postgresdb provides a PostgreSQL-based implementation of the storage interfaces
// for persisting users, books and sessions.
// The schema is managed by goose migrations embedded into the binary.
package postgresdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/bookshelf/internal/db/postgresdb/migrations"
	"github.com/patric-chuzhbe/bookshelf/internal/models"
	"github.com/patric-chuzhbe/bookshelf/internal/user"
)

// PostgresDB is a PostgreSQL-backed implementation of the bookshelf storage.
// It handles all persistence operations via a PostgreSQL database connection.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration

	migrateMu sync.Mutex
	migrated  bool
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables resetting the database schema before migration.
// It can be used for test setups or development purposes.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New opens a connection pool and runs schema migrations.
//
// If the database cannot be reached the returned error wraps models.ErrStoreUnavailable
// and the returned PostgresDB is still usable: migrations are retried on the next call.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return result,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	if err := result.ensureMigrated(ctx); err != nil {
		return result, err
	}

	return result, nil
}

func (db *PostgresDB) ensureMigrated(ctx context.Context) error {
	db.migrateMu.Lock()
	defer db.migrateMu.Unlock()

	if db.migrated {
		return nil
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/ensureMigrated(): error while `goose.SetDialect()` calling: %w",
			err,
		)
	}

	if err := goose.UpContext(ctx, db.database, "."); err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/ensureMigrated(): error while `goose.UpContext()` calling: %w",
			wrapErr(err),
		)
	}
	db.migrated = true

	return nil
}

// wrapErr maps driver errors onto the models error taxonomy.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgerrcode.InvalidTextRepresentation {
			// malformed uuid in a lookup
			return models.ErrNotFound
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	return err
}

// CreateUser inserts a new user record into the database.
// The unique index on lower(email) turns duplicates into models.ErrDuplicateEmail.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	if err := db.ensureMigrated(ctx); err != nil {
		return "", err
	}

	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO users (name, email, phone, password_hash)
				VALUES ($1, $2, $3, $4)
				RETURNING id
		`,
		usr.Name,
		usr.Email,
		usr.Phone,
		usr.PasswordHash,
	)
	var userIDFromDB string
	err := row.Scan(&userIDFromDB)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", models.ErrDuplicateEmail
		}
		return "", wrapErr(err)
	}

	return userIDFromDB, nil
}

// GetUserByID fetches a user by their UUID from the database.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	return db.getUser(ctx, `SELECT id, name, email, phone, password_hash FROM users WHERE id = $1`, userID)
}

// GetUserByEmail fetches a user by email, ignoring case.
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return db.getUser(ctx, `SELECT id, name, email, phone, password_hash FROM users WHERE lower(email) = lower($1)`, email)
}

func (db *PostgresDB) getUser(ctx context.Context, query string, arg string) (*user.User, error) {
	if err := db.ensureMigrated(ctx); err != nil {
		return nil, err
	}

	usr := &user.User{}
	err := db.database.QueryRowContext(ctx, query, arg).Scan(
		&usr.ID,
		&usr.Name,
		&usr.Email,
		&usr.Phone,
		&usr.PasswordHash,
	)
	if err != nil {
		return nil, wrapErr(err)
	}

	return usr, nil
}

const bookColumns = `id, user_id, title, description, publish_year, author, cover_page_path, created_at, updated_at`

func scanBook(row interface{ Scan(dest ...any) error }) (*models.Book, error) {
	book := &models.Book{}
	err := row.Scan(
		&book.ID,
		&book.UserID,
		&book.Title,
		&book.Description,
		&book.PublishYear,
		&book.Author,
		&book.CoverPagePath,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return book, nil
}

func (db *PostgresDB) queryBooks(ctx context.Context, query string, args ...any) ([]models.Book, error) {
	if err := db.ensureMigrated(ctx); err != nil {
		return nil, err
	}

	rows, err := db.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	result := []models.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *book)
	}

	err = rows.Err()
	if err != nil {
		return nil, wrapErr(err)
	}

	return result, nil
}

// InsertBook stores a new book and returns its generated identifier.
func (db *PostgresDB) InsertBook(ctx context.Context, book *models.Book) (string, error) {
	if err := db.ensureMigrated(ctx); err != nil {
		return "", err
	}

	var bookID string
	err := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO books (user_id, title, description, publish_year, author, cover_page_path)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
		`,
		book.UserID,
		book.Title,
		book.Description,
		book.PublishYear,
		book.Author,
		book.CoverPagePath,
	).Scan(&bookID)
	if err != nil {
		return "", wrapErr(err)
	}

	return bookID, nil
}

// GetBookByID returns the book or models.ErrNotFound.
func (db *PostgresDB) GetBookByID(ctx context.Context, bookID string) (*models.Book, error) {
	if err := db.ensureMigrated(ctx); err != nil {
		return nil, err
	}

	book, err := scanBook(db.database.QueryRowContext(
		ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`,
		bookID,
	))
	if err != nil {
		return nil, wrapErr(err)
	}

	return book, nil
}

// GetAllBooks returns every book in insertion order.
func (db *PostgresDB) GetAllBooks(ctx context.Context) ([]models.Book, error) {
	return db.queryBooks(ctx, `SELECT `+bookColumns+` FROM books ORDER BY seq`)
}

// GetBooksByOwner returns the books of one user in insertion order.
func (db *PostgresDB) GetBooksByOwner(ctx context.Context, ownerID string) ([]models.Book, error) {
	return db.queryBooks(ctx, `SELECT `+bookColumns+` FROM books WHERE user_id = $1 ORDER BY seq`, ownerID)
}

// SearchBooks returns books whose title or author contains query as a
// case-insensitive literal substring.
func (db *PostgresDB) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	return db.queryBooks(
		ctx,
		`
			SELECT `+bookColumns+` FROM books
				WHERE title ILIKE '%' || $1 || '%'
					OR author ILIKE '%' || $1 || '%'
				ORDER BY seq
		`,
		escapeLike(query),
	)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// UpdateBook overwrites the mutable fields of the book owned by book.UserID.
func (db *PostgresDB) UpdateBook(ctx context.Context, book *models.Book) error {
	if err := db.ensureMigrated(ctx); err != nil {
		return err
	}

	result, err := db.database.ExecContext(
		ctx,
		`
			UPDATE books
				SET title = $3,
					description = $4,
					publish_year = $5,
					author = $6,
					cover_page_path = $7,
					updated_at = now()
				WHERE id = $1 AND user_id = $2
		`,
		book.ID,
		book.UserID,
		book.Title,
		book.Description,
		book.PublishYear,
		book.Author,
		book.CoverPagePath,
	)
	if err != nil {
		return wrapErr(err)
	}

	return expectOneRow(result)
}

// DeleteBook removes the book if it is owned by ownerID.
func (db *PostgresDB) DeleteBook(ctx context.Context, bookID, ownerID string) error {
	if err := db.ensureMigrated(ctx); err != nil {
		return err
	}

	result, err := db.database.ExecContext(
		ctx,
		`DELETE FROM books WHERE id = $1 AND user_id = $2`,
		bookID,
		ownerID,
	)
	if err != nil {
		return wrapErr(err)
	}

	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// GetSession returns a live session. Expired rows are removed and reported as not found.
func (db *PostgresDB) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if err := db.ensureMigrated(ctx); err != nil {
		return nil, err
	}

	var data []byte
	var expiresAt time.Time
	err := db.database.QueryRowContext(
		ctx,
		`SELECT data, expires_at FROM sessions WHERE id = $1`,
		sessionID,
	).Scan(&data, &expiresAt)
	if err != nil {
		return nil, wrapErr(err)
	}

	if time.Now().After(expiresAt) {
		if err := db.DeleteSession(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, models.ErrNotFound
	}

	sess := &models.Session{}
	if err := json.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("unable to decode session %s: %w", sessionID, err)
	}
	sess.ID = sessionID
	sess.ExpiresAt = expiresAt

	return sess, nil
}

// SaveSession upserts the session record.
func (db *PostgresDB) SaveSession(ctx context.Context, sess *models.Session) error {
	if err := db.ensureMigrated(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	_, err = db.database.ExecContext(
		ctx,
		`
			INSERT INTO sessions (id, data, expires_at)
				VALUES ($1, $2, $3)
				ON CONFLICT (id) DO UPDATE
				SET
					data = EXCLUDED.data,
					expires_at = EXCLUDED.expires_at
		`,
		sess.ID,
		string(data),
		sess.ExpiresAt,
	)

	return wrapErr(err)
}

// DeleteSession removes the session record; a missing record is not an error.
func (db *PostgresDB) DeleteSession(ctx context.Context, sessionID string) error {
	if err := db.ensureMigrated(ctx); err != nil {
		return err
	}

	_, err := db.database.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)

	return wrapErr(err)
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return wrapErr(db.database.PingContext(ctxWithTimeout))
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			wrapErr(err),
		)
	}
	return nil
}
