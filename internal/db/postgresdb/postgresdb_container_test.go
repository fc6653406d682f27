//go:build container

package postgresdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/patric-chuzhbe/bookshelf/internal/models"
	"github.com/patric-chuzhbe/bookshelf/internal/user"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "bookshelf",
			"POSTGRES_PASSWORD": "bookshelf",
			"POSTGRES_DB":       "bookshelf",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://bookshelf:bookshelf@%s:%s/bookshelf?sslmode=disable", host, port.Port())
}

func TestPostgresDB(t *testing.T) {
	ctx := context.Background()
	dsn := startPostgres(t)

	db, err := New(ctx, dsn, 5*time.Second, WithDBPreReset(true))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()

	require.NoError(t, db.Ping(ctx))

	ownerID, err := db.CreateUser(ctx, &user.User{Name: "Ann", Email: "ann@example.com", Phone: "1", PasswordHash: "hash"})
	require.NoError(t, err)
	_, err = db.CreateUser(ctx, &user.User{Name: "Ann", Email: "Ann@Example.com", Phone: "1", PasswordHash: "hash"})
	assert.ErrorIs(t, err, models.ErrDuplicateEmail)

	strangerID, err := db.CreateUser(ctx, &user.User{Name: "Bob", Email: "bob@example.com", Phone: "2", PasswordHash: "hash"})
	require.NoError(t, err)

	usr, err := db.GetUserByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, ownerID, usr.ID)

	harryID, err := db.InsertBook(ctx, &models.Book{UserID: ownerID, Title: "Harry Potter", Description: "d", PublishYear: 1997, Author: "Rowling", CoverPagePath: models.DefaultCoverPath})
	require.NoError(t, err)
	_, err = db.InsertBook(ctx, &models.Book{UserID: ownerID, Title: "Dune", Description: "d", PublishYear: 1965, Author: "Herbert", CoverPagePath: models.DefaultCoverPath})
	require.NoError(t, err)
	_, err = db.InsertBook(ctx, &models.Book{UserID: ownerID, Title: "100% Pure_Go", Description: "d", PublishYear: 2020, Author: "Gopher", CoverPagePath: models.DefaultCoverPath})
	require.NoError(t, err)

	found, err := db.SearchBooks(ctx, "harry")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, harryID, found[0].ID)

	found, err = db.SearchBooks(ctx, "%")
	require.NoError(t, err)
	require.Len(t, found, 1, "wildcards are matched literally")
	assert.Equal(t, "100% Pure_Go", found[0].Title)

	all, err := db.GetAllBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = db.GetBookByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, models.ErrNotFound)

	book, err := db.GetBookByID(ctx, harryID)
	require.NoError(t, err)
	book.Title = "Harry Potter 2"
	book.UserID = strangerID
	assert.ErrorIs(t, db.UpdateBook(ctx, book), models.ErrNotFound)
	book.UserID = ownerID
	require.NoError(t, db.UpdateBook(ctx, book))

	assert.ErrorIs(t, db.DeleteBook(ctx, harryID, strangerID), models.ErrNotFound)
	require.NoError(t, db.DeleteBook(ctx, harryID, ownerID))

	sess := &models.Session{ID: "s1", UserID: ownerID, Flash: &models.Flash{Type: models.FlashSuccess, Content: "ok"}, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, db.SaveSession(ctx, sess))
	stored, err := db.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ownerID, stored.UserID)
	assert.Equal(t, "ok", stored.Flash.Content)

	require.NoError(t, db.SaveSession(ctx, &models.Session{ID: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
	_, err = db.GetSession(ctx, "old")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, db.DeleteSession(ctx, "s1"))
	_, err = db.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
