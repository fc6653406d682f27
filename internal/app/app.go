// Package app initializes and runs the bookshelf web service.
// It configures logging, storage, sessions, uploads and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patric-chuzhbe/bookshelf/internal/auth"
	"github.com/patric-chuzhbe/bookshelf/internal/config"
	"github.com/patric-chuzhbe/bookshelf/internal/credentials"
	"github.com/patric-chuzhbe/bookshelf/internal/db/jsondb"
	"github.com/patric-chuzhbe/bookshelf/internal/db/memorystorage"
	"github.com/patric-chuzhbe/bookshelf/internal/db/postgresdb"
	"github.com/patric-chuzhbe/bookshelf/internal/db/redisstore"
	"github.com/patric-chuzhbe/bookshelf/internal/logger"
	"github.com/patric-chuzhbe/bookshelf/internal/models"
	"github.com/patric-chuzhbe/bookshelf/internal/router"
	"github.com/patric-chuzhbe/bookshelf/internal/service"
	"github.com/patric-chuzhbe/bookshelf/internal/session"
	"github.com/patric-chuzhbe/bookshelf/internal/upload"
	"github.com/patric-chuzhbe/bookshelf/internal/user"
	"github.com/patric-chuzhbe/bookshelf/internal/view"
)

const shutdownTimeout = 10 * time.Second

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (string, error)
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
}

type booksKeeper interface {
	InsertBook(ctx context.Context, book *models.Book) (string, error)
	GetBookByID(ctx context.Context, bookID string) (*models.Book, error)
	GetAllBooks(ctx context.Context) ([]models.Book, error)
	GetBooksByOwner(ctx context.Context, ownerID string) ([]models.Book, error)
	SearchBooks(ctx context.Context, query string) ([]models.Book, error)
	UpdateBook(ctx context.Context, book *models.Book) error
	DeleteBook(ctx context.Context, bookID, ownerID string) error
}

type sessionsKeeper interface {
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	SaveSession(ctx context.Context, sess *models.Session) error
	DeleteSession(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
	Close() error
}

type storage interface {
	userKeeper
	booksKeeper
	sessionsKeeper
}

// App holds the configuration, the stores and the HTTP handler of the service.
type App struct {
	cfg         *config.Config
	db          storage
	sessions    sessionsKeeper
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage and the session store
// - setting up the cover uploader
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	app.db, err = getStorageByType(ctx, app.cfg)
	if err != nil {
		return nil, err
	}

	app.sessions, err = getSessionStore(ctx, app.cfg, app.db)
	if err != nil {
		return nil, err
	}

	if app.cfg.IsDevSessionSecret() {
		logger.Log.Warnw("the built-in development session secret is in use, set SESSION_SECRET in production")
	}

	location, err := app.cfg.Location()
	if err != nil {
		return nil, err
	}

	backend, routerOptions, err := getCoverBackend(ctx, app.cfg)
	if err != nil {
		return nil, err
	}

	views, err := view.New()
	if err != nil {
		return nil, err
	}

	app.httpHandler = router.New(
		credentials.New(app.db),
		service.New(app.db, service.WithLocation(location)),
		session.New(
			app.sessions,
			auth.New(app.cfg.SessionCookieName, []byte(app.cfg.SessionSecret), app.cfg.SecureCookie),
			app.cfg.SessionTTL,
		),
		upload.New(backend, app.cfg.MaxUploadSize),
		views,
		routerOptions...,
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infow("received shutdown signal, closing the stores and exiting")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.closeStores()

	case err := <-serverErrCh:
		return errors.Join(fmt.Errorf("server error: %w", err), a.closeStores())
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func (a *App) closeStores() error {
	err := a.db.Close()
	if a.sessions != sessionsKeeper(a.db) {
		err = errors.Join(err, a.sessions.Close())
	}

	return err
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

// getStorageByType opens the configured store. An unreachable database is
// logged and kept: requests fail until it comes back.
func getStorageByType(ctx context.Context, cfg *config.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		db, err := postgresdb.New(ctx, cfg.DatabaseDSN, cfg.DBConnectionTimeout)
		if errors.Is(err, models.ErrStoreUnavailable) {
			logger.Log.Errorw("database is unreachable, starting anyway", "error", err)
			return db, nil
		}
		if err != nil {
			return nil, err
		}
		return db, nil

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}

func getSessionStore(ctx context.Context, cfg *config.Config, db storage) (sessionsKeeper, error) {
	if cfg.RedisURL == "" {
		return db, nil
	}

	store, err := redisstore.New(ctx, cfg.RedisURL)
	if store == nil {
		return nil, err
	}
	if err != nil {
		logger.Log.Errorw("redis is unreachable, starting anyway", "error", err)
	}

	return store, nil
}

func getCoverBackend(ctx context.Context, cfg *config.Config) (upload.Backend, []router.Option, error) {
	if cfg.S3Bucket != "" {
		backend, err := upload.NewS3Storage(ctx, upload.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return backend, nil, nil
	}

	disk, err := upload.NewDiskStorage(cfg.UploadDir, cfg.UploadURLPrefix)
	if err != nil {
		return nil, nil, err
	}

	return disk, []router.Option{router.WithStatic(disk.URLPrefix(), disk.Handler())}, nil
}
