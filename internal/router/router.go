// Package router wires the HTTP routes of the bookshelf and implements their handlers.
package router

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/patric-chuzhbe/bookshelf/internal/logger"
	"github.com/patric-chuzhbe/bookshelf/internal/models"
	"github.com/patric-chuzhbe/bookshelf/internal/session"
	"github.com/patric-chuzhbe/bookshelf/internal/view"
)

type credentialsKeeper interface {
	Signup(ctx context.Context, form models.SignupForm) (string, error)
	Authenticate(ctx context.Context, form models.LoginForm) (string, error)
}

type booksKeeper interface {
	CreateBook(ctx context.Context, ownerID string, form models.BookForm, coverPath string) (*models.Book, error)
	GetBookWithOwner(ctx context.Context, bookID string) (*models.BookWithOwner, error)
	GetOwnedBook(ctx context.Context, bookID, ownerID string) (*models.Book, error)
	ListOwnBooks(ctx context.Context, ownerID string) ([]models.Book, error)
	ListAllBooks(ctx context.Context) ([]models.Book, error)
	UpdateBook(
		ctx context.Context,
		bookID string,
		ownerID string,
		form models.BookUpdateForm,
		coverPath string,
	) (*models.Book, error)
	DeleteBook(ctx context.Context, bookID, ownerID string) (*models.Book, error)
	Search(ctx context.Context, query string) ([]models.Book, error)
	Today() string
	BookOfTheDay(ctx context.Context, cachedID string) (*models.Book, bool, error)
	Ping(ctx context.Context) error
}

type sessionManager interface {
	LoadSession(h http.Handler) http.Handler
	Login(ctx context.Context, response http.ResponseWriter, sess *models.Session, userID string) error
	Logout(ctx context.Context, response http.ResponseWriter, sess *models.Session) error
	SetFlash(ctx context.Context, response http.ResponseWriter, sess *models.Session, kind string, text string) error
	TakeFlash(ctx context.Context, response http.ResponseWriter, sess *models.Session) (*models.Flash, error)
	SetBookOfDay(ctx context.Context, response http.ResponseWriter, sess *models.Session, bookID string, today string) error
}

type coverUploader interface {
	FromRequest(request *http.Request) (string, error)
	Remove(ctx context.Context, coverPath string) error
	MaxSize() int64
}

type renderer interface {
	Render(response http.ResponseWriter, status int, page string, data *view.Page) error
	RenderError(response http.ResponseWriter, status int, message string)
}

// Router holds the collaborators of the handlers.
type Router struct {
	credentials credentialsKeeper
	books       booksKeeper
	sessions    sessionManager
	uploads     coverUploader
	views       renderer
	static      map[string]http.Handler
}

// Option customizes the router.
type Option func(*Router)

// WithStatic serves handler under urlPrefix. The handler gets the full request path.
func WithStatic(urlPrefix string, handler http.Handler) Option {
	return func(r *Router) {
		r.static[urlPrefix] = handler
	}
}

// New builds the chi router with every route of the service.
func New(
	credentials credentialsKeeper,
	books booksKeeper,
	sessions sessionManager,
	uploads coverUploader,
	views renderer,
	opts ...Option,
) *chi.Mux {
	theRouter := &Router{
		credentials: credentials,
		books:       books,
		sessions:    sessions,
		uploads:     uploads,
		views:       views,
		static:      make(map[string]http.Handler),
	}
	for _, opt := range opts {
		opt(theRouter)
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
		middleware.Compress(5, "text/html", "text/css", "application/javascript"),
		methodOverride,
	)

	for urlPrefix, handler := range theRouter.static {
		router.Handle(strings.TrimRight(urlPrefix, "/")+"/*", handler)
	}

	router.Get(`/ping`, theRouter.GetPing)

	router.Group(func(r chi.Router) {
		r.Use(sessions.LoadSession)

		r.Get(`/`, theRouter.GetRoot)
		r.Get(`/signup`, theRouter.GetSignup)
		r.Post(`/signup`, theRouter.PostSignup)
		r.Get(`/login`, theRouter.GetLogin)
		r.Post(`/login`, theRouter.PostLogin)
		r.Get(`/logout`, theRouter.GetLogout)

		r.Get(`/books/view/{id}`, theRouter.GetBooksView)
		r.Get(`/books/all`, theRouter.GetBooksAll)
		r.Get(`/books/search`, theRouter.GetBooksSearch)
		r.Get(`/books/of-the-day`, theRouter.GetBooksOfTheDay)

		r.Group(func(r chi.Router) {
			r.Use(session.RequireUser)

			r.Get(`/books`, theRouter.GetBooks)
			r.Post(`/books`, theRouter.PostBooks)
			r.Get(`/books/edit/{id}`, theRouter.GetBooksEdit)
			r.Post(`/books/edit/{id}`, theRouter.PostBooksEdit)
			r.Delete(`/books/delete/{id}`, theRouter.DeleteBooksDelete)
		})

		r.NotFound(theRouter.notFound)
		r.MethodNotAllowed(theRouter.notFound)
	})

	return router
}

// methodOverride turns a POST carrying _method=DELETE (query or urlencoded body) into a DELETE.
func methodOverride(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if request.Method == http.MethodPost {
			override := request.URL.Query().Get("_method")
			if override == "" && strings.HasPrefix(request.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
				override = request.PostFormValue("_method")
			}

			switch method := strings.ToUpper(override); method {
			case http.MethodDelete, http.MethodPut, http.MethodPatch:
				request.Method = method
			}
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// GetPing reports whether the storage is reachable.
func (r *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := r.books.Ping(request.Context()); err != nil {
		logger.Log.Errorw("storage is unreachable", "error", err)
		http.Error(response, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

func (r *Router) notFound(response http.ResponseWriter, request *http.Request) {
	r.views.RenderError(response, http.StatusNotFound, "Page Not Found")
}

func (r *Router) serverError(response http.ResponseWriter, err error) {
	logger.Log.Errorw("request failed", "error", err)
	r.views.RenderError(response, http.StatusInternalServerError, "Server Error")
}

// render fills the session-dependent part of the page and writes it.
func (r *Router) render(response http.ResponseWriter, request *http.Request, status int, page string, data *view.Page) {
	sess := session.FromContext(request.Context())
	data.Authenticated = sess.IsAuthenticated()

	if sess != nil {
		flash, err := r.sessions.TakeFlash(request.Context(), response, sess)
		if err != nil {
			logger.Log.Warnw("unable to take the flash message", "error", err)
		}
		data.Flash = flash
	}

	if err := r.views.Render(response, status, page, data); err != nil {
		r.serverError(response, err)
	}
}

// flashAndRedirect stores a flash message and redirects to location.
func (r *Router) flashAndRedirect(
	response http.ResponseWriter,
	request *http.Request,
	kind string,
	text string,
	location string,
) {
	sess := session.FromContext(request.Context())
	if err := r.sessions.SetFlash(request.Context(), response, sess, kind, text); err != nil {
		r.serverError(response, err)
		return
	}

	http.Redirect(response, request, location, http.StatusFound)
}

func validationMessage(err error) (string, bool) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message(), true
	}

	return "", false
}
