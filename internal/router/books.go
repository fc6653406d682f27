package router

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/patric-chuzhbe/bookshelf/internal/logger"
	"github.com/patric-chuzhbe/bookshelf/internal/models"
	"github.com/patric-chuzhbe/bookshelf/internal/session"
	"github.com/patric-chuzhbe/bookshelf/internal/view"
)

const multipartMemory = 8 << 20

// GetBooks renders the create form together with the caller's own books.
func (r *Router) GetBooks(response http.ResponseWriter, request *http.Request) {
	r.renderBooks(response, request, http.StatusOK, &view.Page{Title: "My books"})
}

func (r *Router) renderBooks(response http.ResponseWriter, request *http.Request, status int, page *view.Page) {
	sess := session.FromContext(request.Context())

	books, err := r.books.ListOwnBooks(request.Context(), sess.UserID)
	if err != nil {
		r.serverError(response, err)
		return
	}
	page.Books = books

	r.render(response, request, status, view.PageBooks, page)
}

// parseBookForm reads the multipart body, bounded by the upload limit.
func (r *Router) parseBookForm(response http.ResponseWriter, request *http.Request) error {
	request.Body = http.MaxBytesReader(response, request.Body, r.uploads.MaxSize()+multipartMemory)

	err := request.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return &models.ValidationError{Field: "coverPage", Reason: "is too large"}
	}

	return err
}

// PostBooks creates a book owned by the session user.
func (r *Router) PostBooks(response http.ResponseWriter, request *http.Request) {
	sess := session.FromContext(request.Context())

	if err := r.parseBookForm(response, request); err != nil {
		r.rejectBookForm(response, request, err, models.BookForm{})
		return
	}

	form := models.BookForm{
		Title:       request.PostFormValue("title"),
		Description: request.PostFormValue("description"),
		PublishYear: request.PostFormValue("publishYear"),
		Author:      request.PostFormValue("author"),
	}

	coverPath, err := r.uploads.FromRequest(request)
	if err != nil {
		r.rejectBookForm(response, request, err, form)
		return
	}

	_, err = r.books.CreateBook(request.Context(), sess.UserID, form, coverPath)
	if err != nil {
		r.dropCover(request, coverPath)
		r.rejectBookForm(response, request, err, form)
		return
	}

	r.flashAndRedirect(response, request, models.FlashSuccess, "Book successfully created!", "/books")
}

func (r *Router) rejectBookForm(response http.ResponseWriter, request *http.Request, err error, form models.BookForm) {
	if message, ok := validationMessage(err); ok {
		r.renderBooks(response, request, http.StatusUnprocessableEntity, &view.Page{
			Title: "My books",
			Error: message,
			Form:  form,
		})
		return
	}

	logger.Log.Errorw("book creation failed", "error", err)
	r.flashAndRedirect(response, request, models.FlashError, "Failed to create book. Please try again.", "/books")
}

// GetBooksEdit renders the edit form of a book the caller owns.
func (r *Router) GetBooksEdit(response http.ResponseWriter, request *http.Request) {
	sess := session.FromContext(request.Context())

	book, err := r.books.GetOwnedBook(request.Context(), chi.URLParam(request, "id"), sess.UserID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		r.notFound(response, request)
		return
	case errors.Is(err, models.ErrUnauthorized):
		r.flashAndRedirect(response, request, models.FlashError, "Unauthorized to edit this book.", "/books")
		return
	case err != nil:
		r.serverError(response, err)
		return
	}

	r.render(response, request, http.StatusOK, view.PageEditBook, &view.Page{Title: "Edit " + book.Title, Book: book})
}

// PostBooksEdit applies a partial update to a book the caller owns.
func (r *Router) PostBooksEdit(response http.ResponseWriter, request *http.Request) {
	sess := session.FromContext(request.Context())
	bookID := chi.URLParam(request, "id")

	var coverPath string
	var form models.BookUpdateForm
	err := r.parseBookForm(response, request)
	if err == nil {
		form = models.BookUpdateForm{
			Title:       request.PostFormValue("title"),
			Description: request.PostFormValue("description"),
			PublishYear: request.PostFormValue("publishYear"),
			Author:      request.PostFormValue("author"),
		}
		coverPath, err = r.uploads.FromRequest(request)
	}

	if err == nil {
		_, err = r.books.UpdateBook(request.Context(), bookID, sess.UserID, form, coverPath)
		if err != nil {
			r.dropCover(request, coverPath)
		}
	}

	switch {
	case err == nil:
		r.flashAndRedirect(response, request, models.FlashSuccess, "Book successfully updated!", "/books")
	case errors.Is(err, models.ErrNotFound):
		r.notFound(response, request)
	case errors.Is(err, models.ErrUnauthorized):
		r.flashAndRedirect(response, request, models.FlashError, "Unauthorized to update this book.", "/books")
	case errors.Is(err, models.ErrValidation):
		r.rejectBookEdit(response, request, bookID, form, err)
	default:
		logger.Log.Errorw("book update failed", "error", err)
		r.flashAndRedirect(response, request, models.FlashError, "Failed to update book. Please try again.", "/books")
	}
}

// rejectBookEdit re-renders the edit form with the submitted values. Fields left
// empty show the stored ones, as they would stay unchanged.
func (r *Router) rejectBookEdit(
	response http.ResponseWriter,
	request *http.Request,
	bookID string,
	form models.BookUpdateForm,
	err error,
) {
	sess := session.FromContext(request.Context())

	book, getErr := r.books.GetOwnedBook(request.Context(), bookID, sess.UserID)
	switch {
	case errors.Is(getErr, models.ErrNotFound):
		r.notFound(response, request)
		return
	case errors.Is(getErr, models.ErrUnauthorized):
		r.flashAndRedirect(response, request, models.FlashError, "Unauthorized to update this book.", "/books")
		return
	case getErr != nil:
		r.serverError(response, getErr)
		return
	}

	if form.Title == "" {
		form.Title = book.Title
	}
	if form.Description == "" {
		form.Description = book.Description
	}
	if form.PublishYear == "" {
		form.PublishYear = strconv.Itoa(book.PublishYear)
	}
	if form.Author == "" {
		form.Author = book.Author
	}

	message, _ := validationMessage(err)
	r.render(response, request, http.StatusUnprocessableEntity, view.PageEditBook, &view.Page{
		Title: "Edit " + book.Title,
		Book:  book,
		Form:  form,
		Error: message,
	})
}

// DeleteBooksDelete removes a book the caller owns together with its cover.
func (r *Router) DeleteBooksDelete(response http.ResponseWriter, request *http.Request) {
	sess := session.FromContext(request.Context())

	book, err := r.books.DeleteBook(request.Context(), chi.URLParam(request, "id"), sess.UserID)
	switch {
	case err == nil:
		r.dropCover(request, book.CoverPagePath)
		r.flashAndRedirect(response, request, models.FlashSuccess, "Book successfully deleted!", "/books")
	case errors.Is(err, models.ErrNotFound):
		r.notFound(response, request)
	case errors.Is(err, models.ErrUnauthorized):
		r.flashAndRedirect(response, request, models.FlashError, "Unauthorized to delete this book.", "/books")
	default:
		logger.Log.Errorw("book deletion failed", "error", err)
		r.flashAndRedirect(response, request, models.FlashError, "Failed to delete book. Please try again.", "/books")
	}
}

func (r *Router) dropCover(request *http.Request, coverPath string) {
	if coverPath == "" {
		return
	}
	if err := r.uploads.Remove(request.Context(), coverPath); err != nil {
		logger.Log.Warnw("unable to remove cover", "cover", coverPath, "error", err)
	}
}

// GetBooksView renders a single book with its owner.
func (r *Router) GetBooksView(response http.ResponseWriter, request *http.Request) {
	book, err := r.books.GetBookWithOwner(request.Context(), chi.URLParam(request, "id"))
	if errors.Is(err, models.ErrNotFound) {
		r.views.RenderError(response, http.StatusNotFound, "Book not found")
		return
	}
	if err != nil {
		r.serverError(response, err)
		return
	}

	r.render(response, request, http.StatusOK, view.PageViewBook, &view.Page{Title: book.Title, BookView: book})
}

// GetBooksAll renders every book of the catalog.
func (r *Router) GetBooksAll(response http.ResponseWriter, request *http.Request) {
	books, err := r.books.ListAllBooks(request.Context())
	if err != nil {
		r.serverError(response, err)
		return
	}

	r.render(response, request, http.StatusOK, view.PageAllBooks, &view.Page{Title: "All books", Books: books})
}

// GetBooksSearch renders the books whose title or author contains ?query=.
func (r *Router) GetBooksSearch(response http.ResponseWriter, request *http.Request) {
	query := request.URL.Query().Get("query")

	books, err := r.books.Search(request.Context(), query)
	if err != nil {
		r.serverError(response, err)
		return
	}

	r.render(response, request, http.StatusOK, view.PageSearch, &view.Page{
		Title:    "Search",
		Books:    books,
		Query:    query,
		Searched: true,
	})
}

// GetBooksOfTheDay renders the book picked for the session today.
func (r *Router) GetBooksOfTheDay(response http.ResponseWriter, request *http.Request) {
	sess := session.FromContext(request.Context())
	today := r.books.Today()
	cachedID, _ := session.GetBookOfDay(sess, today)

	book, drawn, err := r.books.BookOfTheDay(request.Context(), cachedID)
	if err != nil {
		r.serverError(response, err)
		return
	}

	if drawn {
		if err := r.sessions.SetBookOfDay(request.Context(), response, sess, book.ID, today); err != nil {
			r.serverError(response, err)
			return
		}
	}

	r.render(response, request, http.StatusOK, view.PageBookOfTheDay, &view.Page{Title: "Book of the day", Book: book})
}
