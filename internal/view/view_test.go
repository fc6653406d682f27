package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/bookshelf/internal/models"
)

func TestEveryPageRenders(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	book := &models.Book{ID: "b1", Title: "Dune", Author: "Frank Herbert", PublishYear: 1965, CoverPagePath: "/uploads/1.png"}
	pages := map[string]*Page{
		PageSignup:       {Form: models.SignupForm{Name: "Ann"}, Error: "Email already in use"},
		PageLogin:        {Error: "Invalid email or password"},
		PageBooks:        {Authenticated: true, Books: []models.Book{*book}},
		PageEditBook:     {Authenticated: true, Book: book},
		PageViewBook:     {BookView: &models.BookWithOwner{Book: *book, OwnerName: "Ann", OwnerEmail: "ann@example.com"}},
		PageAllBooks:     {Books: []models.Book{*book}},
		PageSearch:       {Searched: true, Query: "dune", Books: []models.Book{*book}},
		PageBookOfTheDay: {Book: book},
		PageError:        {Message: "Page Not Found"},
	}
	for page, data := range pages {
		t.Run(page, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			require.NoError(t, r.Render(recorder, http.StatusOK, page, data))
			assert.Equal(t, http.StatusOK, recorder.Code)
			assert.Equal(t, "text/html; charset=utf-8", recorder.Header().Get("Content-Type"))
			assert.Contains(t, recorder.Body.String(), "<!DOCTYPE html>")
		})
	}
}

func TestRenderContents(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	t.Run("flash and escaping", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		err := r.Render(recorder, http.StatusOK, PageAllBooks, &Page{
			Flash: &models.Flash{Type: models.FlashSuccess, Content: "Book successfully created!"},
			Books: []models.Book{{ID: "b1", Title: "<script>alert(1)</script>", CoverPagePath: models.DefaultCoverPath}},
		})
		require.NoError(t, err)

		body := recorder.Body.String()
		assert.Contains(t, body, `class="flash flash-success"`)
		assert.Contains(t, body, "Book successfully created!")
		assert.NotContains(t, body, "<script>alert(1)</script>")
		assert.Contains(t, body, "No cover")
	})

	t.Run("edit form prefers the submitted values", func(t *testing.T) {
		book := &models.Book{ID: "b1", Title: "Dune", Author: "Frank Herbert", PublishYear: 1965}

		recorder := httptest.NewRecorder()
		require.NoError(t, r.Render(recorder, http.StatusOK, PageEditBook, &Page{Book: book}))
		assert.Contains(t, recorder.Body.String(), `value="Dune"`)
		assert.Contains(t, recorder.Body.String(), `value="1965"`)

		recorder = httptest.NewRecorder()
		require.NoError(t, r.Render(recorder, http.StatusUnprocessableEntity, PageEditBook, &Page{
			Book:  book,
			Form:  models.BookUpdateForm{Title: "Dune Messiah", PublishYear: "soon", Author: "Frank Herbert"},
			Error: "Publish year must be an integer",
		}))
		body := recorder.Body.String()
		assert.Contains(t, body, `value="Dune Messiah"`)
		assert.Contains(t, body, `value="soon"`)
		assert.Contains(t, body, "Publish year must be an integer")
	})

	t.Run("no book of the day", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		require.NoError(t, r.Render(recorder, http.StatusOK, PageBookOfTheDay, &Page{}))
		assert.Contains(t, recorder.Body.String(), "No book available today.")
	})

	t.Run("delete uses method override", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		err := r.Render(recorder, http.StatusOK, PageBooks, &Page{
			Authenticated: true,
			Books:         []models.Book{{ID: "b1", Title: "Dune"}},
		})
		require.NoError(t, err)
		assert.Contains(t, recorder.Body.String(), `action="/books/delete/b1"`)
		assert.Contains(t, recorder.Body.String(), `name="_method" value="DELETE"`)
	})

	t.Run("status is kept", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		require.NoError(t, r.Render(recorder, http.StatusUnprocessableEntity, PageLogin, &Page{Error: "Invalid email or password"}))
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})
}

func TestRenderUnknownPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	assert.Error(t, r.Render(recorder, http.StatusOK, "missing", &Page{}))
	assert.Empty(t, recorder.Body.String())
}

func TestRenderError(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	r.RenderError(recorder, http.StatusNotFound, "Page Not Found")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Page Not Found")
}
