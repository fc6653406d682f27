// Package view renders the HTML pages from templates embedded into the binary.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/patric-chuzhbe/bookshelf/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Page names.
const (
	PageSignup       = "signup"
	PageLogin        = "login"
	PageBooks        = "books"
	PageEditBook     = "edit-book"
	PageViewBook     = "view-book"
	PageAllBooks     = "all-books"
	PageSearch       = "index"
	PageBookOfTheDay = "book-of-the-day"
	PageError        = "error"
)

// Page is the data bag every template receives.
type Page struct {
	Title         string
	Authenticated bool
	Flash         *models.Flash
	Error         string
	Form          any
	Book          *models.Book
	BookView      *models.BookWithOwner
	Books         []models.Book
	Query         string
	Searched      bool
	Message       string
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"isDefaultCover": func(coverPath string) bool {
		return coverPath == "" || coverPath == models.DefaultCoverPath
	},
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	names, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		page := strings.TrimSuffix(strings.TrimPrefix(name, "templates/"), ".html")
		if page == "layout" {
			continue
		}

		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("in internal/view/view.go/New(): error while `template.ParseFS()` calling for %q: %w", page, err)
		}
		r.pages[page] = tmpl
	}

	return r, nil
}

// Render writes the page with the given status. Nothing is written when the
// template fails, so the caller can still answer with an error page.
func (r *Renderer) Render(response http.ResponseWriter, status int, page string, data *Page) error {
	tmpl, found := r.pages[page]
	if !found {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("in internal/view/view.go/Render(): error while `tmpl.ExecuteTemplate()` calling for %q: %w", page, err)
	}

	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(status)
	_, err := buf.WriteTo(response)

	return err
}

// RenderError writes the plain error page and falls back to text when even that fails.
func (r *Renderer) RenderError(response http.ResponseWriter, status int, message string) {
	err := r.Render(response, status, PageError, &Page{Title: message, Message: message})
	if err != nil {
		http.Error(response, message, status)
	}
}
