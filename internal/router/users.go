package router

import (
	"errors"
	"net/http"

	"github.com/patric-chuzhbe/bookshelf/internal/logger"
	"github.com/patric-chuzhbe/bookshelf/internal/models"
	"github.com/patric-chuzhbe/bookshelf/internal/session"
	"github.com/patric-chuzhbe/bookshelf/internal/view"
)

// GetRoot sends visitors to the login page.
func (r *Router) GetRoot(response http.ResponseWriter, request *http.Request) {
	http.Redirect(response, request, "/login", http.StatusFound)
}

func (r *Router) GetSignup(response http.ResponseWriter, request *http.Request) {
	r.render(response, request, http.StatusOK, view.PageSignup, &view.Page{Title: "Sign up"})
}

// PostSignup registers a user and redirects to the login page.
func (r *Router) PostSignup(response http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		r.views.RenderError(response, http.StatusBadRequest, "Bad Request")
		return
	}

	form := models.SignupForm{
		Name:     request.PostForm.Get("name"),
		Email:    request.PostForm.Get("email"),
		Phone:    request.PostForm.Get("phnum"),
		Password: request.PostForm.Get("password"),
	}

	_, err := r.credentials.Signup(request.Context(), form)
	if err == nil {
		http.Redirect(response, request, "/login", http.StatusFound)
		return
	}

	form.Password = ""
	page := &view.Page{Title: "Sign up", Form: form}
	status := http.StatusInternalServerError

	if message, ok := validationMessage(err); ok {
		page.Error = message
		status = http.StatusUnprocessableEntity
	} else if errors.Is(err, models.ErrDuplicateEmail) {
		page.Error = "Email already in use"
		status = http.StatusConflict
	} else {
		logger.Log.Errorw("signup failed", "error", err)
		page.Error = "An error occurred during signup"
	}

	r.render(response, request, status, view.PageSignup, page)
}

func (r *Router) GetLogin(response http.ResponseWriter, request *http.Request) {
	r.render(response, request, http.StatusOK, view.PageLogin, &view.Page{Title: "Log in"})
}

// PostLogin checks the credentials and binds the user to the session.
func (r *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		r.views.RenderError(response, http.StatusBadRequest, "Bad Request")
		return
	}

	form := models.LoginForm{
		Email:    request.PostForm.Get("email"),
		Password: request.PostForm.Get("password"),
	}

	userID, err := r.credentials.Authenticate(request.Context(), form)
	if err != nil {
		form.Password = ""
		page := &view.Page{Title: "Log in", Form: form}
		status := http.StatusInternalServerError

		if errors.Is(err, models.ErrNoMatch) {
			page.Error = "Invalid email or password"
			status = http.StatusUnauthorized
		} else {
			logger.Log.Errorw("login failed", "error", err)
			page.Error = "An error occurred during login"
		}

		r.render(response, request, status, view.PageLogin, page)
		return
	}

	sess := session.FromContext(request.Context())
	if err := r.sessions.Login(request.Context(), response, sess, userID); err != nil {
		r.serverError(response, err)
		return
	}

	http.Redirect(response, request, "/books", http.StatusFound)
}

// GetLogout destroys the session and redirects to the login page.
func (r *Router) GetLogout(response http.ResponseWriter, request *http.Request) {
	sess := session.FromContext(request.Context())
	if err := r.sessions.Logout(request.Context(), response, sess); err != nil {
		r.serverError(response, err)
		return
	}

	http.Redirect(response, request, "/login", http.StatusFound)
}
