package models

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// ValidationError names the form field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var fieldLabels = map[string]string{
	"name":        "Name",
	"email":       "Email",
	"phnum":       "Phone number",
	"password":    "Password",
	"title":       "Title",
	"description": "Description",
	"publishYear": "Publish year",
	"author":      "Author",
	"coverPage":   "Cover page",
}

// Message is the text shown next to the form.
func (e *ValidationError) Message() string {
	label, found := fieldLabels[e.Field]
	if !found {
		label = e.Field
	}

	return label + " " + e.Reason
}

// SignupForm is the body of POST /signup.
type SignupForm struct {
	Name     string `form:"name" validate:"required,max=200"`
	Email    string `form:"email" validate:"required,email,max=254"`
	Phone    string `form:"phnum" validate:"required,max=32"`
	Password string `form:"password" validate:"required,max=72"`
}

// LoginForm is the body of POST /login.
type LoginForm struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// BookForm is the body of POST /books. Every field is required.
type BookForm struct {
	Title       string `form:"title" validate:"required"`
	Description string `form:"description" validate:"required"`
	PublishYear string `form:"publishYear" validate:"required"`
	Author      string `form:"author" validate:"required"`
}

// BookUpdateForm is the body of POST /books/edit/{id}. Empty fields are left unchanged.
type BookUpdateForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	PublishYear string `form:"publishYear"`
	Author      string `form:"author"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Validate checks a form struct and reports the first failing field as a *ValidationError.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		return &ValidationError{Field: fe.Field(), Reason: reasonFor(fe)}
	}

	return err
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "is too long"
	}

	return "is invalid"
}

// Normalize trims surrounding whitespace from every field.
func (f *SignupForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Phone = strings.TrimSpace(f.Phone)
}

// Normalize trims surrounding whitespace from the email.
func (f *LoginForm) Normalize() {
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
}

// Normalize trims surrounding whitespace from every field.
func (f *BookForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.PublishYear = strings.TrimSpace(f.PublishYear)
	f.Author = strings.TrimSpace(f.Author)
}

// Normalize trims surrounding whitespace from every field.
func (f *BookUpdateForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.PublishYear = strings.TrimSpace(f.PublishYear)
	f.Author = strings.TrimSpace(f.Author)
}

// parseYear accepts any integer that fits the 32-bit publish_year column, negative years included.
func parseYear(value string) (int, error) {
	year, err := strconv.ParseInt(value, 10, 32)
	if errors.Is(err, strconv.ErrRange) {
		return 0, &ValidationError{Field: "publishYear", Reason: "is out of range"}
	}
	if err != nil {
		return 0, &ValidationError{Field: "publishYear", Reason: "must be an integer"}
	}

	return int(year), nil
}

// NewBook builds a book owned by ownerID from a validated form.
// An empty coverPath falls back to DefaultCoverPath.
func NewBook(ownerID string, form BookForm, coverPath string) (*Book, error) {
	form.Normalize()
	if ownerID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "is required"}
	}
	if err := Validate(form); err != nil {
		return nil, err
	}

	year, err := parseYear(form.PublishYear)
	if err != nil {
		return nil, err
	}

	if coverPath == "" {
		coverPath = DefaultCoverPath
	}

	return &Book{
		UserID:        ownerID,
		Title:         form.Title,
		Description:   form.Description,
		PublishYear:   year,
		Author:        form.Author,
		CoverPagePath: coverPath,
	}, nil
}

// Apply merges the non-empty fields of form into book.
// The cover is replaced only when coverPath is non-empty.
func (f BookUpdateForm) Apply(book *Book, coverPath string) error {
	f.Normalize()
	if err := Validate(f); err != nil {
		return err
	}

	if f.PublishYear != "" {
		year, err := parseYear(f.PublishYear)
		if err != nil {
			return err
		}
		book.PublishYear = year
	}
	if f.Title != "" {
		book.Title = f.Title
	}
	if f.Description != "" {
		book.Description = f.Description
	}
	if f.Author != "" {
		book.Author = f.Author
	}
	if coverPath != "" {
		book.CoverPagePath = coverPath
	}

	return nil
}
