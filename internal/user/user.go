// Package user defines the user model used throughout the application,
// particularly for authentication and book ownership checks.
package user

// User represents a registered account.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string `json:"id"`

	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`

	// PasswordHash is the bcrypt hash of the password; the raw password is never stored.
	PasswordHash string `json:"password_hash"`
}
