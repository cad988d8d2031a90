package core

import (
	"errors"
	"strings"
)

// User is an identity record. Passwords are stored only as bcrypt hashes;
// hashing happens at the HTTP boundary.
type User struct {
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	JoinedDate   Date
	Avatar       string
}

var (
	ErrInvalidEmail = errors.New("invalid email")
	ErrEmptyName    = errors.New("empty name")
)

func (u User) Validate() error {
	if len(strings.TrimSpace(u.Name)) == 0 {
		return ErrEmptyName
	}
	email := strings.TrimSpace(u.Email)
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	if u.PasswordHash == "" {
		return errors.New("missing password hash")
	}
	return nil
}
