package models

import (
	"regexp"
	"time"
)

// usernamePattern restricts usernames to characters that are safe to
// embed in URLs and JWT subjects without escaping.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9~_.-]+$`)

// User represents a registered account. The stored hash is the
// bcrypt salt+hash combination, never the password itself.
type User struct {
	Username  string    `json:"username" db:"username"`
	Hash      string    `json:"-" db:"hash"`
	FullName  string    `json:"fullName" db:"full_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RegisterInput for POST /api/users.
type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// ValidUsername reports whether name is a well-formed username.
func ValidUsername(name string) bool {
	return name != "" && usernamePattern.MatchString(name)
}
