package users

import (
	"strings"
	"time"
)

// User represents a registered account.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Bio          string
	CreatedAt    time.Time
}

// NewUser carries the fields required to insert an account.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
}

// NormalizeEmail trims and lowercases an address so lookups and the unique
// index agree on a single spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
