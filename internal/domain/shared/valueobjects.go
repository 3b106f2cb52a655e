package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// Username
// ═══════════════════════════════════════════════════════════════════════════

// Username is a LeetCode handle. Case is preserved exactly as entered.
type Username string

const (
	UsernameMinLength = 3
	UsernameMaxLength = 30
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NewUsername trims surrounding whitespace and validates the result.
// It returns ErrInvalidUsername before any network or store call is made.
func NewUsername(raw string) (Username, error) {
	name := strings.TrimSpace(raw)
	if len(name) < UsernameMinLength || len(name) > UsernameMaxLength || !usernameRegex.MatchString(name) {
		return "", ErrInvalidUsername
	}
	return Username(name), nil
}

// IsValid checks the username format without trimming.
func (u Username) IsValid() bool {
	n := len(u)
	return n >= UsernameMinLength && n <= UsernameMaxLength && usernameRegex.MatchString(string(u))
}

// String returns the string representation.
func (u Username) String() string {
	return string(u)
}

// ═══════════════════════════════════════════════════════════════════════════
// Identifiers
// ═══════════════════════════════════════════════════════════════════════════

// ProfileID identifies a tracked profile (UUID).
type ProfileID string

func (p ProfileID) String() string { return string(p) }

// IsEmpty checks if the ID is empty.
func (p ProfileID) IsEmpty() bool { return p == "" }

// GroupID identifies a group (UUID).
type GroupID string

func (g GroupID) String() string { return string(g) }

// IsEmpty checks if the ID is empty.
func (g GroupID) IsEmpty() bool { return g == "" }
