package model

import "time"

// UserID uniquely identifies a user across the system
type UserID string

// User is a rider who can host or join parties
type User struct {
	ID          UserID
	DisplayName string
	IsGuest     bool // true for users without credentials
	CreatedAt   time.Time
}

// Credentials holds login data for a registered user
// Stored separately so password hashes never travel with the user record
type Credentials struct {
	UserID       UserID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
