package storage

import (
	"context"

	"github.com/mcoot/convoy/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Ping reports whether the backing store is reachable
	Ping(ctx context.Context) error

	// User operations
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)

	// Credential operations. SaveCredentials fails with ErrUsernameTaken
	// when the username already belongs to another user.
	SaveCredentials(ctx context.Context, c *model.Credentials) error
	GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error)

	// Party operations
	PartyStore

	// Invite operations
	InviteStore
}

// PartyStore persists party documents with per-party compare-and-swap
type PartyStore interface {
	// CreateParty inserts a new party at version 1.
	// Fails with ErrPartyExists if the ID is in use.
	CreateParty(ctx context.Context, party *model.Party) error

	// GetParty returns a snapshot of the party, Version set to the
	// revision it was read at
	GetParty(ctx context.Context, id model.PartyID) (*model.Party, error)

	// UpdateParty replaces the party only if the stored version still equals
	// party.Version, then increments party.Version. Fails with
	// ErrConcurrentUpdate on mismatch and ErrPartyNotFound if absent.
	UpdateParty(ctx context.Context, party *model.Party) error
}

// InviteStore holds invite code reservations
type InviteStore interface {
	// ReserveInvite stores the record unless a live record already holds
	// the code, in which case it fails with ErrInviteCodeTaken
	ReserveInvite(ctx context.Context, rec *model.InviteRecord) error

	// GetInvite returns the live record for a code, or ErrInviteNotFound
	GetInvite(ctx context.Context, code model.InviteCode) (*model.InviteRecord, error)

	DeleteInvite(ctx context.Context, code model.InviteCode) error
}
