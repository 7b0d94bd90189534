package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mcoot/convoy/internal/dependencies/clock"
	"github.com/mcoot/convoy/internal/model"
	"github.com/mcoot/convoy/internal/storage"
)

const uniqueViolation = "23505"

// Storage is a PostgreSQL implementation of the storage interface.
// Parties are stored as JSONB documents alongside a version column used
// for compare-and-swap.
type Storage struct {
	db    *sql.DB
	clock clock.Clock
}

// Open connects to the database at dsn and verifies the connection
func Open(ctx context.Context, dsn string, clock clock.Clock) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db, clock), nil
}

// New creates a Storage over an existing handle
func New(db *sql.DB, clock clock.Clock) *Storage {
	return &Storage{db: db, clock: clock}
}

// Close closes the database handle
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var perr *pq.Error
	return errors.As(err, &perr) && perr.Code == uniqueViolation
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, display_name, is_guest, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET display_name = EXCLUDED.display_name, is_guest = EXCLUDED.is_guest
	`
	_, err := s.db.ExecContext(ctx, query, string(user.ID), user.DisplayName, user.IsGuest, user.CreatedAt)
	return err
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	query := `SELECT id, display_name, is_guest, created_at FROM users WHERE id = $1`
	var (
		user   model.User
		userID string
	)
	err := s.db.QueryRowContext(ctx, query, string(id)).Scan(&userID, &user.DisplayName, &user.IsGuest, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	user.ID = model.UserID(userID)
	return &user, nil
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, c *model.Credentials) error {
	query := `
		INSERT INTO credentials (user_id, username, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, string(c.UserID), c.Username, c.PasswordHash, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrUsernameTaken
		}
		return err
	}
	return nil
}

func (s *Storage) GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error) {
	query := `
		SELECT user_id, username, password_hash, created_at, updated_at
		FROM credentials
		WHERE username = $1
	`
	var (
		c      model.Credentials
		userID string
	)
	err := s.db.QueryRowContext(ctx, query, username).Scan(&userID, &c.Username, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	c.UserID = model.UserID(userID)
	return &c, nil
}

// Party operations

func (s *Storage) CreateParty(ctx context.Context, party *model.Party) error {
	doc := party.Clone()
	doc.Version = 1
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	query := `INSERT INTO parties (id, doc, version, updated_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.db.ExecContext(ctx, query, string(party.ID), string(data), doc.Version, s.clock.Now()); err != nil {
		if isUniqueViolation(err) {
			return model.ErrPartyExists
		}
		return err
	}
	party.Version = 1
	return nil
}

func (s *Storage) GetParty(ctx context.Context, id model.PartyID) (*model.Party, error) {
	query := `SELECT doc, version FROM parties WHERE id = $1`
	var (
		data    []byte
		version int64
	)
	if err := s.db.QueryRowContext(ctx, query, string(id)).Scan(&data, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPartyNotFound
		}
		return nil, err
	}

	var party model.Party
	if err := json.Unmarshal(data, &party); err != nil {
		return nil, fmt.Errorf("decode party %s: %w", id, err)
	}
	party.Version = version
	return &party, nil
}

func (s *Storage) UpdateParty(ctx context.Context, party *model.Party) error {
	expected := party.Version
	next := party.Clone()
	next.Version = expected + 1
	data, err := json.Marshal(next)
	if err != nil {
		return err
	}

	query := `
		UPDATE parties
		SET doc = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`
	res, err := s.db.ExecContext(ctx, query, string(data), s.clock.Now(), string(party.ID), expected)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.missingOrConflict(ctx, party.ID)
	}
	party.Version = next.Version
	return nil
}

// missingOrConflict explains why a versioned update matched no rows
func (s *Storage) missingOrConflict(ctx context.Context, id model.PartyID) error {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM parties WHERE id = $1)`
	if err := s.db.QueryRowContext(ctx, query, string(id)).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return model.ErrPartyNotFound
	}
	return model.ErrConcurrentUpdate
}

// Invite operations

// ReserveInvite inserts the record, overwriting an existing row for the
// code only once that row has expired
func (s *Storage) ReserveInvite(ctx context.Context, rec *model.InviteRecord) error {
	query := `
		INSERT INTO invite_codes (code, party_id, created_by, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE
		SET party_id = EXCLUDED.party_id, created_by = EXCLUDED.created_by,
			created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
		WHERE invite_codes.expires_at <= $6
	`
	res, err := s.db.ExecContext(ctx, query,
		string(rec.Code), string(rec.PartyID), string(rec.CreatedBy), rec.CreatedAt, rec.ExpiresAt, s.clock.Now())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrInviteCodeTaken
	}
	return nil
}

func (s *Storage) GetInvite(ctx context.Context, code model.InviteCode) (*model.InviteRecord, error) {
	query := `
		SELECT code, party_id, created_by, created_at, expires_at
		FROM invite_codes
		WHERE code = $1 AND expires_at > $2
	`
	var (
		rec                         model.InviteRecord
		gotCode, partyID, createdBy string
	)
	err := s.db.QueryRowContext(ctx, query, string(code), s.clock.Now()).
		Scan(&gotCode, &partyID, &createdBy, &rec.CreatedAt, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrInviteNotFound
		}
		return nil, err
	}
	rec.Code = model.InviteCode(gotCode)
	rec.PartyID = model.PartyID(partyID)
	rec.CreatedBy = model.UserID(createdBy)
	return &rec, nil
}

func (s *Storage) DeleteInvite(ctx context.Context, code model.InviteCode) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM invite_codes WHERE code = $1`, string(code))
	return err
}
