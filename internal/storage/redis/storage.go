package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/convoy/internal/model"
	"github.com/mcoot/convoy/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	// Apply TTL only for guest users
	var ttl time.Duration
	if user.IsGuest {
		ttl = s.cfg.GuestUserTTL
	}
	return s.client.Set(ctx, userKey(user.ID), data, ttl).Err()
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	data, err := s.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, c *model.Credentials) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	// Claim the username first so two registrations cannot share it
	idxKey := usernameIndexKey(c.Username)
	claimed, err := s.client.SetNX(ctx, idxKey, string(c.UserID), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		owner, err := s.client.Get(ctx, idxKey).Result()
		if err != nil {
			return err
		}
		if model.UserID(owner) != c.UserID {
			return model.ErrUsernameTaken
		}
	}

	return s.client.Set(ctx, credentialsKey(c.UserID), data, 0).Err() // No TTL
}

func (s *Storage) GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error) {
	// Look up user ID from username index
	userID, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	data, err := s.client.Get(ctx, credentialsKey(model.UserID(userID))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var c model.Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
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

	created, err := s.client.SetNX(ctx, partyKey(party.ID), data, s.cfg.PartyTTL).Result()
	if err != nil {
		return err
	}
	if !created {
		return model.ErrPartyExists
	}
	party.Version = 1
	return nil
}

func (s *Storage) GetParty(ctx context.Context, id model.PartyID) (*model.Party, error) {
	data, err := s.client.Get(ctx, partyKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPartyNotFound
		}
		return nil, err
	}
	return decodeParty(data)
}

// UpdateParty runs an optimistic WATCH/MULTI/EXEC transaction on the party
// key. A write by another client between WATCH and EXEC aborts the
// transaction, which is reported the same as a version mismatch.
func (s *Storage) UpdateParty(ctx context.Context, party *model.Party) error {
	key := partyKey(party.ID)
	expected := party.Version

	next := party.Clone()
	next.Version = expected + 1
	data, err := json.Marshal(next)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrPartyNotFound
			}
			return err
		}
		current, err := decodeParty(raw)
		if err != nil {
			return err
		}
		if current.Version != expected {
			return model.ErrConcurrentUpdate
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.cfg.PartyTTL)
			return nil
		})
		return err
	}

	if err := s.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return model.ErrConcurrentUpdate
		}
		return err
	}
	party.Version = next.Version
	return nil
}

func decodeParty(data []byte) (*model.Party, error) {
	var party model.Party
	if err := json.Unmarshal(data, &party); err != nil {
		return nil, fmt.Errorf("decode party: %w", err)
	}
	return &party, nil
}

// Invite operations

// ReserveInvite relies on SET NX with the record's lifetime as TTL, so an
// expired reservation has already been evicted by Redis
func (s *Storage) ReserveInvite(ctx context.Context, rec *model.InviteRecord) error {
	ttl := rec.ExpiresAt.Sub(rec.CreatedAt)
	if ttl <= 0 {
		return fmt.Errorf("invite %s expires before it is created", rec.Code)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	reserved, err := s.client.SetNX(ctx, inviteKey(rec.Code), data, ttl).Result()
	if err != nil {
		return err
	}
	if !reserved {
		return model.ErrInviteCodeTaken
	}
	return nil
}

func (s *Storage) GetInvite(ctx context.Context, code model.InviteCode) (*model.InviteRecord, error) {
	data, err := s.client.Get(ctx, inviteKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrInviteNotFound
		}
		return nil, err
	}

	var rec model.InviteRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Storage) DeleteInvite(ctx context.Context, code model.InviteCode) error {
	return s.client.Del(ctx, inviteKey(code)).Err()
}
