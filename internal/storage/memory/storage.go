package memory

import (
	"context"
	"sync"

	"github.com/mcoot/convoy/internal/dependencies/clock"
	"github.com/mcoot/convoy/internal/model"
	"github.com/mcoot/convoy/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu    sync.RWMutex
	clock clock.Clock

	users         map[model.UserID]*model.User
	credentials   map[model.UserID]*model.Credentials
	usernameIndex map[string]model.UserID
	parties       map[model.PartyID]*model.Party
	invites       map[model.InviteCode]*model.InviteRecord
}

// New creates a new in-memory storage instance
func New() *Storage {
	return NewWithClock(clock.New())
}

// NewWithClock creates an in-memory storage that expires invites against c
func NewWithClock(c clock.Clock) *Storage {
	return &Storage{
		clock:         c,
		users:         make(map[model.UserID]*model.User),
		credentials:   make(map[model.UserID]*model.Credentials),
		usernameIndex: make(map[string]model.UserID),
		parties:       make(map[model.PartyID]*model.Party),
		invites:       make(map[model.InviteCode]*model.InviteRecord),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.users[user.ID] = &u
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, c *model.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.usernameIndex[c.Username]; ok && owner != c.UserID {
		return model.ErrUsernameTaken
	}
	cred := *c
	s.credentials[c.UserID] = &cred
	s.usernameIndex[c.Username] = c.UserID
	return nil
}

func (s *Storage) GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	cred, ok := s.credentials[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	c := *cred
	return &c, nil
}

// Party operations

func (s *Storage) CreateParty(ctx context.Context, party *model.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parties[party.ID]; ok {
		return model.ErrPartyExists
	}
	party.Version = 1
	s.parties[party.ID] = party.Clone()
	return nil
}

func (s *Storage) GetParty(ctx context.Context, id model.PartyID) (*model.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	party, ok := s.parties[id]
	if !ok {
		return nil, model.ErrPartyNotFound
	}
	return party.Clone(), nil
}

func (s *Storage) UpdateParty(ctx context.Context, party *model.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.parties[party.ID]
	if !ok {
		return model.ErrPartyNotFound
	}
	if current.Version != party.Version {
		return model.ErrConcurrentUpdate
	}
	party.Version++
	s.parties[party.ID] = party.Clone()
	return nil
}

// Invite operations

func (s *Storage) ReserveInvite(ctx context.Context, rec *model.InviteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.invites[rec.Code]; ok && existing.IsLive(s.clock.Now()) {
		return model.ErrInviteCodeTaken
	}
	r := *rec
	s.invites[rec.Code] = &r
	return nil
}

func (s *Storage) GetInvite(ctx context.Context, code model.InviteCode) (*model.InviteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.invites[code]
	if !ok || !rec.IsLive(s.clock.Now()) {
		return nil, model.ErrInviteNotFound
	}
	r := *rec
	return &r, nil
}

func (s *Storage) DeleteInvite(ctx context.Context, code model.InviteCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.invites, code)
	return nil
}
