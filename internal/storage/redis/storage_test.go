package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/convoy/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
	now     time.Time
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.GuestUserTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) newParty(id model.PartyID) *model.Party {
	return &model.Party{
		ID:         id,
		Name:       "Road trip",
		HostID:     "host-1",
		CreatedAt:  s.now,
		MaxMembers: model.DefaultMaxMembers,
		InviteCode: "ABCDEF",
		Members: []model.Member{
			{UserID: "host-1", JoinedAt: s.now, Role: model.RoleHost, Status: model.MemberStatusActive},
		},
		CurrentState: model.PartyState{Status: model.PartyStatusWaiting},
	}
}

func (s *StorageSuite) newInvite(code model.InviteCode, partyID model.PartyID) *model.InviteRecord {
	return &model.InviteRecord{
		Code:      code,
		PartyID:   partyID,
		CreatedBy: "host-1",
		CreatedAt: s.now,
		ExpiresAt: s.now.Add(model.InviteTTL),
	}
}

// User tests

func (s *StorageSuite) TestSaveAndGetUser() {
	user := &model.User{ID: "user-1", DisplayName: "Alice", CreatedAt: s.now}

	err := s.storage.SaveUser(s.ctx, user)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetUser(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(user.ID, retrieved.ID)
	s.Equal(user.DisplayName, retrieved.DisplayName)
}

func (s *StorageSuite) TestGetUserNotFound() {
	_, err := s.storage.GetUser(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *StorageSuite) TestGuestUserHasTTL() {
	_ = s.storage.SaveUser(s.ctx, &model.User{ID: "guest-1", DisplayName: "Guest", IsGuest: true})

	s.Equal(time.Hour, s.mini.TTL(userKey("guest-1")))
}

func (s *StorageSuite) TestRegisteredUserHasNoTTL() {
	_ = s.storage.SaveUser(s.ctx, &model.User{ID: "user-1", DisplayName: "Alice"})

	s.Equal(time.Duration(0), s.mini.TTL(userKey("user-1")))
}

// Credential tests

func (s *StorageSuite) TestGetCredentialsByUsername() {
	err := s.storage.SaveCredentials(s.ctx, &model.Credentials{UserID: "user-1", Username: "alice", PasswordHash: "hash"})
	s.Require().NoError(err)

	retrieved, err := s.storage.GetCredentialsByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.UserID("user-1"), retrieved.UserID)
	s.Equal("hash", retrieved.PasswordHash)
}

func (s *StorageSuite) TestGetCredentialsByUsernameNotFound() {
	_, err := s.storage.GetCredentialsByUsername(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *StorageSuite) TestSaveCredentialsRejectsTakenUsername() {
	_ = s.storage.SaveCredentials(s.ctx, &model.Credentials{UserID: "user-1", Username: "alice"})

	err := s.storage.SaveCredentials(s.ctx, &model.Credentials{UserID: "user-2", Username: "alice"})
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *StorageSuite) TestSaveCredentialsAllowsOwnerUpdate() {
	_ = s.storage.SaveCredentials(s.ctx, &model.Credentials{UserID: "user-1", Username: "alice", PasswordHash: "old"})

	err := s.storage.SaveCredentials(s.ctx, &model.Credentials{UserID: "user-1", Username: "alice", PasswordHash: "new"})
	s.Require().NoError(err)

	retrieved, _ := s.storage.GetCredentialsByUsername(s.ctx, "alice")
	s.Equal("new", retrieved.PasswordHash)
}

// Party tests

func (s *StorageSuite) TestCreateAndGetParty() {
	party := s.newParty("party-1")

	err := s.storage.CreateParty(s.ctx, party)
	s.Require().NoError(err)
	s.Equal(int64(1), party.Version)

	retrieved, err := s.storage.GetParty(s.ctx, "party-1")
	s.Require().NoError(err)
	s.Equal(party.Name, retrieved.Name)
	s.Equal(int64(1), retrieved.Version)
	s.Require().Len(retrieved.Members, 1)
	s.Equal(model.RoleHost, retrieved.Members[0].Role)
}

func (s *StorageSuite) TestCreatePartyRejectsDuplicateID() {
	_ = s.storage.CreateParty(s.ctx, s.newParty("party-1"))

	err := s.storage.CreateParty(s.ctx, s.newParty("party-1"))
	s.ErrorIs(err, model.ErrPartyExists)
}

func (s *StorageSuite) TestGetPartyNotFound() {
	_, err := s.storage.GetParty(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPartyNotFound)
}

func (s *StorageSuite) TestUpdatePartyBumpsVersion() {
	_ = s.storage.CreateParty(s.ctx, s.newParty("party-1"))
	snapshot, _ := s.storage.GetParty(s.ctx, "party-1")
	snapshot.Members = append(snapshot.Members, model.Member{UserID: "user-2", Role: model.RoleMember})

	err := s.storage.UpdateParty(s.ctx, snapshot)
	s.Require().NoError(err)
	s.Equal(int64(2), snapshot.Version)

	retrieved, _ := s.storage.GetParty(s.ctx, "party-1")
	s.Len(retrieved.Members, 2)
	s.Equal(int64(2), retrieved.Version)
}

func (s *StorageSuite) TestUpdatePartyRejectsStaleVersion() {
	_ = s.storage.CreateParty(s.ctx, s.newParty("party-1"))
	first, _ := s.storage.GetParty(s.ctx, "party-1")
	second, _ := s.storage.GetParty(s.ctx, "party-1")

	s.Require().NoError(s.storage.UpdateParty(s.ctx, first))

	err := s.storage.UpdateParty(s.ctx, second)
	s.ErrorIs(err, model.ErrConcurrentUpdate)

	retrieved, _ := s.storage.GetParty(s.ctx, "party-1")
	s.Equal(int64(2), retrieved.Version)
}

func (s *StorageSuite) TestUpdatePartyNotFound() {
	err := s.storage.UpdateParty(s.ctx, s.newParty("nonexistent"))
	s.ErrorIs(err, model.ErrPartyNotFound)
}

func (s *StorageSuite) TestPartyTTLApplied() {
	s.storage.cfg.PartyTTL = 48 * time.Hour
	_ = s.storage.CreateParty(s.ctx, s.newParty("party-1"))

	s.Equal(48*time.Hour, s.mini.TTL(partyKey("party-1")))
}

// Invite tests

func (s *StorageSuite) TestReserveAndGetInvite() {
	err := s.storage.ReserveInvite(s.ctx, s.newInvite("ABCDEF", "party-1"))
	s.Require().NoError(err)

	rec, err := s.storage.GetInvite(s.ctx, "ABCDEF")
	s.Require().NoError(err)
	s.Equal(model.PartyID("party-1"), rec.PartyID)
	s.Equal(model.InviteTTL, s.mini.TTL(inviteKey("ABCDEF")))
}

func (s *StorageSuite) TestReserveInviteRejectsLiveCode() {
	_ = s.storage.ReserveInvite(s.ctx, s.newInvite("ABCDEF", "party-1"))

	err := s.storage.ReserveInvite(s.ctx, s.newInvite("ABCDEF", "party-2"))
	s.ErrorIs(err, model.ErrInviteCodeTaken)
}

func (s *StorageSuite) TestReserveInviteAfterExpiry() {
	_ = s.storage.ReserveInvite(s.ctx, s.newInvite("ABCDEF", "party-1"))
	s.mini.FastForward(model.InviteTTL + time.Minute)

	_, err := s.storage.GetInvite(s.ctx, "ABCDEF")
	s.ErrorIs(err, model.ErrInviteNotFound)

	err = s.storage.ReserveInvite(s.ctx, s.newInvite("ABCDEF", "party-2"))
	s.Require().NoError(err)
}

func (s *StorageSuite) TestReserveInviteRejectsNonPositiveLifetime() {
	rec := s.newInvite("ABCDEF", "party-1")
	rec.ExpiresAt = rec.CreatedAt

	err := s.storage.ReserveInvite(s.ctx, rec)
	s.Error(err)
}

func (s *StorageSuite) TestDeleteInvite() {
	_ = s.storage.ReserveInvite(s.ctx, s.newInvite("ABCDEF", "party-1"))

	s.Require().NoError(s.storage.DeleteInvite(s.ctx, "ABCDEF"))

	_, err := s.storage.GetInvite(s.ctx, "ABCDEF")
	s.ErrorIs(err, model.ErrInviteNotFound)
}

func (s *StorageSuite) TestPing() {
	s.NoError(s.storage.Ping(s.ctx))
}
