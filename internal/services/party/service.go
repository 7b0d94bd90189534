package party

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/mcoot/convoy/internal/dependencies/clock"
	"github.com/mcoot/convoy/internal/model"
	"github.com/mcoot/convoy/internal/storage"
)

// Store is the subset of storage the party service needs
type Store interface {
	storage.PartyStore
	storage.InviteStore
}

// CodeGenerator produces invite codes and their QR renderings
type CodeGenerator interface {
	Code() (model.InviteCode, error)
	QRCode(code model.InviteCode) (string, error)
}

// Config holds configuration for the party service
type Config struct {
	DefaultMaxMembers int
	MaxMembersLimit   int
	InviteTTL         time.Duration

	// MaxCodeAttempts bounds invite code regeneration on collision
	MaxCodeAttempts int

	// MaxUpdateAttempts bounds read-check-write retries on version conflict
	MaxUpdateAttempts    int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// DefaultConfig returns default party configuration
func DefaultConfig() Config {
	return Config{
		DefaultMaxMembers:    model.DefaultMaxMembers,
		MaxMembersLimit:      50,
		InviteTTL:            model.InviteTTL,
		MaxCodeAttempts:      8,
		MaxUpdateAttempts:    5,
		RetryInitialInterval: 10 * time.Millisecond,
		RetryMaxInterval:     200 * time.Millisecond,
	}
}

// CreateResult is returned by CreateParty
type CreateResult struct {
	PartyID    model.PartyID
	InviteCode model.InviteCode
	QRCode     string
}

// Service manages party creation and membership
type Service struct {
	store     Store
	generator CodeGenerator
	clock     clock.Clock
	logger    *slog.Logger
	cfg       Config
}

// New creates a new party Service
func New(store Store, generator CodeGenerator, clock clock.Clock, logger *slog.Logger, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.DefaultMaxMembers <= 0 {
		cfg.DefaultMaxMembers = def.DefaultMaxMembers
	}
	if cfg.MaxMembersLimit <= 0 {
		cfg.MaxMembersLimit = def.MaxMembersLimit
	}
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = def.InviteTTL
	}
	if cfg.MaxCodeAttempts <= 0 {
		cfg.MaxCodeAttempts = def.MaxCodeAttempts
	}
	if cfg.MaxUpdateAttempts <= 0 {
		cfg.MaxUpdateAttempts = def.MaxUpdateAttempts
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = def.RetryInitialInterval
	}
	if cfg.RetryMaxInterval <= 0 {
		cfg.RetryMaxInterval = def.RetryMaxInterval
	}
	return &Service{
		store:     store,
		generator: generator,
		clock:     clock,
		logger:    logger,
		cfg:       cfg,
	}
}

// CreateParty creates a party hosted by the caller and reserves its invite code
func (s *Service) CreateParty(ctx context.Context, callerID model.UserID, name string, maxMembers int) (*CreateResult, error) {
	if callerID == "" {
		return nil, model.ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.ErrInvalidPartyName
	}
	if maxMembers == 0 {
		maxMembers = s.cfg.DefaultMaxMembers
	}
	if maxMembers < 1 || maxMembers > s.cfg.MaxMembersLimit {
		return nil, model.ErrInvalidMaxMembers
	}

	now := s.clock.Now()
	partyID := model.PartyID(uuid.NewString())

	code, err := s.reserveCode(ctx, partyID, callerID, now)
	if err != nil {
		return nil, err
	}

	qr, err := s.generator.QRCode(code)
	if err != nil {
		s.releaseCode(ctx, code)
		return nil, err
	}

	party := &model.Party{
		ID:         partyID,
		Name:       name,
		HostID:     callerID,
		CreatedAt:  now,
		MaxMembers: maxMembers,
		InviteCode: code,
		QRCode:     qr,
		Members: []model.Member{
			{
				UserID:   callerID,
				JoinedAt: now,
				Role:     model.RoleHost,
				Status:   model.MemberStatusActive,
			},
		},
		CurrentState: model.PartyState{
			Status:               model.PartyStatusWaiting,
			CurrentWaypointIndex: 0,
		},
		PendingChanges: []model.PendingChange{},
		UpdatedAt:      now,
	}

	if err := s.store.CreateParty(ctx, party); err != nil {
		s.releaseCode(ctx, code)
		return nil, err
	}

	s.logger.Info("party created",
		slog.String("party_id", string(partyID)),
		slog.String("host_id", string(callerID)),
		slog.Int("max_members", maxMembers),
	)

	return &CreateResult{
		PartyID:    partyID,
		InviteCode: code,
		QRCode:     qr,
	}, nil
}

// reserveCode draws codes until one is reserved for the party
func (s *Service) reserveCode(ctx context.Context, partyID model.PartyID, callerID model.UserID, now time.Time) (model.InviteCode, error) {
	for attempt := 1; attempt <= s.cfg.MaxCodeAttempts; attempt++ {
		code, err := s.generator.Code()
		if err != nil {
			return "", err
		}

		err = s.store.ReserveInvite(ctx, &model.InviteRecord{
			Code:      code,
			PartyID:   partyID,
			CreatedBy: callerID,
			CreatedAt: now,
			ExpiresAt: now.Add(s.cfg.InviteTTL),
		})
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, model.ErrInviteCodeTaken) {
			return "", err
		}
		s.logger.Debug("invite code collision", slog.Int("attempt", attempt))
	}

	s.logger.Error("exhausted invite code attempts", slog.Int("attempts", s.cfg.MaxCodeAttempts))
	return "", model.ErrInviteCodeExhausted
}

func (s *Service) releaseCode(ctx context.Context, code model.InviteCode) {
	if err := s.store.DeleteInvite(ctx, code); err != nil {
		s.logger.Warn("failed to release invite code",
			slog.String("code", string(code)),
			slog.String("error", err.Error()),
		)
	}
}

// JoinParty adds the caller to a party after checking the invite code
func (s *Service) JoinParty(ctx context.Context, callerID model.UserID, partyID model.PartyID, code model.InviteCode) error {
	if callerID == "" {
		return model.ErrUnauthenticated
	}
	if partyID == "" {
		return model.ErrMissingPartyID
	}
	if code == "" {
		return model.ErrMissingInviteCode
	}

	err := s.update(ctx, partyID, "join", func(p *model.Party, now time.Time) error {
		if !p.CurrentState.Status.AcceptsMembers() {
			return model.ErrPartyInactive
		}
		if p.IsMember(callerID) {
			return model.ErrAlreadyMember
		}
		// Exact, case-sensitive match
		if p.InviteCode != code {
			return model.ErrInvalidInviteCode
		}
		if p.IsFull() {
			return model.ErrPartyFull
		}
		p.Members = append(p.Members, model.Member{
			UserID:   callerID,
			JoinedAt: now,
			Role:     model.RoleMember,
			Status:   model.MemberStatusActive,
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("member joined party",
		slog.String("party_id", string(partyID)),
		slog.String("user_id", string(callerID)),
	)
	return nil
}

// LeaveParty removes the caller from a party. The host must disband instead.
func (s *Service) LeaveParty(ctx context.Context, callerID model.UserID, partyID model.PartyID) error {
	if callerID == "" {
		return model.ErrUnauthenticated
	}
	if partyID == "" {
		return model.ErrMissingPartyID
	}

	err := s.update(ctx, partyID, "leave", func(p *model.Party, _ time.Time) error {
		member := p.GetMember(callerID)
		if member == nil {
			return model.ErrNotMember
		}
		if member.Role == model.RoleHost {
			return model.ErrHostCannotLeave
		}
		p.RemoveMember(callerID)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("member left party",
		slog.String("party_id", string(partyID)),
		slog.String("user_id", string(callerID)),
	)
	return nil
}

// DisbandParty ends a party, removing every member. Only the host may disband.
func (s *Service) DisbandParty(ctx context.Context, callerID model.UserID, partyID model.PartyID) error {
	if callerID == "" {
		return model.ErrUnauthenticated
	}
	if partyID == "" {
		return model.ErrMissingPartyID
	}

	err := s.update(ctx, partyID, "disband", func(p *model.Party, now time.Time) error {
		if p.HostID != callerID {
			return model.ErrNotHost
		}
		if !p.CurrentState.Status.CanTransitionTo(model.PartyStatusDisbanded) {
			return model.ErrInvalidTransition
		}
		completedAt := now
		p.Members = []model.Member{}
		p.CurrentState = model.PartyState{
			Status:               model.PartyStatusDisbanded,
			CurrentWaypointIndex: 0,
			CompletedAt:          &completedAt,
		}
		p.Stats = model.PartyStats{}
		p.PendingChanges = []model.PendingChange{}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("party disbanded",
		slog.String("party_id", string(partyID)),
		slog.String("host_id", string(callerID)),
	)
	return nil
}

// GetPartyDetails returns the party if the caller is a member
func (s *Service) GetPartyDetails(ctx context.Context, callerID model.UserID, partyID model.PartyID) (*model.Party, error) {
	if callerID == "" {
		return nil, model.ErrUnauthenticated
	}
	if partyID == "" {
		return nil, model.ErrMissingPartyID
	}

	p, err := s.store.GetParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if !p.IsMember(callerID) {
		return nil, model.ErrMembershipRequired
	}
	return p, nil
}

// GetMembers returns the party's member list if the caller is a member
func (s *Service) GetMembers(ctx context.Context, callerID model.UserID, partyID model.PartyID) ([]model.Member, error) {
	p, err := s.GetPartyDetails(ctx, callerID, partyID)
	if err != nil {
		return nil, err
	}
	return p.Members, nil
}

// update applies fn to a fresh snapshot and commits it with compare-and-swap.
// The whole read-check-write is retried on version conflict, so fn must be
// free of side effects beyond mutating p.
func (s *Service) update(ctx context.Context, partyID model.PartyID, op string, fn func(p *model.Party, now time.Time) error) error {
	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		p, err := s.store.GetParty(ctx, partyID)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}

		now := s.clock.Now()
		if err := fn(p, now); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		p.UpdatedAt = now

		if err := s.store.UpdateParty(ctx, p); err != nil {
			if errors.Is(err, model.ErrConcurrentUpdate) {
				s.logger.Debug("party update conflict, retrying",
					slog.String("op", op),
					slog.String("party_id", string(partyID)),
					slog.Int("attempt", attempts),
				)
				return struct{}{}, err
			}
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(s.newBackOff()), backoff.WithMaxTries(uint(s.cfg.MaxUpdateAttempts)))

	if errors.Is(err, model.ErrConcurrentUpdate) {
		s.logger.Warn("party update abandoned after conflicts",
			slog.String("op", op),
			slog.String("party_id", string(partyID)),
			slog.Int("attempts", attempts),
		)
		return fmt.Errorf("%s party %s after %d attempts: %w", op, partyID, attempts, err)
	}
	return err
}

func (s *Service) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryInitialInterval
	b.MaxInterval = s.cfg.RetryMaxInterval
	return b
}

// Interface for dependency injection
type ServiceInterface interface {
	CreateParty(ctx context.Context, callerID model.UserID, name string, maxMembers int) (*CreateResult, error)
	JoinParty(ctx context.Context, callerID model.UserID, partyID model.PartyID, code model.InviteCode) error
	LeaveParty(ctx context.Context, callerID model.UserID, partyID model.PartyID) error
	DisbandParty(ctx context.Context, callerID model.UserID, partyID model.PartyID) error
	GetPartyDetails(ctx context.Context, callerID model.UserID, partyID model.PartyID) (*model.Party, error)
	GetMembers(ctx context.Context, callerID model.UserID, partyID model.PartyID) ([]model.Member, error)
}

var _ ServiceInterface = (*Service)(nil)
