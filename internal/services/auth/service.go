package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/convoy/internal/dependencies/clock"
	"github.com/mcoot/convoy/internal/model"
	"github.com/mcoot/convoy/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = model.NewError(model.KindUnauthenticated, "invalid credentials")
	ErrInvalidSession     = model.NewError(model.KindUnauthenticated, "invalid or expired session")
	ErrMissingUsername    = model.NewError(model.KindInvalidArgument, "username is required")
	ErrWeakPassword       = model.NewError(model.KindInvalidArgument, "password must be at least 8 characters")
	ErrMissingDisplayName = model.NewError(model.KindInvalidArgument, "display name is required")
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 8

// Session is an issued bearer token and the user it identifies
type Session struct {
	Token     string
	UserID    model.UserID
	User      model.User
	ExpiresAt time.Time
}

type claims struct {
	jwt.RegisteredClaims
	DisplayName string `json:"name"`
	Guest       bool   `json:"guest"`
}

// Service handles user accounts and token issuance
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
	cfg     Config
	parser  *jwt.Parser
}

// Config holds configuration for the auth service
type Config struct {
	// Secret signs tokens with HS256
	Secret   string
	TokenTTL time.Duration
	Issuer   string

	// BcryptCost is the password hashing cost; zero means bcrypt.DefaultCost
	BcryptCost int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		TokenTTL:   24 * time.Hour,
		Issuer:     "convoy",
		BcryptCost: bcrypt.DefaultCost,
	}
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = def.TokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = def.Issuer
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = def.BcryptCost
	}
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger,
		cfg:     cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clock.Now),
		),
	}
}

// CreateGuest creates a user without credentials and issues a token
func (s *Service) CreateGuest(ctx context.Context, displayName string) (*Session, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, ErrMissingDisplayName
	}

	user := &model.User{
		ID:          newUserID(),
		DisplayName: displayName,
		IsGuest:     true,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.storage.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("guest user created", slog.String("user_id", string(user.ID)))
	return s.issue(user)
}

// Register creates a user with credentials and issues a token
func (s *Service) Register(ctx context.Context, username, password, displayName string) (*Session, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	if username == "" {
		return nil, ErrMissingUsername
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if displayName == "" {
		displayName = username
	}

	// Check if username exists
	_, err := s.storage.GetCredentialsByUsername(ctx, username)
	if err == nil {
		return nil, model.ErrUsernameTaken
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	user := &model.User{
		ID:          newUserID(),
		DisplayName: displayName,
		IsGuest:     false,
		CreatedAt:   now,
	}
	creds := &model.Credentials{
		UserID:       user.ID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	// The store enforces uniqueness again in case of a concurrent registration
	if err := s.storage.SaveCredentials(ctx, creds); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", string(user.ID)))
	return s.issue(user)
}

// Login authenticates a registered user and issues a token
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	creds, err := s.storage.GetCredentialsByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.storage.GetUser(ctx, creds.UserID)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Authenticate verifies a token and returns the user it was issued to
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	var c claims
	if _, err := s.parser.ParseWithClaims(token, &c, s.keyFunc); err != nil {
		s.logger.Debug("rejected token", slog.String("error", err.Error()))
		return nil, ErrInvalidSession
	}

	user, err := s.storage.GetUser(ctx, model.UserID(c.Subject))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			// Guest records can expire before their token does
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) keyFunc(*jwt.Token) (any, error) {
	return []byte(s.cfg.Secret), nil
}

// issue signs a token for the user
func (s *Service) issue(user *model.User) (*Session, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.cfg.TokenTTL)

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   string(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		DisplayName: user.DisplayName,
		Guest:       user.IsGuest,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Session{
		Token:     token,
		UserID:    user.ID,
		User:      *user,
		ExpiresAt: expiresAt,
	}, nil
}

func newUserID() model.UserID {
	return model.UserID("u_" + uuid.NewString())
}
