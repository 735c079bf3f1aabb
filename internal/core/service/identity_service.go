package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/port"
)

const DefaultSessionTTL = 24 * time.Hour

type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// Session is a logged-in user together with the bearer token that proves it.
type Session struct {
	Token     string
	User      domain.User
	ExpiresAt time.Time
}

type IdentityService struct {
	users  port.UserRepository
	hasher port.PasswordHasher
	tokens port.TokenIssuer
	store  port.StateStore
	mirror *StateMirror
	clock  port.Clock
	ttl    time.Duration
	newID  func() string
}

func NewIdentityService(users port.UserRepository, hasher port.PasswordHasher, tokens port.TokenIssuer, store port.StateStore, mirror *StateMirror, clock port.Clock, sessionTTL time.Duration) *IdentityService {
	if clock == nil {
		clock = port.SystemClock{}
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &IdentityService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		store:  store,
		mirror: mirror,
		clock:  clock,
		ttl:    sessionTTL,
		newID:  uuid.NewString,
	}
}

func identityLogger() *slog.Logger {
	return slog.Default().With("module", "identity", "layer", "service")
}

// Register creates a customer account and logs it in.
func (s *IdentityService) Register(ctx context.Context, req RegisterRequest) (Session, error) {
	name := strings.TrimSpace(req.Name)
	email := req.Email
	if name == "" || strings.TrimSpace(email) == "" || req.Password == "" {
		return Session{}, fmt.Errorf("%w: name, email and password are required", domain.ErrInvalidInput)
	}
	// Login matches emails exactly, so a padded address could never sign in.
	if strings.TrimSpace(email) != email {
		return Session{}, fmt.Errorf("%w: email must not start or end with whitespace", domain.ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	user := domain.User{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return Session{}, err
	}
	s.mirror.SaveUsers(ctx)

	identityLogger().InfoContext(ctx, "user registered",
		"operation", "register",
		"outcome", "success",
		"user_id", user.ID,
	)
	return s.startSession(ctx, user)
}

func (s *IdentityService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		identityLogger().InfoContext(ctx, "login rejected",
			"operation", "login",
			"outcome", "rejected",
			"user_id", user.ID,
		)
		return Session{}, domain.ErrInvalidCredentials
	}
	return s.startSession(ctx, user)
}

// Logout revokes the session behind token.
func (s *IdentityService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionKey(claims.SessionID)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	identityLogger().InfoContext(ctx, "user logged out",
		"operation", "logout",
		"outcome", "success",
		"user_id", claims.UserID,
	)
	return nil
}

// Authenticate resolves a bearer token to its user. Revoked or expired
// sessions fail with ErrUnauthenticated or ErrSessionExpired.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.User{}, err
	}

	raw, err := s.store.Get(ctx, sessionKey(claims.SessionID))
	if errors.Is(err, port.ErrStateNotFound) {
		return domain.User{}, domain.ErrUnauthenticated
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load session: %w", err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.UserID != claims.UserID {
		return domain.User{}, domain.ErrUnauthenticated
	}
	if expiresAt, err := parseTime(rec.ExpiresAt); err != nil || !s.clock.Now().Before(expiresAt) {
		s.purgeSession(ctx, claims.SessionID)
		return domain.User{}, domain.ErrSessionExpired
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return user, err
}

func (s *IdentityService) startSession(ctx context.Context, user domain.User) (Session, error) {
	now := s.clock.Now()
	claims := port.SessionClaims{
		SessionID: s.newID(),
		UserID:    user.ID,
		Role:      user.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	token, err := s.tokens.Issue(claims)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	payload, err := json.Marshal(sessionRecord{UserID: user.ID, ExpiresAt: formatTime(claims.ExpiresAt)})
	if err != nil {
		return Session{}, err
	}
	// The store expires the record with the session so stale keys do not pile up.
	stored, err := s.store.SetIfAbsent(ctx, sessionKey(claims.SessionID), payload, s.ttl)
	if err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	if !stored {
		return Session{}, fmt.Errorf("store session: id %s already in use", claims.SessionID)
	}
	return Session{Token: token, User: user, ExpiresAt: claims.ExpiresAt}, nil
}

func (s *IdentityService) purgeSession(ctx context.Context, sessionID string) {
	if err := s.store.Delete(ctx, sessionKey(sessionID)); err != nil {
		identityLogger().WarnContext(ctx, "failed to purge expired session",
			"operation", "authenticate",
			"outcome", "failure",
			"error", err.Error(),
		)
	}
}
