package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskprogress/internal/auth"
	"taskprogress/internal/model"
	"taskprogress/internal/repository"
	"taskprogress/internal/session"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("your account has been disabled, please contact an administrator")
)

type AuthService struct {
	db      *gorm.DB
	tokens  *auth.TokenManager
	revoker session.Revoker
	log     *zap.SugaredLogger
}

func NewAuthService(db *gorm.DB, tokens *auth.TokenManager, revoker session.Revoker, log *zap.SugaredLogger) *AuthService {
	if revoker == nil {
		revoker = session.NopRevoker{}
	}
	return &AuthService{db: db, tokens: tokens, revoker: revoker, log: log}
}

// Login checks the password before the active flag so a disabled account
// is only revealed to someone who knows its password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	users := repository.NewUserRepository(s.db)
	user, err := users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, "", fmt.Errorf("find user: %w", err)
	}
	if user == nil || !auth.CheckPassword(password, user.PasswordHash) {
		s.log.Infow("login failed", "username", username)
		return nil, "", ErrInvalidCredentials
	}
	if !user.Active {
		s.log.Infow("login refused for disabled account", "user_id", user.ID)
		return nil, "", ErrAccountDisabled
	}

	token, err := s.tokens.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}
	s.log.Infow("user logged in", "user_id", user.ID, "role", user.Role)
	return user, token, nil
}

// Authenticate resolves a token to the current state of its user.
// Role and active changes apply immediately, not at token expiry.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, *auth.Claims, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, nil, err
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, nil, auth.ErrTokenRevoked
	}

	user, err := repository.NewUserRepository(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, auth.ErrInvalidToken
		}
		return nil, nil, err
	}
	return user, claims, nil
}

// Logout revokes the token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return nil
	}
	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.log.Infow("user logged out", "user_id", claims.UserID)
	return nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}
