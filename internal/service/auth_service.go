package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util"
)

// AuthService coordinates registration and login flows. Passwords are stored
// as bcrypt hashes; credentials never round-trip in responses.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a new account. Role defaults to customer and is immutable
// afterwards.
func (s *AuthService) Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, string, time.Time, error) {
	if role == "" {
		role = domain.RoleCustomer
	}
	if !role.Valid() {
		return nil, "", time.Time{}, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Login authenticates a user by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// SeedTestUsers provisions the development login set. Existing emails are
// skipped so the call is repeatable.
func (s *AuthService) SeedTestUsers(ctx context.Context) ([]domain.User, error) {
	seed := []struct {
		name  string
		email string
		role  domain.Role
	}{
		{"Test User", "test@example.com", domain.RoleAdmin},
		{"Sarah Johnson", "agent@test.com", domain.RoleAgent},
		{"John Customer", "customer@test.com", domain.RoleCustomer},
		{"Mike Chen", "mike@company.com", domain.RoleAgent},
		{"Lisa Rodriguez", "lisa@company.com", domain.RoleAdmin},
	}

	created := []domain.User{}
	for _, entry := range seed {
		if _, err := s.users.GetByEmail(ctx, entry.email); err == nil {
			continue
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		hash, err := auth.HashPassword("password123", s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user := &domain.User{
			Name:         entry.name,
			Email:        entry.email,
			PasswordHash: hash,
			Role:         entry.role,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		created = append(created, *user)
	}
	return created, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
