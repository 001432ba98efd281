package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util"
)

type accountRepo struct {
	byEmail map[string]*domain.User
	nextID  int64
}

func newAccountRepo() *accountRepo {
	return &accountRepo{byEmail: map[string]*domain.User{}, nextID: 1}
}

func (r *accountRepo) Create(_ context.Context, user *domain.User) error {
	user.ID = r.nextID
	r.nextID++
	clone := *user
	r.byEmail[user.Email] = &clone
	return nil
}

func (r *accountRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	for _, user := range r.byEmail {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func newAuthFixture() (*AuthService, *accountRepo) {
	repo := newAccountRepo()
	svc := NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            4, // keep tests fast
	}, repo)
	return svc, repo
}

func TestRegisterDefaultsToCustomer(t *testing.T) {
	svc, _ := newAuthFixture()

	user, token, _, err := svc.Register(context.Background(), "John", "john@test.com", "password123", "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, user.Role)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, "password123", user.PasswordHash)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newAuthFixture()

	_, _, _, err := svc.Register(context.Background(), "John", "john@test.com", "password123", domain.RoleCustomer)
	require.NoError(t, err)

	_, _, _, err = svc.Register(context.Background(), "Johnny", "john@test.com", "other", domain.RoleCustomer)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _ := newAuthFixture()

	_, _, _, err := svc.Register(context.Background(), "Eve", "eve@test.com", "pw", domain.Role("superuser"))
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthFixture()
	_, _, _, err := svc.Register(context.Background(), "John", "john@test.com", "password123", domain.RoleAgent)
	require.NoError(t, err)

	user, token, _, err := svc.Login(context.Background(), "john@test.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, user.Role)
	assert.NotEmpty(t, token)

	_, _, _, err = svc.Login(context.Background(), "john@test.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)

	_, _, _, err = svc.Login(context.Background(), "nobody@test.com", "password123")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
}

func TestSeedTestUsersIsIdempotent(t *testing.T) {
	svc, repo := newAuthFixture()

	created, err := svc.SeedTestUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, created, 5)

	again, err := svc.SeedTestUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, repo.byEmail, 5)
}
