package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stockbook/backend/internal/domain/identity"
	"github.com/stockbook/backend/internal/domain/shared"
	"github.com/stockbook/backend/internal/infrastructure/auth"
	"github.com/stockbook/backend/internal/infrastructure/config"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*identity.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.User), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestAuthService(repo *MockUserRepository) *AuthService {
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "auth-service-test-secret",
		AccessTokenExpiration: time.Hour,
		Issuer:                "stockbook-test",
	})
	return NewAuthService(repo, jwtService, zap.NewNop())
}

func assertDomainErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds with valid credentials", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := newTestAuthService(repo)

		user, err := identity.NewUser("alice", "correct-password")
		require.NoError(t, err)

		repo.On("FindByUsername", ctx, "alice").Return(user, nil)
		repo.On("Save", ctx, user).Return(nil)

		result, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "correct-password"})
		require.NoError(t, err)

		assert.NotEmpty(t, result.AccessToken)
		assert.Equal(t, "Bearer", result.TokenType)
		assert.True(t, result.ExpiresAt.After(time.Now()))
		assert.NotNil(t, user.LastLoginAt)
		repo.AssertExpectations(t)
	})

	t.Run("unknown username yields invalid credentials", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := newTestAuthService(repo)

		repo.On("FindByUsername", ctx, "ghost").Return(nil, shared.ErrNotFound)

		_, err := svc.Login(ctx, LoginInput{Username: "ghost", Password: "whatever"})
		assertDomainErrorCode(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("wrong password yields invalid credentials and records the failure", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := newTestAuthService(repo)

		user, err := identity.NewUser("alice", "correct-password")
		require.NoError(t, err)

		repo.On("FindByUsername", ctx, "alice").Return(user, nil)
		repo.On("Save", ctx, user).Return(nil)

		_, err = svc.Login(ctx, LoginInput{Username: "alice", Password: "wrong"})
		assertDomainErrorCode(t, err, "INVALID_CREDENTIALS")
		assert.Equal(t, 1, user.FailedAttempts)
	})

	t.Run("locks the account after repeated failures", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := newTestAuthService(repo)

		user, err := identity.NewUser("alice", "correct-password")
		require.NoError(t, err)

		repo.On("FindByUsername", ctx, "alice").Return(user, nil)
		repo.On("Save", ctx, user).Return(nil)

		for i := 0; i < svc.config.MaxLoginAttempts-1; i++ {
			_, err = svc.Login(ctx, LoginInput{Username: "alice", Password: "wrong"})
			assertDomainErrorCode(t, err, "INVALID_CREDENTIALS")
		}

		_, err = svc.Login(ctx, LoginInput{Username: "alice", Password: "wrong"})
		assertDomainErrorCode(t, err, "ACCOUNT_LOCKED")
		assert.True(t, user.IsLocked())

		// Further attempts, right password or not, stay locked out
		_, err = svc.Login(ctx, LoginInput{Username: "alice", Password: "correct-password"})
		assertDomainErrorCode(t, err, "ACCOUNT_LOCKED")
	})

	t.Run("deactivated account cannot log in", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := newTestAuthService(repo)

		user, err := identity.NewUser("alice", "correct-password")
		require.NoError(t, err)
		require.NoError(t, user.Deactivate())

		repo.On("FindByUsername", ctx, "alice").Return(user, nil)

		_, err = svc.Login(ctx, LoginInput{Username: "alice", Password: "correct-password"})
		assertDomainErrorCode(t, err, "ACCOUNT_DEACTIVATED")
	})
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("changes password with the current one", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := newTestAuthService(repo)

		user, err := identity.NewUser("alice", "old-password")
		require.NoError(t, err)

		repo.On("FindByID", ctx, user.ID).Return(user, nil)
		repo.On("Save", ctx, user).Return(nil)

		err = svc.ChangePassword(ctx, user.ID, "old-password", "new-password-1")
		require.NoError(t, err)
		assert.True(t, user.VerifyPassword("new-password-1"))
	})

	t.Run("rejects a wrong current password", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := newTestAuthService(repo)

		user, err := identity.NewUser("alice", "old-password")
		require.NoError(t, err)

		repo.On("FindByID", ctx, user.ID).Return(user, nil)

		err = svc.ChangePassword(ctx, user.ID, "not-the-password", "new-password-1")
		require.Error(t, err)
		assert.True(t, user.VerifyPassword("old-password"))
	})
}
