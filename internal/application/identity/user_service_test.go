package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stockbook/backend/internal/domain/identity"
	"github.com/stockbook/backend/internal/domain/shared"
)

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a user with display name", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewUserService(repo)

		repo.On("ExistsByUsername", ctx, "bob").Return(false, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*identity.User")).Return(nil)

		resp, err := svc.Create(ctx, CreateUserRequest{
			Username:    "bob",
			Password:    "a-long-password",
			DisplayName: "Bob the Buyer",
		})
		require.NoError(t, err)

		assert.Equal(t, "bob", resp.Username)
		assert.Equal(t, "Bob the Buyer", resp.DisplayName)
		assert.Equal(t, identity.UserStatusActive, resp.Status)
		repo.AssertExpectations(t)
	})

	t.Run("rejects a taken username", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewUserService(repo)

		repo.On("ExistsByUsername", ctx, "bob").Return(true, nil)

		_, err := svc.Create(ctx, CreateUserRequest{Username: "bob", Password: "a-long-password"})
		assertDomainErrorCode(t, err, "ALREADY_EXISTS")
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestUserService_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := NewUserService(repo)

	user, err := identity.NewUser("carol", "a-long-password")
	require.NoError(t, err)

	repo.On("FindByID", ctx, user.ID).Return(user, nil)

	resp, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.ID)
	assert.Equal(t, "carol", resp.Username)
}

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := NewUserService(repo)

	alice, err := identity.NewUser("alice", "a-long-password")
	require.NoError(t, err)
	bob, err := identity.NewUser("bob", "a-long-password")
	require.NoError(t, err)

	filter := shared.DefaultFilter()
	repo.On("FindAll", ctx, filter).Return([]*identity.User{alice, bob}, nil)
	repo.On("Count", ctx, filter).Return(int64(2), nil)

	page, err := svc.List(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, "alice", page.Items[0].Username)
}

func TestUserService_ActivateDeactivate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := NewUserService(repo)

	user, err := identity.NewUser("dave", "a-long-password")
	require.NoError(t, err)

	repo.On("FindByID", ctx, user.ID).Return(user, nil)
	repo.On("Save", ctx, user).Return(nil)

	require.NoError(t, svc.Deactivate(ctx, user.ID))
	assert.Equal(t, identity.UserStatusDeactivated, user.Status)

	require.NoError(t, svc.Activate(ctx, user.ID))
	assert.Equal(t, identity.UserStatusActive, user.Status)
}

func TestUserService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := NewUserService(repo)

	user, err := identity.NewUser("erin", "a-long-password")
	require.NoError(t, err)

	repo.On("FindByID", ctx, user.ID).Return(user, nil)
	repo.On("Save", ctx, user).Return(nil)

	require.NoError(t, svc.ResetPassword(ctx, user.ID, "another-password"))
	assert.True(t, user.VerifyPassword("another-password"))
	assert.False(t, user.VerifyPassword("a-long-password"))
}
