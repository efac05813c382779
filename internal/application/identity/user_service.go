package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stockbook/backend/internal/domain/identity"
	"github.com/stockbook/backend/internal/domain/shared"
)

// CreateUserRequest creates a new operator account
type CreateUserRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=100"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DisplayName string `json:"display_name" binding:"omitempty,max=200"`
}

// UserResponse is the API shape of a user
type UserResponse struct {
	ID          uuid.UUID           `json:"id"`
	Username    string              `json:"username"`
	DisplayName string              `json:"display_name,omitempty"`
	Status      identity.UserStatus `json:"status"`
	LastLoginAt *time.Time          `json:"last_login_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// ToUserResponse maps a user aggregate to its API shape
func ToUserResponse(user *identity.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Status:      user.Status,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

// UserService handles user account administration
type UserService struct {
	userRepo identity.UserRepository
}

// NewUserService creates a new UserService
func NewUserService(userRepo identity.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Create creates a new user account
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Username is already taken")
	}

	user, err := identity.NewUser(req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != "" {
		if err := user.SetDisplayName(req.DisplayName); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	resp := ToUserResponse(user)
	return &resp, nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// List retrieves users with filtering and pagination
func (s *UserService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[UserResponse], error) {
	users, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.userRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]UserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, ToUserResponse(user))
	}

	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Deactivate deactivates a user account
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := user.Deactivate(); err != nil {
		return err
	}
	return s.userRepo.Save(ctx, user)
}

// Activate restores a user account
func (s *UserService) Activate(ctx context.Context, id uuid.UUID) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := user.Activate(); err != nil {
		return err
	}
	return s.userRepo.Save(ctx, user)
}

// ResetPassword sets a new password without the current one (admin action)
func (s *UserService) ResetPassword(ctx context.Context, id uuid.UUID, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}
	return s.userRepo.Save(ctx, user)
}
