package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stockbook/backend/internal/domain/identity"
	"github.com/stockbook/backend/internal/domain/shared"
	"github.com/stockbook/backend/internal/infrastructure/auth"
)

// LockoutConfig controls failed-login lockout behaviour
type LockoutConfig struct {
	MaxLoginAttempts int
	LockDuration     time.Duration
}

// DefaultLockoutConfig returns the default lockout settings
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}
}

// LoginInput contains login credentials
type LoginInput struct {
	Username string
	Password string
}

// LoginResult is a successful login's token and user
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	TokenType   string
	User        *identity.User
}

// AuthService handles authentication
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	config     LockoutConfig
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo identity.UserRepository, jwtService *auth.JWTService, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		config:     DefaultLockoutConfig(),
		logger:     logger,
	}
}

// Login authenticates a user and issues an access token
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, input.Username)
	if err != nil {
		s.logger.Warn("User not found during login", zap.String("username", input.Username))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	}

	if !user.CanLogin() {
		if user.IsLocked() {
			s.logger.Warn("Login attempt for locked account", zap.String("username", input.Username))
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later")
		}
		return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	}

	if !user.VerifyPassword(input.Password) {
		locked := user.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.userRepo.Save(ctx, user); err != nil {
			s.logger.Error("Failed to update user after login failure", zap.Error(err))
		}

		if locked {
			s.logger.Warn("Account locked after too many failed attempts",
				zap.String("username", input.Username),
				zap.Int("attempts", s.config.MaxLoginAttempts))
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Account has been locked")
		}

		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Username)
	if err != nil {
		s.logger.Error("Failed to generate access token", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication token")
	}

	user.RecordLoginSuccess()
	user.AddDomainEvent(identity.NewUserLoggedInEvent(user))
	if err := s.userRepo.Save(ctx, user); err != nil {
		// Login still succeeds; only the tracking update failed.
		s.logger.Error("Failed to update user after successful login", zap.Error(err))
	}

	s.logger.Info("User logged in",
		zap.String("username", user.Username),
		zap.String("user_id", user.ID.String()))

	return &LoginResult{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		TokenType:   token.TokenType,
		User:        user,
	}, nil
}

// ChangePassword changes the authenticated user's password
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := user.ChangePassword(oldPassword, newPassword); err != nil {
		return err
	}

	return s.userRepo.Save(ctx, user)
}

// GetByID retrieves a user by ID
func (s *AuthService) GetByID(ctx context.Context, userID uuid.UUID) (*identity.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}
