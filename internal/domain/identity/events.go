package identity

import (
	"github.com/google/uuid"

	"github.com/stockbook/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeUser = "User"

// Event type constants
const (
	EventTypeUserCreated  = "UserCreated"
	EventTypeUserLoggedIn = "UserLoggedIn"
)

// UserCreatedEvent is raised when a new user account is created
type UserCreatedEvent struct {
	shared.BaseDomainEvent
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// NewUserCreatedEvent creates a new UserCreatedEvent
func NewUserCreatedEvent(user *User) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserCreated, AggregateTypeUser, user.ID),
		UserID:          user.ID,
		Username:        user.Username,
	}
}

// EventType returns the event type name
func (e *UserCreatedEvent) EventType() string {
	return EventTypeUserCreated
}

// UserLoggedInEvent is raised on a successful login
type UserLoggedInEvent struct {
	shared.BaseDomainEvent
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// NewUserLoggedInEvent creates a new UserLoggedInEvent
func NewUserLoggedInEvent(user *User) *UserLoggedInEvent {
	return &UserLoggedInEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserLoggedIn, AggregateTypeUser, user.ID),
		UserID:          user.ID,
		Username:        user.Username,
	}
}

// EventType returns the event type name
func (e *UserLoggedInEvent) EventType() string {
	return EventTypeUserLoggedIn
}
