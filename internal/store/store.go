package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = errors.New("conflict")
)

// Subscription is a user's plan.
type Subscription string

const (
	SubscriptionFree  Subscription = "free"
	SubscriptionBasic Subscription = "basic"
	SubscriptionPro   Subscription = "pro"
)

// Valid reports whether s is a known plan.
func (s Subscription) Valid() bool {
	switch s {
	case SubscriptionFree, SubscriptionBasic, SubscriptionPro:
		return true
	default:
		return false
	}
}

// User represents an account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Subscription Subscription
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Room is the durable metadata of a whiteboard. Live participants are not stored.
type Room struct {
	ID         int64
	Key        string // short public identifier used in URLs and websocket handshakes
	Name       string
	OwnerID    int64
	OwnerName  string
	OwnerEmail string
	IsPublic   bool
	CanvasData string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RoomUpdate holds optional room fields to change.
type RoomUpdate struct {
	Name     *string
	IsPublic *bool
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, email, name, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// UpdateUserProfile changes name and/or email. Empty values are left untouched.
	UpdateUserProfile(ctx context.Context, id int64, name, email string) (*User, error)

	// UpdateUserPassword replaces the stored password hash.
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error

	// UpdateUserSubscription changes the user's plan.
	UpdateUserSubscription(ctx context.Context, id int64, sub Subscription) error

	// TouchLastLogin records a successful login.
	TouchLastLogin(ctx context.Context, id int64) error
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a new room owned by ownerID.
	CreateRoom(ctx context.Context, key, name string, ownerID int64, isPublic bool) (*Room, error)

	// GetRoomByKey retrieves a room, including owner name and email.
	GetRoomByKey(ctx context.Context, key string) (*Room, error)

	// ListRoomsForUser lists rooms the user owns or collaborates on, most recently updated first.
	ListRoomsForUser(ctx context.Context, userID int64) ([]*Room, error)

	// UpdateRoom applies the non-nil fields of upd.
	UpdateRoom(ctx context.Context, key string, upd RoomUpdate) (*Room, error)

	// SaveCanvas stores the canvas image of a room.
	SaveCanvas(ctx context.Context, key, canvasData string) error

	// DeleteRoom removes a room and its collaborators.
	DeleteRoom(ctx context.Context, key string) error

	// AddCollaborator grants userID access to the room. ErrConflict if already present.
	AddCollaborator(ctx context.Context, roomID, userID int64) error

	// IsCollaborator checks whether userID collaborates on the room.
	IsCollaborator(ctx context.Context, roomID, userID int64) (bool, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore

	// Close closes the underlying database connection.
	Close() error
}
