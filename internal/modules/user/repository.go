package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the data-access contract for users.
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id int64) (*User, error)
	// OwnerOf returns the user owning a transaction, or nil.
	OwnerOf(ctx context.Context, transID int64) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	SetRegister(ctx context.Context, id int64, registerID uuid.UUID) error

	// TakeTransaction makes userID the owner of transID, releasing and
	// messaging any previous owner in the same database transaction.
	// It returns the previous owner's id, or zero.
	TakeTransaction(ctx context.Context, userID, transID int64, at time.Time, message string) (int64, error)
	Release(ctx context.Context, userID int64) error
	QueueMessage(ctx context.Context, userID int64, message string) error
	// PopMessage returns and clears the user's queued messages.
	PopMessage(ctx context.Context, userID int64) (string, error)
}
