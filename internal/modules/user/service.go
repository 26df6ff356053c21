package user

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the business logic for till users.
type Service interface {
	CreateUser(ctx context.Context, req CreateRequest) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SetPassword(ctx context.Context, id int64, password string) error
	// CheckPassword returns the user when password matches and the
	// user is enabled.
	CheckPassword(ctx context.Context, id int64, password string) (*User, error)
	HasPermission(ctx context.Context, id int64, perm string) (bool, error)

	SignOn(ctx context.Context, id int64, registerID uuid.UUID) (*User, error)
	TakeTransaction(ctx context.Context, id, transID int64) error
	OwnerOf(ctx context.Context, transID int64) (*User, error)
	Release(ctx context.Context, id int64) error
	QueueMessage(ctx context.Context, id int64, message string) error
	PopMessage(ctx context.Context, id int64) (string, error)
}
