package auth

import (
	"context"
	"net/http"
)

// Service defines the interface for authentication-related business logic.
type Service interface {
	// Login checks a user's password and issues a signed API token.
	Login(ctx context.Context, userID int64, password string) (string, error)
	ParseToken(token string) (*Claims, error)
	// Middleware rejects requests without a valid bearer token and puts
	// the token's user id on the request context.
	Middleware(next http.Handler) http.Handler
}

type ctxKey struct{}

// UserID returns the authenticated user id placed on ctx by Middleware.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok
}

// WithUserID returns a context carrying id as the authenticated user.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}
