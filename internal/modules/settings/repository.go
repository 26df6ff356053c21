package settings

import "context"

// Repository defines the data-access contract for the config table.
type Repository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	List(ctx context.Context) ([]Setting, error)
	SetValue(ctx context.Context, key, value string) error
}
