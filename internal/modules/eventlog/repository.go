package eventlog

import "context"

type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter) ([]Entry, error)
}
