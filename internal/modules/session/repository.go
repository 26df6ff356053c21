package session

import "context"

// Repository defines data access for sessions and their totals.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	// Current returns the open session, or nil.
	Current(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id int64) (*Session, error)
	List(ctx context.Context, limit int) ([]Session, error)
	Blockers(ctx context.Context, id int64) (Blockers, error)
	Close(ctx context.Context, s *Session) error

	DeptTotals(ctx context.Context, id int64) ([]DeptTotal, error)
	UserTotals(ctx context.Context, id int64) ([]UserTotal, error)
	PayTypeTotals(ctx context.Context, id int64) ([]PayTypeTotal, error)
	// RecordTotals replaces the recorded totals of a session.
	RecordTotals(ctx context.Context, id int64, totals []RecordedTotal) error
}
