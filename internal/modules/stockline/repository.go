package stockline

import (
	"context"
	"time"
)

// Repository defines the data-access contract for stocklines and the
// attachment of stock items to them.
type Repository interface {
	Create(ctx context.Context, sl *StockLine) error
	Get(ctx context.Context, id int64) (*StockLine, error)
	List(ctx context.Context, location string) ([]StockLine, error)
	Update(ctx context.Context, sl *StockLine) error

	// Attach puts an unattached, unfinished item on a line, marking it on
	// sale if it was not already.
	Attach(ctx context.Context, stockID, lineID int64, at time.Time) error
	Detach(ctx context.Context, stockID int64) error
	DetachAll(ctx context.Context, lineID int64) error
	// ApplyRestock sets the new displayqty of every movement in one
	// database transaction, failing if any item changed since planning.
	ApplyRestock(ctx context.Context, moves []Movement) error
	// LastActivity is the time of the most recent stockout with one of
	// codes against any item on the line, or nil.
	LastActivity(ctx context.Context, lineID int64, codes []string) (*time.Time, error)
}
