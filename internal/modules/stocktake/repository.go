package stocktake

import (
	"context"
	"time"

	"github.com/georgemunganga/tillcore/internal/modules/inventory"
)

// Repository defines data access for stocktakes.
type Repository interface {
	Create(ctx context.Context, st *StockTake) error
	Get(ctx context.Context, id int64) (*StockTake, error)
	List(ctx context.Context, uncommittedOnly bool) ([]StockTake, error)
	Delete(ctx context.Context, id int64) error

	// SetScope makes stockTypeIDs exactly the scope of the stocktake. It
	// fails if any of them belongs to another stocktake.
	SetScope(ctx context.Context, id int64, stockTypeIDs []int64) error
	Scope(ctx context.Context, id int64) ([]int64, error)
	// InProgressFor returns the started, uncommitted stocktake whose
	// scope includes the stock type, or nil.
	InProgressFor(ctx context.Context, stockTypeID int64) (*StockTake, error)

	// Start snapshots the remaining quantity of every available,
	// unfinished item in scope and sets the start time.
	Start(ctx context.Context, id int64, at time.Time) error
	Snapshots(ctx context.Context, id int64) ([]Snapshot, error)
	Adjustments(ctx context.Context, id int64) ([]Adjustment, error)
	// SetAdjustment stores adj, replacing any with the same key. A zero
	// quantity removes it.
	SetAdjustment(ctx context.Context, adj Adjustment) error
	SetFinishCode(ctx context.Context, id, stockID int64, code *string) error
	// AddItem inserts a stock item owned by the stocktake together with
	// its snapshot.
	AddItem(ctx context.Context, id int64, item *inventory.StockItem) error

	// Commit writes adjustments as stockouts, finishes items with a finish
	// code, clears the scope and sets the commit time, all at once.
	Commit(ctx context.Context, id int64, user *int64, at time.Time) error
}
