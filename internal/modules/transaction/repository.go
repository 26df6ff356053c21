package transaction

import (
	"context"
	"time"

	"github.com/georgemunganga/tillcore/internal/modules/inventory"
)

// Repository defines data access for transactions and their lines.
// Closing, balance and immutability rules are enforced by triggers; a
// write they refuse comes back as an integrity violation.
type Repository interface {
	// OpenSessionID returns the id of the open session, or zero.
	OpenSessionID(ctx context.Context) (int64, error)

	// Create inserts t and makes ownerID its owner from at.
	Create(ctx context.Context, t *Transaction, ownerID int64, at time.Time) error
	// Get returns the transaction with its totals but without lines.
	Get(ctx context.Context, id int64) (*Transaction, error)
	Lines(ctx context.Context, transID int64) ([]Line, error)
	StockOutForLines(ctx context.Context, lineIDs []int64) ([]inventory.StockOut, error)

	// InsertLine writes a sale line and its stock removals atomically.
	InsertLine(ctx context.Context, l *Line, out []inventory.StockOut) error
	// IncrementLine adds by items to a line, scaling its stock removals.
	IncrementLine(ctx context.Context, lineID, by int64) error
	// ApplyVoids writes p. A new Target is owned by p.UserID.
	ApplyVoids(ctx context.Context, p *VoidPlan) error

	MoveLines(ctx context.Context, lineIDs []int64, fromID, toID int64) error
	// Split creates t and moves lineIDs from fromID into it.
	Split(ctx context.Context, t *Transaction, fromID int64, lineIDs []int64) error
	// Merge moves every line of fromID into intoID and deletes fromID.
	Merge(ctx context.Context, fromID, intoID int64) error
	// Defer detaches id from its session. With a refund, the payments
	// move first into a new closed transaction balanced by the refund;
	// its id is returned.
	Defer(ctx context.Context, id int64, refund *Refund) (int64, error)
	// Freebie turns the stock removals of every line into freebies and
	// deletes the transaction.
	Freebie(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	Close(ctx context.Context, id int64) error
	SetNotes(ctx context.Context, id int64, notes string) error
	SetSession(ctx context.Context, id, sessionID int64) error

	// Related returns transactions reachable from id by following the
	// void links between their lines, in either direction.
	Related(ctx context.Context, id int64) ([]int64, error)
	Recallable(ctx context.Context, sessionID int64) ([]Summary, error)
}
