package register

import (
	"context"

	"github.com/georgemunganga/tillcore/internal/modules/inventory"
	"github.com/georgemunganga/tillcore/internal/modules/payment"
	"github.com/georgemunganga/tillcore/internal/modules/stockline"
	"github.com/georgemunganga/tillcore/internal/modules/transaction"
	"github.com/georgemunganga/tillcore/internal/modules/user"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"go.uber.org/zap"
)

// Pay takes a payment against the user's transaction.
func (r *Register) Pay(ctx context.Context, req PayRequest) (*payment.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.d.Users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	t, err := r.current(ctx, u, false)
	if err != nil {
		return nil, err
	}
	return r.d.Payments.StartPayment(ctx, payment.Request{
		TransID: t.ID, UserID: u.ID, PayType: req.PayType, Amount: req.Amount,
	})
}

// Refund gives money back against the user's transaction.
func (r *Register) Refund(ctx context.Context, req PayRequest) (*payment.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.d.Users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := r.require(u, user.PermRefund, "give refunds"); err != nil {
		return nil, err
	}
	t, err := r.current(ctx, u, false)
	if err != nil {
		return nil, err
	}
	return r.d.Payments.StartRefund(ctx, payment.Request{
		TransID: t.ID, UserID: u.ID, PayType: req.PayType, Amount: req.Amount,
		OriginalPaymentID: req.OriginalPaymentID,
	})
}

// Void voids lines of a transaction. Voiding lines of a closed
// transaction needs the void permission and leaves the user owning the
// transaction that holds the reversals.
func (r *Register) Void(ctx context.Context, userID, transID int64, lineIDs []int64) (*transaction.VoidResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.d.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if transID == 0 {
		t, err := r.current(ctx, u, false)
		if err != nil {
			return nil, err
		}
		transID = t.ID
	}
	t, err := r.d.Transactions.Get(ctx, transID)
	if err != nil {
		return nil, err
	}
	if t.State() == transaction.StateClosed {
		if err := r.require(u, user.PermVoid, "void lines from closed transactions"); err != nil {
			return nil, err
		}
	}
	return r.d.Transactions.VoidLines(ctx, transID, lineIDs, u.ID)
}

// Defer puts the user's transaction aside for a later session, giving
// back any payments in cash.
func (r *Register) Defer(ctx context.Context, userID int64) (*transaction.DeferResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, t, err := r.withPermission(ctx, userID, user.PermDefer, "defer transactions")
	if err != nil {
		return nil, err
	}
	var refundPayType string
	if t.PaymentCount > 0 {
		if refundPayType, err = r.d.Payments.ChangePayType(ctx); err != nil {
			return nil, err
		}
	}
	res, err := r.d.Transactions.Defer(ctx, t.ID, u.ID, refundPayType)
	if err != nil {
		return nil, err
	}
	if res.Refunded.IsPositive() {
		if err := r.d.Printer.Kickout(ctx); err != nil {
			r.log.Warn("drawer kickout failed", zap.Error(err))
		}
	}
	return res, nil
}

// Merge moves the user's transaction into another open transaction.
func (r *Register) Merge(ctx context.Context, userID, intoID int64) (*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, t, err := r.withPermission(ctx, userID, user.PermMerge, "merge transactions")
	if err != nil {
		return nil, err
	}
	return r.d.Transactions.Merge(ctx, t.ID, intoID, u.ID)
}

// Split moves the chosen lines into a new transaction with the given
// note.
func (r *Register) Split(ctx context.Context, userID int64, lineIDs []int64, notes string) (*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, t, err := r.withPermission(ctx, userID, user.PermSplit, "split transactions")
	if err != nil {
		return nil, err
	}
	return r.d.Transactions.Split(ctx, t.ID, lineIDs, notes, u.ID)
}

// FreeDrinks writes the user's transaction off as free drinks.
func (r *Register) FreeDrinks(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, t, err := r.withPermission(ctx, userID, user.PermFreeDrinks, "give free drinks")
	if err != nil {
		return err
	}
	return r.d.Transactions.ConvertToFreeDrinks(ctx, t.ID, u.ID)
}

// Cancel throws away the user's transaction. Empty transactions can be
// cancelled by anyone.
func (r *Register) Cancel(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.d.Users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	t, err := r.current(ctx, u, false)
	if err != nil {
		return err
	}
	if !t.Empty() {
		if err := r.require(u, user.PermCancel, "cancel transactions"); err != nil {
			return err
		}
	}
	return r.d.Transactions.Cancel(ctx, t.ID, u.ID)
}

// Recall makes transID the user's transaction, taking it over from
// another user if necessary.
func (r *Register) Recall(ctx context.Context, userID, transID int64) (*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.d.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	t, err := r.d.Transactions.Get(ctx, transID)
	if err != nil {
		return nil, err
	}
	if t.State() == transaction.StateClosed {
		return nil, tillerr.User("transaction %d is closed", transID)
	}
	owner, err := r.d.Users.OwnerOf(ctx, transID)
	if err != nil {
		return nil, err
	}
	if owner != nil && owner.ID == u.ID {
		return t, nil
	}
	if owner != nil {
		if err := r.require(u, user.PermTakeOver, "take over other users' transactions"); err != nil {
			return nil, err
		}
	}
	if err := r.d.Users.TakeTransaction(ctx, u.ID, transID); err != nil {
		return nil, err
	}
	r.modifier = ""
	r.log.Info("transaction recalled", zap.Int64("trans", transID), zap.Int64("user", u.ID))
	return t, nil
}

// Recallable lists the transactions a user could recall.
func (r *Register) Recallable(ctx context.Context) ([]transaction.Summary, error) {
	return r.d.Transactions.ListRecallable(ctx)
}

// PullThru records a pull-through on a line.
func (r *Register) PullThru(ctx context.Context, userID, lineID int64) (*inventory.StockOut, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.d.Users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return r.d.Lines.RecordPullThru(ctx, lineID)
}

// UseStock puts an item on sale on a line.
func (r *Register) UseStock(ctx context.Context, userID, lineID, stockID int64, finishCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.d.Users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := r.require(u, user.PermUseStock, "put stock on sale"); err != nil {
		return err
	}
	return r.d.Lines.UseStock(ctx, lineID, stockID, finishCode)
}

func (r *Register) withPermission(ctx context.Context, userID int64, perm, action string) (*user.User, *transaction.Transaction, error) {
	u, err := r.d.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if err := r.require(u, perm, action); err != nil {
		return nil, nil, err
	}
	t, err := r.current(ctx, u, false)
	if err != nil {
		return nil, nil, err
	}
	return u, t, nil
}

// PullThruDue reports whether a line needs pulling through.
func (r *Register) PullThruDue(ctx context.Context, lineID int64) (*stockline.PullThruStatus, error) {
	return r.d.Lines.PullThruDue(ctx, lineID)
}
