package transaction

import (
	"time"

	"github.com/georgemunganga/tillcore/internal/modules/inventory"
	"github.com/shopspring/decimal"
)

// State is the lifecycle state of a transaction.
type State string

const (
	StateOpen     State = "open"
	StateClosed   State = "closed"
	StateDeferred State = "deferred"
)

// TransCode distinguishes sale lines from the lines that void them.
type TransCode string

const (
	CodeSale TransCode = "S"
	CodeVoid TransCode = "V"
)

// Transaction is a bill. A nil SessionID means it has been deferred to
// a later session.
type Transaction struct {
	ID             int64           `db:"id" json:"id"`
	SessionID      *int64          `db:"sessionid" json:"session_id,omitempty"`
	Closed         bool            `db:"closed" json:"closed"`
	Notes          string          `db:"notes" json:"notes"`
	DiscountPolicy *string         `db:"discount_policy" json:"discount_policy,omitempty"`
	Total          decimal.Decimal `db:"total" json:"total"`
	Paid           decimal.Decimal `db:"paid" json:"paid"`
	PaymentCount   int             `db:"payment_count" json:"payment_count"`
	Pending        bool            `db:"pending" json:"pending"`
	Lines          []Line          `db:"-" json:"lines,omitempty"`
}

func (t *Transaction) State() State {
	switch {
	case t.Closed:
		return StateClosed
	case t.SessionID == nil:
		return StateDeferred
	default:
		return StateOpen
	}
}

// Balance is the amount still owed.
func (t *Transaction) Balance() decimal.Decimal { return t.Total.Sub(t.Paid) }

// Empty reports whether the transaction has neither lines nor payments.
func (t *Transaction) Empty() bool { return len(t.Lines) == 0 && t.PaymentCount == 0 }

func (t *Transaction) line(id int64) *Line {
	for i := range t.Lines {
		if t.Lines[i].ID == id {
			return &t.Lines[i]
		}
	}
	return nil
}

// Line is a transline: Items of Amount each.
type Line struct {
	ID           int64                `db:"id" json:"id"`
	TransID      int64                `db:"transid" json:"trans_id"`
	Items        int64                `db:"items" json:"items"`
	Amount       decimal.Decimal      `db:"amount" json:"amount"`
	DeptID       int64                `db:"dept" json:"dept_id"`
	UserID       *int64               `db:"user" json:"user_id,omitempty"`
	TransCode    TransCode            `db:"transcode" json:"transcode"`
	Text         string               `db:"text" json:"text"`
	Time         time.Time            `db:"time" json:"time"`
	Source       *string              `db:"source" json:"source,omitempty"`
	Modifier     *string              `db:"modifier" json:"modifier,omitempty"`
	Discount     decimal.Decimal      `db:"discount" json:"discount"`
	DiscountName *string              `db:"discount_name" json:"discount_name,omitempty"`
	VoidedBy     *int64               `db:"voided_by" json:"voided_by,omitempty"`
	StockOut     []inventory.StockOut `db:"-" json:"stockout,omitempty"`
}

func (l *Line) Total() decimal.Decimal { return l.Amount.Mul(decimal.NewFromInt(l.Items)) }

// Voidable reports whether the line is a sale that has not been voided.
func (l *Line) Voidable() bool { return l.TransCode == CodeSale && l.VoidedBy == nil }

// StockDraw names a stock item and the base units the whole sale, all
// of its items together, takes from it.
type StockDraw struct {
	StockID int64           `json:"stock_id"`
	Qty     decimal.Decimal `json:"qty"`
}

// SaleRequest appends a sale line to an open transaction.
type SaleRequest struct {
	TransID  int64           `json:"trans_id"`
	UserID   int64           `json:"user_id"`
	Items    int64           `json:"items"`
	Amount   decimal.Decimal `json:"amount"`
	DeptID   int64           `json:"dept_id"`
	Text     string          `json:"text"`
	Source   string          `json:"source,omitempty"`
	Modifier string          `json:"modifier,omitempty"`
	Stock    []StockDraw     `json:"stock,omitempty"`
}

// VoidResult says where the reversing lines went. Deleted lists lines
// removed outright because they were young enough.
type VoidResult struct {
	TransID int64   `json:"trans_id"`
	Deleted []int64 `json:"deleted,omitempty"`
	Voids   []Line  `json:"voids,omitempty"`
}

// Refund describes money handed back when a transaction with payments
// is deferred.
type Refund struct {
	PayType string
	Amount  decimal.Decimal
	Text    string
	UserID  int64
	Time    time.Time
}

// DeferResult reports the refund taken, if any, when deferring.
type DeferResult struct {
	RefundTransID int64           `json:"refund_trans_id,omitempty"`
	Refunded      decimal.Decimal `json:"refunded"`
}

// Summary is one row of the recall list.
type Summary struct {
	ID        int64           `db:"id" json:"id"`
	SessionID *int64          `db:"sessionid" json:"session_id,omitempty"`
	Notes     string          `db:"notes" json:"notes"`
	Total     decimal.Decimal `db:"total" json:"total"`
	Paid      decimal.Decimal `db:"paid" json:"paid"`
	OwnerID   *int64          `db:"owner_id" json:"owner_id,omitempty"`
	Owner     *string         `db:"owner" json:"owner,omitempty"`
}

// VoidPlan is the set of writes a void makes in one database
// transaction. A Target with zero ID is created first, owned by UserID.
type VoidPlan struct {
	Target  *Transaction
	Delete  []int64
	Reverse []Line
	UserID  int64
	At      time.Time
}
