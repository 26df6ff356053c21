package session

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is a trading period. At most one has no end time.
type Session struct {
	ID        int64      `db:"id" json:"id"`
	Date      time.Time  `db:"date" json:"date"`
	StartTime time.Time  `db:"starttime" json:"starttime"`
	EndTime   *time.Time `db:"endtime" json:"endtime,omitempty"`
	AccInfo   *string    `db:"accinfo" json:"accinfo,omitempty"`
}

func (s *Session) IsOpen() bool { return s.EndTime == nil }

// ── Totals ────────────────────────────────────────────────────────────────────

type DeptTotal struct {
	DeptID      int64           `db:"dept" json:"dept_id"`
	Description string          `db:"description" json:"description"`
	Total       decimal.Decimal `db:"total" json:"total"`
}

type UserTotal struct {
	UserID *int64          `db:"user_id" json:"user_id,omitempty"`
	Name   string          `db:"name" json:"name"`
	Items  int64           `db:"items" json:"items"`
	Total  decimal.Decimal `db:"total" json:"total"`
}

// PayTypeTotal compares what the till took through a payment type with
// what was recorded for it after the session closed.
type PayTypeTotal struct {
	PayType     string              `db:"paytype" json:"paytype"`
	Description string              `db:"description" json:"description"`
	Till        decimal.Decimal     `db:"till" json:"till"`
	Recorded    decimal.NullDecimal `db:"recorded" json:"recorded"`
	Fees        decimal.Decimal     `db:"fees" json:"fees"`
}

// Error is recorded minus till, or null until a total is recorded.
func (p PayTypeTotal) Error() decimal.NullDecimal {
	if !p.Recorded.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(p.Recorded.Decimal.Sub(p.Till))
}

// Totals is the session report.
type Totals struct {
	Session  Session         `json:"session"`
	Till     decimal.Decimal `json:"till"`
	Paid     decimal.Decimal `json:"paid"`
	Recorded decimal.Decimal `json:"recorded"`
	// Error is Recorded less Till.
	Error    decimal.Decimal `json:"error"`
	Depts    []DeptTotal     `json:"departments"`
	Users    []UserTotal     `json:"users"`
	PayTypes []PayTypeTotal  `json:"paytypes"`
	// Complete is true once every payment type has a recorded total.
	Complete bool `json:"complete"`
}

// RecordedTotal is an actual amount counted or reported for a payment
// type after the session closed.
type RecordedTotal struct {
	PayType string          `db:"paytype" json:"paytype"`
	Amount  decimal.Decimal `db:"amount" json:"amount"`
	Fees    decimal.Decimal `db:"fees" json:"fees"`
}

// Blockers counts what prevents a session from closing.
type Blockers struct {
	OpenTransactions int `db:"open_transactions"`
	PendingPayments  int `db:"pending_payments"`
}
