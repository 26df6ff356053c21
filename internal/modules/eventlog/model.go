package eventlog

import "time"

// Entry is one row of the append-only event log. The reference fields
// say what the entry is about; any of them may be nil.
type Entry struct {
	ID          int64     `db:"id" json:"id"`
	Time        time.Time `db:"time" json:"time"`
	UserID      *int64    `db:"loguser" json:"user_id,omitempty"`
	Description string    `db:"description" json:"description"`
	TransID     *int64    `db:"transid" json:"transid,omitempty"`
	TranslineID *int64    `db:"translineid" json:"translineid,omitempty"`
	PaymentID   *int64    `db:"paymentid" json:"paymentid,omitempty"`
	SessionID   *int64    `db:"sessionid" json:"sessionid,omitempty"`
	StockID     *int64    `db:"stockid" json:"stockid,omitempty"`
	StockLineID *int64    `db:"stocklineid" json:"stocklineid,omitempty"`
	StocktakeID *int64    `db:"stocktake" json:"stocktake,omitempty"`
}

// Filter narrows a log query. Zero fields match everything.
type Filter struct {
	TransID   int64
	SessionID int64
	Limit     int
}
