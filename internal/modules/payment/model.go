package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mode controls whether a payment type may take payments.
type Mode string

const (
	ModeDisabled  Mode = "disabled"
	ModeTotalOnly Mode = "total_only" // end-of-day totals only
	ModeActive    Mode = "active"
)

// PayType is a registered payment method. Config and State are opaque to
// everything except its driver.
type PayType struct {
	PayType         string  `db:"paytype" json:"paytype"`
	Description     string  `db:"description" json:"description"`
	DriverName      string  `db:"driver_name" json:"driver_name"`
	Mode            Mode    `db:"mode" json:"mode"`
	Order           int     `db:"order" json:"order"`
	Config          string  `db:"config" json:"-"`
	State           string  `db:"state" json:"-"`
	PaymentsAccount *string `db:"payments_account" json:"payments_account,omitempty"`
	FeesAccount     *string `db:"fees_account" json:"fees_account,omitempty"`
}

// Payment is one row of money moving in or out of a transaction. A
// pending payment always has a zero amount until its driver finishes.
type Payment struct {
	ID      int64             `db:"id" json:"id"`
	TransID int64             `db:"transid" json:"trans_id"`
	Amount  decimal.Decimal   `db:"amount" json:"amount"`
	PayType string            `db:"paytype" json:"paytype"`
	Text    string            `db:"text" json:"text"`
	Source  string            `db:"source" json:"source"`
	UserID  *int64            `db:"user" json:"user_id,omitempty"`
	Time    time.Time         `db:"time" json:"time"`
	Pending bool              `db:"pending" json:"pending"`
	Meta    map[string]string `db:"-" json:"meta,omitempty"`
}

// Metadata keys shared by the service and the drivers.
const (
	MetaRefundOf        = "refund_of"
	MetaCancelRequested = "cancel_requested"
)

// Status is the outcome a driver reports for a payment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// ── Request/Response DTOs ─────────────────────────────────────────────────────

// Request asks a driver to take or give back Amount. Outstanding is the
// transaction balance before the payment. Payment is the pending row
// already written for asynchronous drivers.
type Request struct {
	TransID     int64           `json:"trans_id"`
	UserID      int64           `json:"user_id"`
	PayType     string          `json:"paytype"`
	Amount      decimal.Decimal `json:"amount"`
	Outstanding decimal.Decimal `json:"-"`
	// OriginalPaymentID names the payment a card refund goes back to.
	OriginalPaymentID int64    `json:"original_payment_id,omitempty"`
	Payment           *Payment `json:"-"`
}

// Split is an extra completed row a driver reports, for example a
// partial capture.
type Split struct {
	Amount decimal.Decimal
	Text   string
}

// Outcome is what a driver reports after starting or polling a payment.
type Outcome struct {
	Status Status
	// Amount is the signed amount taken once Status is completed.
	Amount decimal.Decimal
	Text   string
	// Change is handed back in cash and recorded as its own payment.
	Change  decimal.Decimal
	Splits  []Split
	Meta    map[string]string
	Kickout bool
}

// Result is returned to the register after a payment operation.
type Result struct {
	Payments []Payment `json:"payments"`
	Pending  *Payment  `json:"pending,omitempty"`
	Closed   bool      `json:"closed"`
	Change   string    `json:"change,omitempty"`
	Warning  string    `json:"warning,omitempty"`
}

// DriverTotal is a session total reported by a driver.
type DriverTotal struct {
	PayType string          `json:"paytype"`
	Amount  decimal.Decimal `json:"amount"`
	Fees    decimal.Decimal `json:"fees"`
}
