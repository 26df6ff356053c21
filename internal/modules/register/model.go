package register

import (
	"github.com/georgemunganga/tillcore/internal/modules/keyboard"
	"github.com/georgemunganga/tillcore/internal/modules/stockline"
	"github.com/georgemunganga/tillcore/internal/modules/transaction"
	"github.com/shopspring/decimal"
)

// ── Request/Response DTOs ─────────────────────────────────────────────────────

// SellRequest is one keypress or barcode scan. Items defaults to 1 and
// Price overrides the sale price when set.
type SellRequest struct {
	UserID  int64            `json:"-"`
	Keycode string           `json:"keycode,omitempty"`
	Menukey string           `json:"menukey,omitempty"`
	Barcode string           `json:"barcode,omitempty"`
	Items   int64            `json:"items,omitempty"`
	Price   *decimal.Decimal `json:"price,omitempty"`
}

// SellResult reports what a keypress did. Exactly one of Line, Choices
// and Modifier is set.
type SellResult struct {
	TransID int64              `json:"trans_id,omitempty"`
	Line    *transaction.Line  `json:"line,omitempty"`
	Repeat  bool               `json:"repeat,omitempty"`
	Choices []keyboard.Binding `json:"choices,omitempty"`
	// Modifier is set when the key only chose a modifier for the next
	// sale.
	Modifier string `json:"modifier,omitempty"`
	Warning  string `json:"warning,omitempty"`
	// PullThru is set when the line sold from has stood long enough to
	// need pulling through.
	PullThru *stockline.PullThruStatus `json:"pullthru,omitempty"`
}

// PayRequest takes or refunds money against the user's transaction.
type PayRequest struct {
	UserID            int64           `json:"-"`
	PayType           string          `json:"paytype"`
	Amount            decimal.Decimal `json:"amount"`
	OriginalPaymentID int64           `json:"original_payment_id,omitempty"`
}

// State is what the register shows a user: their transaction, if any.
type State struct {
	UserID      int64                    `json:"user_id"`
	Transaction *transaction.Transaction `json:"transaction,omitempty"`
	Modifier    string                   `json:"modifier,omitempty"`
}
