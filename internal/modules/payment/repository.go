package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository defines data access for payment types and payments.
type Repository interface {
	ListPayTypes(ctx context.Context) ([]PayType, error)
	GetPayType(ctx context.Context, paytype string) (*PayType, error)

	GetPayment(ctx context.Context, id int64) (*Payment, error)
	PaymentsFor(ctx context.Context, transID int64) ([]Payment, error)
	// InsertPayments writes the payments and their metadata atomically.
	InsertPayments(ctx context.Context, ps []*Payment) error
	// Complete finishes a pending payment, merging its metadata and
	// adding any extra rows the driver reported.
	Complete(ctx context.Context, p *Payment, extra []*Payment) error
	SetMeta(ctx context.Context, paymentID int64, meta map[string]string) error
	// RefundedAgainst returns the total already refunded against a
	// payment, as a positive amount.
	RefundedAgainst(ctx context.Context, originalID int64) (decimal.Decimal, error)
}
