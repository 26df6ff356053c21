package payment

import (
	"context"

	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/shopspring/decimal"
)

// CashDriver takes cash synchronously, giving change from the drawer.
type CashDriver struct{}

func NewCashDriver() *CashDriver { return &CashDriver{} }

func (*CashDriver) Async() bool           { return false }
func (*CashDriver) RefundSupported() bool { return true }

func (*CashDriver) Start(_ context.Context, pt *PayType, req Request) (*Outcome, error) {
	if !req.Amount.IsPositive() {
		return nil, tillerr.User("amount must be greater than 0")
	}
	out := &Outcome{Status: StatusCompleted, Amount: req.Amount, Text: pt.Description, Kickout: true}
	if req.Amount.GreaterThan(req.Outstanding) {
		out.Change = req.Amount.Sub(req.Outstanding)
	}
	return out, nil
}

func (*CashDriver) Refund(_ context.Context, pt *PayType, req Request, _ *Payment) (*Outcome, error) {
	return &Outcome{
		Status:  StatusCompleted,
		Amount:  req.Amount.Neg(),
		Text:    pt.Description + " refund",
		Kickout: true,
	}, nil
}

func (*CashDriver) Poll(_ context.Context, _ *PayType, p *Payment) (*Outcome, error) {
	return &Outcome{Status: StatusCompleted, Amount: p.Amount, Text: p.Text}, nil
}

func (*CashDriver) Cancel(context.Context, *PayType, *Payment) error { return nil }

func (*CashDriver) Describe(p *Payment) string { return p.Text }

func (*CashDriver) ReceiptDetails(*Payment) []string { return nil }

func (*CashDriver) TotalFields() []string { return []string{"Amount"} }

func (*CashDriver) Total(context.Context, *PayType, int64) (decimal.Decimal, decimal.Decimal, bool, error) {
	return decimal.Zero, decimal.Zero, false, nil
}
