package payment

import (
	"context"
	"fmt"

	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	metaCheckoutID  = "checkout_id"
	metaCheckoutRef = "checkout_ref"
	metaRefundID    = "refund_id"
	metaCardLast4   = "card_last4"
)

// CardDriver takes card payments through a remote terminal. Payments
// stay pending until the terminal reports an outcome.
type CardDriver struct {
	client *TerminalClient
}

func NewCardDriver(client *TerminalClient) *CardDriver { return &CardDriver{client: client} }

func (*CardDriver) Async() bool           { return true }
func (*CardDriver) RefundSupported() bool { return true }

func (c *CardDriver) Start(ctx context.Context, pt *PayType, req Request) (*Outcome, error) {
	if !req.Amount.IsPositive() {
		return nil, tillerr.User("amount must be greater than 0")
	}
	if req.Amount.GreaterThan(req.Outstanding) {
		return nil, tillerr.User("card payments cannot be more than the amount owed")
	}
	ref := uuid.New()
	co, err := c.client.CreateCheckout(ctx, ref, req.Amount, fmt.Sprintf("Transaction %d", req.TransID))
	if err != nil {
		return nil, tillerr.Integration("the card terminal could not start the payment", err)
	}
	return &Outcome{
		Status: StatusPending,
		Text:   pt.Description + " (waiting for terminal)",
		Meta:   map[string]string{metaCheckoutID: co.ID, metaCheckoutRef: ref.String()},
	}, nil
}

func (c *CardDriver) Refund(ctx context.Context, pt *PayType, req Request, original *Payment) (*Outcome, error) {
	checkoutID := original.Meta[metaCheckoutID]
	if checkoutID == "" {
		return nil, tillerr.User("payment %d was not taken through the terminal", original.ID)
	}
	ref := uuid.New()
	co, err := c.client.CreateRefund(ctx, ref, checkoutID, req.Amount)
	if err != nil {
		return nil, tillerr.Integration("the card terminal could not start the refund", err)
	}
	return &Outcome{
		Status: StatusPending,
		Text:   pt.Description + " refund (waiting for terminal)",
		Meta:   map[string]string{metaRefundID: co.ID, metaCheckoutRef: ref.String()},
	}, nil
}

func (c *CardDriver) Poll(ctx context.Context, pt *PayType, p *Payment) (*Outcome, error) {
	var (
		co     *Checkout
		err    error
		refund = p.Meta[metaRefundID] != ""
	)
	if refund {
		co, err = c.client.GetRefund(ctx, p.Meta[metaRefundID])
	} else {
		co, err = c.client.GetCheckout(ctx, p.Meta[metaCheckoutID])
	}
	if err != nil {
		return nil, tillerr.Integration("the card terminal is not responding", err)
	}

	out := &Outcome{Status: NormaliseStatus(co.Status), Text: p.Text}
	switch out.Status {
	case StatusCancelled:
		out.Text = pt.Description + " cancelled"
		if co.Message != "" {
			out.Text += ": " + co.Message
		}
	case StatusCompleted:
		out.Text = pt.Description
		if co.CardLast4 != "" {
			out.Text += " ****" + co.CardLast4
			out.Meta = map[string]string{metaCardLast4: co.CardLast4}
		}
		out.Amount = co.Captured
		if len(co.Captures) > 1 {
			out.Amount = co.Captures[0].Amount
			for _, extra := range co.Captures[1:] {
				out.Splits = append(out.Splits, Split{
					Amount: signed(extra.Amount, refund),
					Text:   pt.Description + " ****" + extra.CardLast4,
				})
			}
		}
		out.Amount = signed(out.Amount, refund)
	}
	return out, nil
}

func signed(amount decimal.Decimal, refund bool) decimal.Decimal {
	if refund {
		return amount.Abs().Neg()
	}
	return amount
}

func (c *CardDriver) Cancel(ctx context.Context, _ *PayType, p *Payment) error {
	if p.Meta[metaRefundID] != "" {
		return tillerr.User("card refunds cannot be cancelled once started")
	}
	if err := c.client.CancelCheckout(ctx, p.Meta[metaCheckoutID]); err != nil {
		return tillerr.Integration("the card terminal did not accept the cancellation", err)
	}
	return nil
}

func (*CardDriver) Describe(p *Payment) string { return p.Text }

func (*CardDriver) ReceiptDetails(p *Payment) []string {
	var lines []string
	if last4 := p.Meta[metaCardLast4]; last4 != "" {
		lines = append(lines, "Card ending "+last4)
	}
	if ref := p.Meta[metaCheckoutRef]; ref != "" {
		lines = append(lines, "Ref "+ref)
	}
	return lines
}

func (*CardDriver) TotalFields() []string { return []string{"Amount", "Fees"} }

func (*CardDriver) Total(context.Context, *PayType, int64) (decimal.Decimal, decimal.Decimal, bool, error) {
	return decimal.Zero, decimal.Zero, false, nil
}
