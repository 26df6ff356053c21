package payment

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Driver is the interface every payment method adapter implements. To add
// a payment method, implement this interface and register it under the
// name used in paytypes.driver_name.
type Driver interface {
	// Async drivers get a pending payment row before Start or Refund is
	// called and finish it through Poll.
	Async() bool
	RefundSupported() bool

	Start(ctx context.Context, pt *PayType, req Request) (*Outcome, error)
	Refund(ctx context.Context, pt *PayType, req Request, original *Payment) (*Outcome, error)
	Poll(ctx context.Context, pt *PayType, p *Payment) (*Outcome, error)
	// Cancel asks the remote end to stop. The payment stays pending
	// until Poll reports the cancellation.
	Cancel(ctx context.Context, pt *PayType, p *Payment) error

	Describe(p *Payment) string
	ReceiptDetails(p *Payment) []string
	// TotalFields names the end-of-day figures entered by hand.
	TotalFields() []string
	// Total reports the session total if the driver can work it out,
	// with ok false if it must be entered by hand.
	Total(ctx context.Context, pt *PayType, sessionID int64) (amount, fees decimal.Decimal, ok bool, err error)
}

// DriverRegistry maps driver names to their implementations.
type DriverRegistry map[string]Driver

func (r DriverRegistry) driver(pt *PayType) (Driver, error) {
	d, ok := r[pt.DriverName]
	if !ok {
		return nil, fmt.Errorf("no driver registered for payment type %s (%s)", pt.PayType, pt.DriverName)
	}
	return d, nil
}

// Names returns the registered driver names in order.
func (r DriverRegistry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
