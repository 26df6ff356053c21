package vat

import (
	"time"

	"github.com/shopspring/decimal"
)

// Band is a VAT band letter such as "A".
type Band struct {
	Band        string `db:"band" json:"band"`
	Description string `db:"description" json:"description"`
}

// Rate is the percentage rate of a band from Active onwards.
type Rate struct {
	Band     string          `db:"band" json:"band"`
	Active   time.Time       `db:"active" json:"active"`
	Rate     decimal.Decimal `db:"rate" json:"rate"`
	Business int64           `db:"business" json:"business"`
}

var hundred = decimal.NewFromInt(100)

// IncToExc removes VAT from a VAT-inclusive price at this rate.
func (r Rate) IncToExc(inc decimal.Decimal) decimal.Decimal {
	return IncToExc(inc, r.Rate)
}

// IncToVat returns the VAT contained in a VAT-inclusive price.
func (r Rate) IncToVat(inc decimal.Decimal) decimal.Decimal {
	return IncToVat(inc, r.Rate)
}

// ExcToInc adds VAT to a VAT-exclusive price.
func (r Rate) ExcToInc(exc decimal.Decimal) decimal.Decimal {
	return ExcToInc(exc, r.Rate)
}

// IncToExc returns inc / (1 + rate%) rounded to the minor currency unit.
func IncToExc(inc, rate decimal.Decimal) decimal.Decimal {
	return inc.Div(decimal.NewFromInt(1).Add(rate.Div(hundred))).Round(2)
}

// IncToVat is defined as the remainder so that IncToExc(x)+IncToVat(x)
// is exactly x.
func IncToVat(inc, rate decimal.Decimal) decimal.Decimal {
	return inc.Round(2).Sub(IncToExc(inc, rate))
}

// ExcToInc returns exc × (1 + rate%) rounded to the minor currency unit.
func ExcToInc(exc, rate decimal.Decimal) decimal.Decimal {
	return exc.Mul(decimal.NewFromInt(1).Add(rate.Div(hundred))).Round(2)
}
