// Package sale builds proposed sales and applies modifiers to them.
package sale

import (
	"fmt"

	"github.com/georgemunganga/tillcore/internal/modules/catalog"
	"github.com/georgemunganga/tillcore/internal/modules/keyboard"
	"github.com/shopspring/decimal"
)

// ProposedSale is a sale being built before it is written to a
// transaction. Qty is base units per item and is set exactly when
// StockType is.
type ProposedSale struct {
	Description string                 `json:"description"`
	Price       *decimal.Decimal       `json:"price,omitempty"`
	Qty         *decimal.Decimal       `json:"qty,omitempty"`
	StockType   *catalog.StockTypeInfo `json:"stocktype,omitempty"`
	WholeItems  bool                   `json:"whole_items"`
}

// FromStockType proposes one sale unit of a stock type at its sale price.
func FromStockType(info *catalog.StockTypeInfo, wholeItems bool) *ProposedSale {
	qty := info.Unit.BaseUnitsPerSaleUnit
	return &ProposedSale{
		Description: info.SaleDescription(),
		Price:       info.SalePrice,
		Qty:         &qty,
		StockType:   info,
		WholeItems:  wholeItems,
	}
}

// FromPLU proposes a price lookup at its price, which may be unset.
func FromPLU(plu *keyboard.PLU) *ProposedSale {
	return &ProposedSale{Description: plu.Description, Price: plu.Price}
}

// Validate checks the sale is well formed.
func (s *ProposedSale) Validate() error {
	if s.Description == "" {
		return fmt.Errorf("sale has no description")
	}
	if (s.StockType == nil) != (s.Qty == nil) {
		return fmt.Errorf("sale quantity must be set exactly when it sells stock")
	}
	if s.Qty != nil {
		if !s.Qty.IsPositive() {
			return fmt.Errorf("sale quantity %s is not positive", s.Qty)
		}
		if s.WholeItems && !s.Qty.Equal(s.Qty.Truncate(0)) {
			return fmt.Errorf("sale quantity %s is not a whole number of items", s.Qty)
		}
	}
	if s.Price != nil && s.Price.IsNegative() {
		return fmt.Errorf("sale price %s is negative", s.Price)
	}
	return nil
}

// Incompatible is returned by a modifier that cannot apply to a sale.
type Incompatible struct{ Message string }

func (e *Incompatible) Error() string { return e.Message }

func incompatible(format string, args ...interface{}) error {
	return &Incompatible{Message: fmt.Sprintf(format, args...)}
}
