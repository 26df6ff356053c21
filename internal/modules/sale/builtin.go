package sale

import (
	"github.com/georgemunganga/tillcore/internal/modules/keyboard"
	"github.com/georgemunganga/tillcore/internal/modules/stockline"
	"github.com/shopspring/decimal"
)

var (
	two       = decimal.NewFromInt(2)
	four      = decimal.NewFromInt(4)
	ninetyPct = decimal.RequireFromString("0.9")
)

// Builtins returns the modifiers every till has.
func Builtins() []Modifier {
	return []Modifier{noneModifier{}, halfModifier{}, doubleModifier{}, pitcherModifier{}, largeGlassModifier{}}
}

func scale(sale *ProposedSale, qty, price decimal.Decimal) {
	q := sale.Qty.Mul(qty)
	sale.Qty = &q
	if sale.Price != nil {
		p := sale.Price.Mul(price).Round(2)
		sale.Price = &p
	}
}

func isDisplay(sl *stockline.StockLine) bool {
	return sl != nil && sl.LineType == stockline.Display
}

func checkMeasure(sl *stockline.StockLine, sale *ProposedSale, msg string) error {
	if sale.StockType == nil || sale.Qty == nil {
		return incompatible("This modifier can only be used with stock")
	}
	if isDisplay(sl) {
		return incompatible("%s", msg)
	}
	return nil
}

type noneModifier struct{}

func (noneModifier) Name() string { return "none" }

func (noneModifier) StockLine(*stockline.StockLine, *ProposedSale) error { return nil }

func (noneModifier) PLU(*keyboard.PLU, *ProposedSale) error { return nil }

type halfModifier struct{}

func (halfModifier) Name() string { return "half" }

func (halfModifier) StockLine(sl *stockline.StockLine, sale *ProposedSale) error {
	if err := checkMeasure(sl, sale, "You can't sell half of a whole item"); err != nil {
		return err
	}
	half := decimal.RequireFromString("0.5")
	scale(sale, half, half)
	sale.Description = sale.StockType.Format() + " half " + sale.StockType.Unit.SaleUnitName
	return nil
}

func (halfModifier) PLU(*keyboard.PLU, *ProposedSale) error {
	return incompatible("The half modifier can't be used with price lookups")
}

type doubleModifier struct{}

func (doubleModifier) Name() string { return "double" }

func (doubleModifier) StockLine(sl *stockline.StockLine, sale *ProposedSale) error {
	if err := checkMeasure(sl, sale, "Sell two items separately instead of a double"); err != nil {
		return err
	}
	scale(sale, two, two)
	sale.Description = sale.StockType.Format() + " double " + sale.StockType.Unit.SaleUnitName
	return nil
}

func (doubleModifier) PLU(_ *keyboard.PLU, sale *ProposedSale) error {
	if sale.Price != nil {
		p := sale.Price.Mul(two)
		sale.Price = &p
	}
	sale.Description = "Double " + sale.Description
	return nil
}

type pitcherModifier struct{}

func (pitcherModifier) Name() string { return "pitcher" }

func (pitcherModifier) StockLine(sl *stockline.StockLine, sale *ProposedSale) error {
	if err := checkMeasure(sl, sale, "Pitchers can't be sold from a display"); err != nil {
		return err
	}
	scale(sale, four, four.Mul(ninetyPct))
	sale.Description = sale.StockType.Format() + " pitcher"
	return nil
}

func (pitcherModifier) PLU(*keyboard.PLU, *ProposedSale) error {
	return incompatible("The pitcher modifier can only be used with stock")
}

type largeGlassModifier struct{}

func (largeGlassModifier) Name() string { return "largeglass" }

func (largeGlassModifier) StockLine(_ *stockline.StockLine, sale *ProposedSale) error {
	sale.Description += " (large glass)"
	return nil
}

func (largeGlassModifier) PLU(_ *keyboard.PLU, sale *ProposedSale) error {
	sale.Description += " (large glass)"
	return nil
}
