package catalog

import (
	"fmt"
	"time"

	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/shopspring/decimal"
)

// Department is a sales category with a VAT band and optional bounds on
// the price and ABV of what is sold in it.
type Department struct {
	ID          int64            `db:"id" json:"id"`
	Description string           `db:"description" json:"description"`
	VatBand     string           `db:"vatband" json:"vatband"`
	Notes       *string          `db:"notes" json:"notes,omitempty"`
	MinPrice    *decimal.Decimal `db:"minprice" json:"minprice,omitempty"`
	MaxPrice    *decimal.Decimal `db:"maxprice" json:"maxprice,omitempty"`
	MinABV      *decimal.Decimal `db:"minabv" json:"minabv,omitempty"`
	MaxABV      *decimal.Decimal `db:"maxabv" json:"maxabv,omitempty"`
}

// CheckPrice rejects a per-item price outside the department's range.
func (d *Department) CheckPrice(price decimal.Decimal) error {
	if d.MinPrice != nil && price.LessThan(*d.MinPrice) {
		return tillerr.User("price %s is below the minimum of %s for %s", price.StringFixed(2), d.MinPrice.StringFixed(2), d.Description)
	}
	if d.MaxPrice != nil && price.GreaterThan(*d.MaxPrice) {
		return tillerr.User("price %s is above the maximum of %s for %s", price.StringFixed(2), d.MaxPrice.StringFixed(2), d.Description)
	}
	return nil
}

// CheckABV rejects an ABV outside the department's range. A department
// with an ABV range requires the ABV to be known.
func (d *Department) CheckABV(abv *decimal.Decimal) error {
	if d.MinABV == nil && d.MaxABV == nil {
		return nil
	}
	if abv == nil {
		return tillerr.User("stock sold in %s must have an ABV", d.Description)
	}
	if d.MinABV != nil && abv.LessThan(*d.MinABV) {
		return tillerr.User("ABV %s%% is below the minimum of %s%% for %s", abv.String(), d.MinABV.String(), d.Description)
	}
	if d.MaxABV != nil && abv.GreaterThan(*d.MaxABV) {
		return tillerr.User("ABV %s%% is above the maximum of %s%% for %s", abv.String(), d.MaxABV.String(), d.Description)
	}
	return nil
}

// Unit names the three scales a kind of stock is counted in. All
// arithmetic is in base units.
type Unit struct {
	ID                    int64           `db:"id" json:"id"`
	Description           string          `db:"description" json:"description"`
	BaseUnit              string          `db:"base_unit" json:"base_unit"`
	SaleUnitName          string          `db:"sale_unit_name" json:"sale_unit_name"`
	SaleUnitNamePlural    string          `db:"sale_unit_name_plural" json:"sale_unit_name_plural"`
	BaseUnitsPerSaleUnit  decimal.Decimal `db:"base_units_per_sale_unit" json:"base_units_per_sale_unit"`
	StockUnitName         string          `db:"stock_unit_name" json:"stock_unit_name"`
	StockUnitNamePlural   string          `db:"stock_unit_name_plural" json:"stock_unit_name_plural"`
	BaseUnitsPerStockUnit decimal.Decimal `db:"base_units_per_stock_unit" json:"base_units_per_stock_unit"`
	StocktakeByItems      bool            `db:"stocktake_by_items" json:"stocktake_by_items"`
}

var singularTolerance = decimal.RequireFromString("0.05")

// Format renders a quantity in base units at the largest scale it
// reaches: base units below one sale unit, sale units below one stock
// unit, and stock units otherwise.
func (u *Unit) Format(qty decimal.Decimal) string {
	abs := qty.Abs()
	switch {
	case abs.LessThan(u.BaseUnitsPerSaleUnit):
		return fmt.Sprintf("%s %s", qty.Round(1).String(), u.BaseUnit)
	case abs.LessThan(u.BaseUnitsPerStockUnit):
		return scaled(qty, u.BaseUnitsPerSaleUnit, u.SaleUnitName, u.SaleUnitNamePlural)
	default:
		return scaled(qty, u.BaseUnitsPerStockUnit, u.StockUnitName, u.StockUnitNamePlural)
	}
}

func scaled(qty, per decimal.Decimal, singular, plural string) string {
	n := qty.Div(per)
	name := plural
	if n.Abs().Sub(decimal.NewFromInt(1)).Abs().LessThan(singularTolerance) {
		name = singular
	}
	return fmt.Sprintf("%s %s", n.Round(1).String(), name)
}

// StockUnit is a size stock can be bought in, such as a firkin.
type StockUnit struct {
	ID          int64           `db:"id" json:"id"`
	Description string          `db:"description" json:"description"`
	UnitID      int64           `db:"unit" json:"unit_id"`
	Size        decimal.Decimal `db:"size" json:"size"`
	// Merge allows several identical items delivered together to be
	// recorded as one item.
	Merge bool `db:"merge" json:"merge"`
}

// StockType is a product. The sale price is per sale unit of its Unit.
type StockType struct {
	ID           int64            `db:"id" json:"id"`
	DeptID       int64            `db:"dept" json:"dept_id"`
	Manufacturer string           `db:"manufacturer" json:"manufacturer"`
	Name         string           `db:"name" json:"name"`
	Shortname    string           `db:"shortname" json:"shortname"`
	ABV          *decimal.Decimal `db:"abv" json:"abv,omitempty"`
	UnitID       int64            `db:"unit" json:"unit_id"`
	SalePrice    *decimal.Decimal `db:"saleprice" json:"saleprice,omitempty"`
	PriceChanged *time.Time       `db:"pricechanged" json:"pricechanged,omitempty"`
	StocktakeID  *int64           `db:"stocktake" json:"stocktake_id,omitempty"`
	Archived     bool             `db:"archived" json:"archived"`
}

// Format is the name used on receipts and transaction lines.
func (st *StockType) Format() string {
	return st.Manufacturer + " " + st.Name
}

// StockTypeInfo is a stock type with its unit and department loaded.
type StockTypeInfo struct {
	StockType
	Unit       Unit       `json:"unit"`
	Department Department `json:"department"`
}

// SaleDescription is the transaction line text for one sale unit.
func (info *StockTypeInfo) SaleDescription() string {
	return info.Format() + " " + info.Unit.SaleUnitName
}

// StockTypeKey identifies a stock type exactly.
type StockTypeKey struct {
	DeptID       int64            `json:"dept_id"`
	Manufacturer string           `json:"manufacturer"`
	Name         string           `json:"name"`
	Shortname    string           `json:"shortname"`
	ABV          *decimal.Decimal `json:"abv,omitempty"`
	UnitID       int64            `json:"unit_id"`
}

// CreateStockTypeRequest is the payload for a new stock type.
type CreateStockTypeRequest struct {
	StockTypeKey
	SalePrice *decimal.Decimal `json:"saleprice,omitempty"`
}
