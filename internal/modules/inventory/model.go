package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Remove codes recorded on StockOut rows.
const (
	RemoveSold      = "sold"
	RemoveFreebie   = "freebie"
	RemovePullThru  = "pullthru"
	RemoveOutOfDate = "ood"
	RemoveTaster    = "taste"
	RemoveSpill     = "spill"
	RemoveMissing   = "missing"
	RemoveStocktake = "stocktake"
)

// WasteCodes are the remove codes an operator may record directly.
var WasteCodes = []string{RemovePullThru, RemoveOutOfDate, RemoveTaster, RemoveSpill, RemoveFreebie, RemoveMissing}

// Finish codes recorded when an item is finished.
const (
	FinishEmpty     = "empty"
	FinishOutOfDate = "ood"
	FinishStocktake = "stocktake"
	FinishTurned    = "turned"
)

// Delivery is a batch of stock from a supplier. Once checked, its items
// may be sold and it can no longer be changed.
type Delivery struct {
	ID         int64     `db:"id" json:"id"`
	SupplierID int64     `db:"supplierid" json:"supplier_id"`
	DocNumber  *string   `db:"docnumber" json:"docnumber,omitempty"`
	Date       time.Time `db:"date" json:"date"`
	Checked    bool      `db:"checked" json:"checked"`
	AccInfo    *string   `db:"accinfo" json:"accinfo,omitempty"`
}

// DeliveryDetail is a delivery with its items.
type DeliveryDetail struct {
	Delivery
	Items []StockItem `json:"items"`
}

// StockItem is one physical container: a cask, a case, a card of snacks.
// Size and quantities are in base units.
type StockItem struct {
	ID          int64            `db:"id" json:"id"`
	DeliveryID  *int64           `db:"deliveryid" json:"delivery_id,omitempty"`
	StocktakeID *int64           `db:"stocktake" json:"stocktake_id,omitempty"`
	StockTypeID int64            `db:"stocktype" json:"stocktype_id"`
	Description string           `db:"description" json:"description"`
	Size        decimal.Decimal  `db:"size" json:"size"`
	CostPrice   *decimal.Decimal `db:"costprice" json:"costprice,omitempty"`
	OnSale      *time.Time       `db:"onsale" json:"onsale,omitempty"`
	Finished    *time.Time       `db:"finished" json:"finished,omitempty"`
	FinishCode  *string          `db:"finishcode" json:"finishcode,omitempty"`
	BestBefore  *time.Time       `db:"bestbefore" json:"bestbefore,omitempty"`
	StockLineID *int64           `db:"stocklineid" json:"stockline_id,omitempty"`
	DisplayQty  *decimal.Decimal `db:"displayqty" json:"displayqty,omitempty"`

	// Used is the sum of StockOut quantities. Available is true once the
	// owning delivery is checked or the owning stocktake committed.
	Used      decimal.Decimal `db:"used" json:"used"`
	Available bool            `db:"available" json:"available"`
}

// Remaining is size less everything removed.
func (i *StockItem) Remaining() decimal.Decimal {
	return i.Size.Sub(i.Used)
}

// DisplayMark is displayqty, treating an item never put on display as
// having reached exactly what has been used.
func (i *StockItem) DisplayMark() decimal.Decimal {
	if i.DisplayQty == nil {
		return i.Used
	}
	return *i.DisplayQty
}

// OnDisplay is how much of the item is on display and available to sell.
func (i *StockItem) OnDisplay() decimal.Decimal {
	return i.DisplayMark().Sub(i.Used)
}

// InStock is how much of the item is in the back, not yet on display.
func (i *StockItem) InStock() decimal.Decimal {
	return i.Size.Sub(decimal.Max(i.DisplayMark(), i.Used))
}

// IsFinished reports whether the item has been finished.
func (i *StockItem) IsFinished() bool { return i.Finished != nil }

// StockOut records a removal of stock. It belongs to a transaction line
// (sales and voids), a stocktake (adjustments) or neither (waste).
type StockOut struct {
	ID          int64           `db:"id" json:"id"`
	StockID     int64           `db:"stockid" json:"stock_id"`
	Qty         decimal.Decimal `db:"qty" json:"qty"`
	RemoveCode  string          `db:"removecode" json:"removecode"`
	TranslineID *int64          `db:"translineid" json:"transline_id,omitempty"`
	StocktakeID *int64          `db:"stocktake" json:"stocktake_id,omitempty"`
	Time        time.Time       `db:"time" json:"time"`
}

// CreateDeliveryRequest is the payload for a new delivery.
type CreateDeliveryRequest struct {
	SupplierID int64      `json:"supplier_id"`
	DocNumber  *string    `json:"docnumber,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
}

// AddItemsRequest adds Qty items of a stock unit to a delivery. Cost is
// the total for all of them.
type AddItemsRequest struct {
	DeliveryID  int64            `json:"delivery_id"`
	StockTypeID int64            `json:"stocktype_id"`
	StockUnitID int64            `json:"stockunit_id"`
	Qty         int              `json:"qty"`
	Cost        *decimal.Decimal `json:"cost,omitempty"`
	BestBefore  *time.Time       `json:"bestbefore,omitempty"`
}

// WasteRequest records stock removed without a sale.
type WasteRequest struct {
	StockID    int64           `json:"stock_id"`
	Qty        decimal.Decimal `json:"qty"`
	RemoveCode string          `json:"removecode"`
}
