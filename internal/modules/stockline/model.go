package stockline

import (
	"github.com/georgemunganga/tillcore/internal/modules/inventory"
	"github.com/shopspring/decimal"
)

// LineType selects how a stockline finds the stock it sells.
type LineType string

const (
	// Regular lines sell from a single attached item, such as a cask on
	// a beer engine.
	Regular LineType = "regular"
	// Display lines sell whole items from what has been moved onto
	// display, such as bottles in a fridge.
	Display LineType = "display"
	// Continuous lines sell from all stock of a type that is on sale but
	// not attached anywhere, such as wine by the glass.
	Continuous LineType = "continuous"
)

// StockLine is the durable target of a till key.
type StockLine struct {
	ID          int64            `db:"id" json:"id"`
	Name        string           `db:"name" json:"name"`
	Location    string           `db:"location" json:"location"`
	LineType    LineType         `db:"linetype" json:"linetype"`
	StockTypeID *int64           `db:"stocktype" json:"stocktype_id,omitempty"`
	Capacity    *int64           `db:"capacity" json:"capacity,omitempty"`
	PullThru    *decimal.Decimal `db:"pullthru" json:"pullthru,omitempty"`
	Note        string           `db:"note" json:"note"`
}

// Assignment is a quantity in base units drawn from one stock item.
type Assignment struct {
	Item inventory.StockItem `json:"item"`
	Qty  decimal.Decimal     `json:"qty"`
}

// Allocation is the result of resolving a sale against a stockline.
// Assignments sum to the requested quantity less Unallocated. Remaining
// is what the line has left to sell afterwards and may be negative for
// regular and continuous lines.
type Allocation struct {
	Assignments []Assignment    `json:"assignments"`
	Unallocated decimal.Decimal `json:"unallocated"`
	Remaining   decimal.Decimal `json:"remaining"`
}

// Movement moves stock of one item onto display.
type Movement struct {
	Item          inventory.StockItem `json:"item"`
	Move          decimal.Decimal     `json:"move"`
	NewDisplayQty decimal.Decimal     `json:"new_displayqty"`
}

// CreateRequest is the payload for a new stockline.
type CreateRequest struct {
	Name        string           `json:"name"`
	Location    string           `json:"location"`
	LineType    LineType         `json:"linetype"`
	StockTypeID *int64           `json:"stocktype_id,omitempty"`
	Capacity    *int64           `json:"capacity,omitempty"`
	PullThru    *decimal.Decimal `json:"pullthru,omitempty"`
	Note        string           `json:"note,omitempty"`
}

// UpdateRequest changes a stockline. The line type cannot change.
type UpdateRequest struct {
	Name        string           `json:"name"`
	Location    string           `json:"location"`
	StockTypeID *int64           `json:"stocktype_id,omitempty"`
	Capacity    *int64           `json:"capacity,omitempty"`
	PullThru    *decimal.Decimal `json:"pullthru,omitempty"`
	Note        string           `json:"note"`
}

// PullThruStatus says whether a regular line has sat idle long enough to
// need pulling through before the next sale.
type PullThruStatus struct {
	Due bool            `json:"due"`
	Qty decimal.Decimal `json:"qty"`
}
