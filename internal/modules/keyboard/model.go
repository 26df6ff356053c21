package keyboard

import "github.com/shopspring/decimal"

// PLU is a saleable item not backed by stock. A nil price means the
// operator must enter one.
type PLU struct {
	ID          int64            `db:"id" json:"id"`
	Description string           `db:"description" json:"description"`
	Note        string           `db:"note" json:"note"`
	DeptID      int64            `db:"dept" json:"dept_id"`
	Price       *decimal.Decimal `db:"price" json:"price,omitempty"`
}

// Binding maps a key, and a menu key when the key has several bindings,
// to what it sells. At most one of the targets is set; none is set only
// for a modifier key.
type Binding struct {
	ID          int64   `db:"id" json:"id"`
	Keycode     string  `db:"keycode" json:"keycode"`
	Menukey     string  `db:"menukey" json:"menukey"`
	StockLineID *int64  `db:"stocklineid" json:"stockline_id,omitempty"`
	PLUID       *int64  `db:"pluid" json:"plu_id,omitempty"`
	StockTypeID *int64  `db:"stocktype" json:"stocktype_id,omitempty"`
	Modifier    *string `db:"modifier" json:"modifier,omitempty"`
}

type Barcode struct {
	Barcode     string  `db:"barcode" json:"barcode"`
	StockLineID *int64  `db:"stocklineid" json:"stockline_id,omitempty"`
	PLUID       *int64  `db:"pluid" json:"plu_id,omitempty"`
	StockTypeID *int64  `db:"stocktype" json:"stocktype_id,omitempty"`
	Modifier    *string `db:"modifier" json:"modifier,omitempty"`
}

type Keycap struct {
	Keycode  string `db:"keycode" json:"keycode"`
	Keycap   string `db:"keycap" json:"keycap"`
	CSSClass string `db:"css_class" json:"css_class"`
}

// TargetKind says what a resolved key sells.
type TargetKind string

const (
	TargetStockLine TargetKind = "stockline"
	TargetPLU       TargetKind = "plu"
	TargetStockType TargetKind = "stocktype"
	// TargetModifier only sets the modifier for the next keypress.
	TargetModifier TargetKind = "modifier"
)

// Target is the outcome of resolving a key or barcode. Source identifies
// the key or barcode for repeat detection.
type Target struct {
	Kind     TargetKind `json:"kind"`
	ID       int64      `json:"id,omitempty"`
	Modifier string     `json:"modifier,omitempty"`
	Source   string     `json:"source"`
}

// Resolution is either a single target or, for a key with several
// bindings and no menu key given, the choices to offer.
type Resolution struct {
	Target  *Target   `json:"target,omitempty"`
	Choices []Binding `json:"choices,omitempty"`
}

type targets struct {
	stockline, plu, stocktype *int64
	modifier                  *string
}

func (t targets) validate() bool {
	n := 0
	for _, id := range []*int64{t.stockline, t.plu, t.stocktype} {
		if id != nil {
			n++
		}
	}
	return n == 1 || (n == 0 && t.modifier != nil && *t.modifier != "")
}

func (t targets) resolve(source string) *Target {
	tgt := &Target{Source: source}
	if t.modifier != nil {
		tgt.Modifier = *t.modifier
	}
	switch {
	case t.stockline != nil:
		tgt.Kind, tgt.ID = TargetStockLine, *t.stockline
	case t.plu != nil:
		tgt.Kind, tgt.ID = TargetPLU, *t.plu
	case t.stocktype != nil:
		tgt.Kind, tgt.ID = TargetStockType, *t.stocktype
	default:
		tgt.Kind = TargetModifier
	}
	return tgt
}

func (b *Binding) targets() targets {
	return targets{b.StockLineID, b.PLUID, b.StockTypeID, b.Modifier}
}

func (b *Barcode) targets() targets {
	return targets{b.StockLineID, b.PLUID, b.StockTypeID, b.Modifier}
}
