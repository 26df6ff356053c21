// Package register drives one till terminal: it turns keypresses into
// sales and routes payments, voids and transaction moves to the
// services that own them.
package register

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/modules/catalog"
	"github.com/georgemunganga/tillcore/internal/modules/inventory"
	"github.com/georgemunganga/tillcore/internal/modules/keyboard"
	"github.com/georgemunganga/tillcore/internal/modules/payment"
	"github.com/georgemunganga/tillcore/internal/modules/sale"
	"github.com/georgemunganga/tillcore/internal/modules/settings"
	"github.com/georgemunganga/tillcore/internal/modules/stockline"
	"github.com/georgemunganga/tillcore/internal/modules/transaction"
	"github.com/georgemunganga/tillcore/internal/modules/user"
	"github.com/georgemunganga/tillcore/internal/peripheral"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultModifyAge = 60 * time.Second

type Users interface {
	GetUser(ctx context.Context, id int64) (*user.User, error)
	SignOn(ctx context.Context, id int64, registerID uuid.UUID) (*user.User, error)
	TakeTransaction(ctx context.Context, id, transID int64) error
	OwnerOf(ctx context.Context, transID int64) (*user.User, error)
	PopMessage(ctx context.Context, id int64) (string, error)
}

type Keys interface {
	Resolve(ctx context.Context, keycode, menukey string) (*keyboard.Resolution, error)
	ResolveBarcode(ctx context.Context, code string) (*keyboard.Target, error)
	GetPLU(ctx context.Context, id int64) (*keyboard.PLU, error)
}

type Catalog interface {
	GetDepartment(ctx context.Context, id int64) (*catalog.Department, error)
	Describe(ctx context.Context, id int64) (*catalog.StockTypeInfo, error)
}

type Stock interface {
	ItemsOnLine(ctx context.Context, lineID int64) ([]inventory.StockItem, error)
}

type Lines interface {
	Get(ctx context.Context, id int64) (*stockline.StockLine, error)
	CalculateSale(ctx context.Context, lineID int64, qty decimal.Decimal) (*stockline.Allocation, error)
	CalculateStockTypeSale(ctx context.Context, stockTypeID int64, qty decimal.Decimal) (*stockline.Allocation, error)
	UseStock(ctx context.Context, lineID, stockID int64, finishCode string) error
	PullThruDue(ctx context.Context, lineID int64) (*stockline.PullThruStatus, error)
	RecordPullThru(ctx context.Context, lineID int64) (*inventory.StockOut, error)
}

type Stocktakes interface {
	CheckSaleAllowed(ctx context.Context, stockTypeID int64) error
}

type Transactions interface {
	Create(ctx context.Context, userID int64) (*transaction.Transaction, error)
	Get(ctx context.Context, id int64) (*transaction.Transaction, error)
	AddSale(ctx context.Context, req transaction.SaleRequest) (*transaction.Line, error)
	IncrementLine(ctx context.Context, transID, lineID, by int64) (*transaction.Line, error)
	VoidLines(ctx context.Context, transID int64, lineIDs []int64, userID int64) (*transaction.VoidResult, error)
	Defer(ctx context.Context, id, userID int64, refundPayType string) (*transaction.DeferResult, error)
	Merge(ctx context.Context, fromID, intoID, userID int64) (*transaction.Transaction, error)
	Split(ctx context.Context, id int64, lineIDs []int64, notes string, userID int64) (*transaction.Transaction, error)
	ConvertToFreeDrinks(ctx context.Context, id, userID int64) error
	Cancel(ctx context.Context, id, userID int64) error
	ListRecallable(ctx context.Context) ([]transaction.Summary, error)
}

type Payments interface {
	StartPayment(ctx context.Context, req payment.Request) (*payment.Result, error)
	StartRefund(ctx context.Context, req payment.Request) (*payment.Result, error)
	ChangePayType(ctx context.Context) (string, error)
}

type Settings interface {
	Duration(ctx context.Context, key string, def time.Duration) time.Duration
}

// Deps are the services a register composes.
type Deps struct {
	Users        Users
	Keys         Keys
	Catalog      Catalog
	Stock        Stock
	Lines        Lines
	Stocktakes   Stocktakes
	Modifiers    *sale.Registry
	Transactions Transactions
	Payments     Payments
	Settings     Settings
	Printer      peripheral.Printer
	Clock        clock.Clock
	Log          *zap.Logger
}

// Register is one terminal. Its operations run one at a time.
type Register struct {
	mu  sync.Mutex
	id  uuid.UUID
	d   Deps
	log *zap.Logger

	// modifier applies to the next sale keypress.
	modifier string
}

func New(id uuid.UUID, d Deps) *Register {
	return &Register{id: id, d: d, log: d.Log.With(zap.String("register", id.String()))}
}

func (r *Register) ID() uuid.UUID { return r.id }

// SignOn attaches a user to this register.
func (r *Register) SignOn(ctx context.Context, userID int64) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.d.Users.SignOn(ctx, userID, r.id); err != nil {
		return nil, err
	}
	r.modifier = ""
	return r.state(ctx, userID)
}

// State returns the user's current transaction.
func (r *Register) State(ctx context.Context, userID int64) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state(ctx, userID)
}

func (r *Register) state(ctx context.Context, userID int64) (*State, error) {
	u, err := r.d.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	st := &State{UserID: userID, Modifier: r.modifier}
	if u.TransactionID != nil {
		if st.Transaction, err = r.d.Transactions.Get(ctx, *u.TransactionID); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Message delivers and clears any message queued for the user.
func (r *Register) Message(ctx context.Context, userID int64) (string, error) {
	return r.d.Users.PopMessage(ctx, userID)
}

func (r *Register) require(u *user.User, perm, action string) error {
	if !u.HasPermission(perm) {
		return tillerr.User("%s is not allowed to %s", u.Fullname, action)
	}
	return nil
}

// current returns the user's transaction, starting one when create is
// set and they have none.
func (r *Register) current(ctx context.Context, u *user.User, create bool) (*transaction.Transaction, error) {
	if u.TransactionID != nil {
		return r.d.Transactions.Get(ctx, *u.TransactionID)
	}
	if !create {
		return nil, tillerr.User("%s has no transaction", u.Fullname)
	}
	t, err := r.d.Transactions.Create(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	now := r.d.Clock.Now()
	u.TransactionID, u.TransSince = &t.ID, &now
	return t, nil
}

// proposal is a sale built from a key, ready to be written.
type proposal struct {
	sale     *sale.ProposedSale
	deptID   int64
	dept     *catalog.Department
	draws    []transaction.StockDraw
	source   string
	modifier string
	openPLU  bool
	warning  string
	pullThru *stockline.PullThruStatus
}

// Sell handles a keypress or barcode scan.
func (r *Register) Sell(ctx context.Context, req SellRequest) (*SellResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.Items == 0 {
		req.Items = 1
	}
	u, err := r.d.Users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	var target *keyboard.Target
	if req.Barcode != "" {
		if target, err = r.d.Keys.ResolveBarcode(ctx, req.Barcode); err != nil {
			return nil, err
		}
	} else {
		res, err := r.d.Keys.Resolve(ctx, req.Keycode, req.Menukey)
		if err != nil {
			return nil, err
		}
		if res.Target == nil {
			return &SellResult{Choices: res.Choices}, nil
		}
		target = res.Target
	}
	if target.Kind == keyboard.TargetModifier {
		r.modifier = target.Modifier
		return &SellResult{Modifier: target.Modifier}, nil
	}

	// A pending modifier replaces the one on the key and is used up
	// whether or not the sale goes through.
	modifier := target.Modifier
	if r.modifier != "" {
		modifier, r.modifier = r.modifier, ""
	}

	p, err := r.propose(ctx, target, modifier, req.Items)
	if err != nil {
		return nil, err
	}
	if err := r.price(u, p, req.Price); err != nil {
		return nil, err
	}

	t, err := r.current(ctx, u, true)
	if err != nil {
		return nil, err
	}
	res := &SellResult{TransID: t.ID, Warning: p.warning, PullThru: p.pullThru}

	if prev := r.repeatCandidate(ctx, u, t, p, req.Items); prev != nil {
		l, err := r.d.Transactions.IncrementLine(ctx, t.ID, prev.ID, req.Items)
		if err != nil {
			return nil, err
		}
		res.Line, res.Repeat = l, true
		return res, nil
	}

	l, err := r.d.Transactions.AddSale(ctx, transaction.SaleRequest{
		TransID:  t.ID,
		UserID:   u.ID,
		Items:    req.Items,
		Amount:   *p.sale.Price,
		DeptID:   p.deptID,
		Text:     p.sale.Description,
		Source:   p.source,
		Modifier: p.modifier,
		Stock:    p.draws,
	})
	if err != nil {
		return nil, err
	}
	res.Line = l
	r.log.Debug("sold", zap.Int64("trans", t.ID), zap.String("text", l.Text), zap.Int64("items", l.Items))
	return res, nil
}

// propose builds the sale for a target and allocates its stock.
func (r *Register) propose(ctx context.Context, target *keyboard.Target, modifier string, items int64) (*proposal, error) {
	p := &proposal{source: target.Source, modifier: modifier}
	switch target.Kind {
	case keyboard.TargetPLU:
		plu, err := r.d.Keys.GetPLU(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		p.sale = sale.FromPLU(plu)
		p.deptID = plu.DeptID
		p.openPLU = plu.Price == nil
		if err := r.d.Modifiers.ApplyPLU(modifier, plu, p.sale); err != nil {
			return nil, err
		}

	case keyboard.TargetStockLine:
		sl, err := r.d.Lines.Get(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		stockTypeID, err := r.lineStockType(ctx, sl)
		if err != nil {
			return nil, err
		}
		info, err := r.stockType(ctx, stockTypeID)
		if err != nil {
			return nil, err
		}
		p.sale = sale.FromStockType(info, sl.LineType == stockline.Display)
		if err := r.d.Modifiers.ApplyStockLine(modifier, sl, p.sale); err != nil {
			return nil, err
		}
		if err := r.allocate(ctx, p, items, sl.Name, func(qty decimal.Decimal) (*stockline.Allocation, error) {
			return r.d.Lines.CalculateSale(ctx, sl.ID, qty)
		}); err != nil {
			return nil, err
		}
		if sl.LineType == stockline.Regular {
			st, err := r.d.Lines.PullThruDue(ctx, sl.ID)
			if err != nil {
				return nil, err
			}
			if st.Due {
				p.pullThru = st
			}
		}

	case keyboard.TargetStockType:
		info, err := r.stockType(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		p.sale = sale.FromStockType(info, false)
		if err := r.d.Modifiers.ApplyStockLine(modifier, nil, p.sale); err != nil {
			return nil, err
		}
		if err := r.allocate(ctx, p, items, info.Format(), func(qty decimal.Decimal) (*stockline.Allocation, error) {
			return r.d.Lines.CalculateStockTypeSale(ctx, info.ID, qty)
		}); err != nil {
			return nil, err
		}

	default:
		return nil, tillerr.Bug("", "unknown key target %q", target.Kind)
	}
	if p.sale.StockType != nil {
		p.deptID = p.sale.StockType.DeptID
		p.dept = &p.sale.StockType.Department
	}
	if p.dept == nil {
		dept, err := r.d.Catalog.GetDepartment(ctx, p.deptID)
		if err != nil {
			return nil, err
		}
		p.dept = dept
	}
	return p, nil
}

// lineStockType is what a stockline sells now. Regular lines sell
// whatever item is attached.
func (r *Register) lineStockType(ctx context.Context, sl *stockline.StockLine) (int64, error) {
	if sl.StockTypeID != nil {
		return *sl.StockTypeID, nil
	}
	items, err := r.d.Stock.ItemsOnLine(ctx, sl.ID)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, tillerr.User("there is no stock on %s; use Use Stock to put some on sale", sl.Name)
	}
	return items[0].StockTypeID, nil
}

func (r *Register) stockType(ctx context.Context, id int64) (*catalog.StockTypeInfo, error) {
	if err := r.d.Stocktakes.CheckSaleAllowed(ctx, id); err != nil {
		return nil, err
	}
	return r.d.Catalog.Describe(ctx, id)
}

func (r *Register) allocate(ctx context.Context, p *proposal, items int64, name string,
	calc func(decimal.Decimal) (*stockline.Allocation, error)) error {
	if items < 0 {
		return tillerr.User("stock sales cannot be negative; void the original line instead")
	}
	n := decimal.NewFromInt(items)
	alloc, err := calc(p.sale.Qty.Mul(n))
	if err != nil {
		return err
	}
	if alloc.Unallocated.IsPositive() || len(alloc.Assignments) == 0 {
		return tillerr.User("there is not enough stock on %s; use Use Stock to put more on sale", name)
	}
	for _, a := range alloc.Assignments {
		p.draws = append(p.draws, transaction.StockDraw{StockID: a.Item.ID, Qty: a.Qty})
	}
	if alloc.Remaining.IsNegative() {
		p.warning = fmt.Sprintf("%s is showing %s less stock than has been sold", name, alloc.Remaining.Neg().String())
	}
	return nil
}

// price settles the per-item price, applying an operator override.
func (r *Register) price(u *user.User, p *proposal, override *decimal.Decimal) error {
	if override != nil {
		perm, action := user.PermOverridePrice, "override prices"
		if p.openPLU {
			perm, action = user.PermOpenPrice, "sell open-price items"
		}
		if err := r.require(u, perm, action); err != nil {
			return err
		}
		// Stock given away is recorded as waste, not sold at zero.
		if override.IsZero() {
			return tillerr.User("zero-priced sales are not allowed; record the stock as waste instead")
		}
		price := *override
		p.sale.Price = &price
	}
	if p.sale.Price == nil {
		return tillerr.User("%s needs a price", p.sale.Description)
	}
	return p.dept.CheckPrice(*p.sale.Price)
}

// repeatCandidate returns the last line of the transaction when this
// sale repeats it closely enough to be counted on the same line.
func (r *Register) repeatCandidate(ctx context.Context, u *user.User, t *transaction.Transaction, p *proposal, items int64) *transaction.Line {
	if len(t.Lines) == 0 || items <= 0 {
		return nil
	}
	last := &t.Lines[len(t.Lines)-1]
	age := r.d.Settings.Duration(ctx, settings.KeyMaxTranslineModifyAge, defaultModifyAge)
	switch {
	case !last.Voidable() || last.Items <= 0:
		return nil
	case last.UserID == nil || *last.UserID != u.ID:
		return nil
	case u.TransSince == nil || last.Time.Before(*u.TransSince):
		return nil
	case r.d.Clock.Now().Sub(last.Time) >= age:
		return nil
	case value(last.Source) != p.source || value(last.Modifier) != p.modifier:
		return nil
	case !last.Amount.Equal(*p.sale.Price) || last.DeptID != p.deptID || last.Text != p.sale.Description:
		return nil
	}
	if len(p.draws) != len(last.StockOut) || len(p.draws) > 1 {
		return nil
	}
	if len(p.draws) == 1 {
		// Same quantity per item, compared without dividing.
		so, draw := last.StockOut[0], p.draws[0]
		if so.StockID != draw.StockID || !so.Qty.Mul(decimal.NewFromInt(items)).Equal(draw.Qty.Mul(decimal.NewFromInt(last.Items))) {
			return nil
		}
	}
	return last
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
