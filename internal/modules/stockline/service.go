package stockline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/modules/inventory"
	"github.com/georgemunganga/tillcore/internal/modules/settings"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultPullThruGap = 11 * time.Hour

// Items is the part of the inventory a stockline draws on.
type Items interface {
	GetItem(ctx context.Context, id int64) (*inventory.StockItem, error)
	ItemsOnLine(ctx context.Context, lineID int64) ([]inventory.StockItem, error)
	StockOnSale(ctx context.Context, stockTypeID int64) ([]inventory.StockItem, error)
	RecordWaste(ctx context.Context, req inventory.WasteRequest) (*inventory.StockOut, error)
	FinishItem(ctx context.Context, id int64, finishCode string) error
}

// Settings supplies the tunable pull-through gap.
type Settings interface {
	Duration(ctx context.Context, key string, def time.Duration) time.Duration
}

// Service defines stockline business logic.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*StockLine, error)
	Get(ctx context.Context, id int64) (*StockLine, error)
	List(ctx context.Context, location string) ([]StockLine, error)
	Update(ctx context.Context, id int64, req UpdateRequest) (*StockLine, error)

	// UseStock attaches an item to a line. On a regular line any item
	// already attached is finished with finishCode, or just detached when
	// finishCode is empty.
	UseStock(ctx context.Context, lineID, stockID int64, finishCode string) error
	CalculateSale(ctx context.Context, lineID int64, qty decimal.Decimal) (*Allocation, error)
	// CalculateStockTypeSale resolves a sale bound directly to a stock
	// type as if it were a continuous line.
	CalculateStockTypeSale(ctx context.Context, stockTypeID int64, qty decimal.Decimal) (*Allocation, error)
	RestockPlan(ctx context.Context, lineID int64) ([]Movement, error)
	CommitRestock(ctx context.Context, lineID int64) ([]Movement, error)
	PullThruDue(ctx context.Context, lineID int64) (*PullThruStatus, error)
	RecordPullThru(ctx context.Context, lineID int64) (*inventory.StockOut, error)
}

type service struct {
	repo     Repository
	items    Items
	settings Settings
	clock    clock.Clock
	log      *zap.Logger
}

func NewService(repo Repository, items Items, cfg Settings, clk clock.Clock, log *zap.Logger) Service {
	return &service{repo: repo, items: items, settings: cfg, clock: clk, log: log}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*StockLine, error) {
	sl := &StockLine{
		Name:        strings.TrimSpace(req.Name),
		Location:    strings.TrimSpace(req.Location),
		LineType:    req.LineType,
		StockTypeID: req.StockTypeID,
		Capacity:    req.Capacity,
		PullThru:    req.PullThru,
		Note:        req.Note,
	}
	if err := validate(sl); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sl); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, tillerr.User("a stockline called %q already exists", sl.Name)
		}
		return nil, database.Classify(err)
	}
	return sl, nil
}

func validate(sl *StockLine) error {
	if sl.Name == "" {
		return tillerr.User("stockline name is required")
	}
	if sl.Location == "" {
		return tillerr.User("stockline location is required")
	}
	if sl.Capacity != nil && *sl.Capacity < 1 {
		return tillerr.User("display capacity must be at least one")
	}
	if sl.PullThru != nil && !sl.PullThru.IsPositive() {
		return tillerr.User("pull-through quantity must be greater than zero")
	}
	switch sl.LineType {
	case Regular:
		if sl.Capacity != nil {
			return tillerr.User("regular stocklines do not have a display capacity")
		}
	case Display:
		if sl.Capacity == nil || sl.StockTypeID == nil {
			return tillerr.User("display stocklines need a stock type and a capacity")
		}
	case Continuous:
		if sl.StockTypeID == nil {
			return tillerr.User("continuous stocklines need a stock type")
		}
		if sl.Capacity != nil {
			return tillerr.User("continuous stocklines do not have a display capacity")
		}
	default:
		return tillerr.User("unknown stockline type %q", sl.LineType)
	}
	if sl.LineType != Regular && sl.PullThru != nil {
		return tillerr.User("only regular stocklines can be pulled through")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id int64) (*StockLine, error) {
	sl, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("stockline %d: %w", id, database.Classify(err))
	}
	return sl, nil
}

func (s *service) List(ctx context.Context, location string) ([]StockLine, error) {
	return s.repo.List(ctx, location)
}

// Update edits a stockline. Changing the stock type of a display or
// continuous line detaches everything from it.
func (s *service) Update(ctx context.Context, id int64, req UpdateRequest) (*StockLine, error) {
	sl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	typeChanged := !sameID(sl.StockTypeID, req.StockTypeID)

	sl.Name = strings.TrimSpace(req.Name)
	sl.Location = strings.TrimSpace(req.Location)
	sl.StockTypeID = req.StockTypeID
	sl.Capacity = req.Capacity
	sl.PullThru = req.PullThru
	sl.Note = req.Note
	if err := validate(sl); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sl); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, tillerr.User("a stockline called %q already exists", sl.Name)
		}
		return nil, database.Classify(err)
	}
	if typeChanged && sl.LineType != Regular {
		if err := s.repo.DetachAll(ctx, sl.ID); err != nil {
			return nil, database.Classify(err)
		}
	}
	return sl, nil
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *service) UseStock(ctx context.Context, lineID, stockID int64, finishCode string) error {
	sl, err := s.Get(ctx, lineID)
	if err != nil {
		return err
	}
	if sl.LineType == Continuous {
		return tillerr.User("%s sells all stock on sale and cannot have items attached", sl.Name)
	}
	item, err := s.items.GetItem(ctx, stockID)
	if err != nil {
		return err
	}
	switch {
	case item.IsFinished():
		return tillerr.State("stock item %d is finished", item.ID)
	case !item.Available:
		return tillerr.State("stock item %d has not been checked in", item.ID)
	case item.StockLineID != nil && *item.StockLineID == sl.ID:
		return tillerr.User("stock item %d is already on %s", item.ID, sl.Name)
	case item.StockLineID != nil:
		return tillerr.User("stock item %d is already on sale on another line", item.ID)
	case sl.StockTypeID != nil && *sl.StockTypeID != item.StockTypeID:
		return tillerr.User("stock item %d is the wrong type for %s", item.ID, sl.Name)
	}

	if sl.LineType == Regular {
		current, err := s.items.ItemsOnLine(ctx, sl.ID)
		if err != nil {
			return err
		}
		for _, old := range current {
			if finishCode != "" {
				err = s.items.FinishItem(ctx, old.ID, finishCode)
			} else {
				err = database.Classify(s.repo.Detach(ctx, old.ID))
			}
			if err != nil {
				return err
			}
		}
	}
	if err := s.repo.Attach(ctx, item.ID, sl.ID, s.clock.Now()); err != nil {
		return database.Classify(err)
	}
	s.log.Info("stock attached",
		zap.Int64("stockline", sl.ID), zap.Int64("stock", item.ID), zap.String("finish", finishCode))
	return nil
}

func (s *service) CalculateSale(ctx context.Context, lineID int64, qty decimal.Decimal) (*Allocation, error) {
	sl, err := s.Get(ctx, lineID)
	if err != nil {
		return nil, err
	}
	var alloc Allocation
	switch sl.LineType {
	case Regular:
		items, err := s.items.ItemsOnLine(ctx, sl.ID)
		if err != nil {
			return nil, err
		}
		var item *inventory.StockItem
		if len(items) > 0 {
			item = &items[0]
		}
		alloc = CalculateRegular(item, qty)
	case Display:
		items, err := s.items.ItemsOnLine(ctx, sl.ID)
		if err != nil {
			return nil, err
		}
		alloc = CalculateDisplay(items, qty)
	case Continuous:
		return s.CalculateStockTypeSale(ctx, *sl.StockTypeID, qty)
	default:
		return nil, tillerr.Bug("", "stockline %d has unknown type %q", sl.ID, sl.LineType)
	}
	return &alloc, nil
}

func (s *service) CalculateStockTypeSale(ctx context.Context, stockTypeID int64, qty decimal.Decimal) (*Allocation, error) {
	items, err := s.items.StockOnSale(ctx, stockTypeID)
	if err != nil {
		return nil, err
	}
	alloc := CalculateContinuous(items, qty)
	return &alloc, nil
}

func (s *service) displayLine(ctx context.Context, lineID int64) (*StockLine, []inventory.StockItem, error) {
	sl, err := s.Get(ctx, lineID)
	if err != nil {
		return nil, nil, err
	}
	if sl.LineType != Display {
		return nil, nil, tillerr.User("%s is not a display stockline", sl.Name)
	}
	items, err := s.items.ItemsOnLine(ctx, sl.ID)
	if err != nil {
		return nil, nil, err
	}
	return sl, items, nil
}

func (s *service) RestockPlan(ctx context.Context, lineID int64) ([]Movement, error) {
	sl, items, err := s.displayLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	return PlanRestock(*sl.Capacity, items), nil
}

// CommitRestock recomputes the plan from current data and applies it.
func (s *service) CommitRestock(ctx context.Context, lineID int64) ([]Movement, error) {
	moves, err := s.RestockPlan(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if len(moves) == 0 {
		return nil, nil
	}
	if err := s.repo.ApplyRestock(ctx, moves); err != nil {
		return nil, database.Classify(err)
	}
	s.log.Info("display restocked", zap.Int64("stockline", lineID), zap.Int("movements", len(moves)))
	return moves, nil
}

// PullThruDue reports whether a regular line with a pull-through amount
// has had no sale or pull-through for at least the configured gap.
func (s *service) PullThruDue(ctx context.Context, lineID int64) (*PullThruStatus, error) {
	sl, err := s.Get(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if sl.LineType != Regular || sl.PullThru == nil {
		return &PullThruStatus{}, nil
	}
	items, err := s.items.ItemsOnLine(ctx, sl.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &PullThruStatus{}, nil
	}
	last, err := s.repo.LastActivity(ctx, sl.ID, []string{inventory.RemoveSold, inventory.RemovePullThru})
	if err != nil {
		return nil, database.Classify(err)
	}
	gap := s.settings.Duration(ctx, settings.KeyPullThruGap, defaultPullThruGap)
	due := last == nil || s.clock.Now().Sub(*last) >= gap
	return &PullThruStatus{Due: due, Qty: *sl.PullThru}, nil
}

func (s *service) RecordPullThru(ctx context.Context, lineID int64) (*inventory.StockOut, error) {
	sl, err := s.Get(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if sl.LineType != Regular || sl.PullThru == nil {
		return nil, tillerr.User("%s does not have a pull-through amount", sl.Name)
	}
	items, err := s.items.ItemsOnLine(ctx, sl.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, tillerr.User("there is no stock on sale on %s", sl.Name)
	}
	return s.items.RecordWaste(ctx, inventory.WasteRequest{
		StockID:    items[0].ID,
		Qty:        *sl.PullThru,
		RemoveCode: inventory.RemovePullThru,
	})
}
