package stocktake

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/modules/eventlog"
	"github.com/georgemunganga/tillcore/internal/modules/inventory"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errScopeConflict = errors.New("stock type belongs to another stocktake")

// EventLog records stocktake transitions.
type EventLog interface {
	Log(ctx context.Context, e eventlog.Entry) error
}

// Service defines stocktake business logic.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*StockTake, error)
	Get(ctx context.Context, id int64) (*Detail, error)
	List(ctx context.Context, uncommittedOnly bool) ([]StockTake, error)
	SetScope(ctx context.Context, id int64, stockTypeIDs []int64) error
	Start(ctx context.Context, id int64) error
	Adjust(ctx context.Context, id int64, req AdjustRequest) error
	SetFinishCode(ctx context.Context, id, stockID int64, code *string) error
	AddItem(ctx context.Context, id int64, req AddItemRequest) (*inventory.StockItem, error)
	Commit(ctx context.Context, id int64, userID *int64) error
	Abandon(ctx context.Context, id int64) error

	// CheckSaleAllowed fails while the stock type is being counted.
	CheckSaleAllowed(ctx context.Context, stockTypeID int64) error
}

type service struct {
	repo   Repository
	events EventLog
	clock  clock.Clock
	log    *zap.Logger
}

func NewService(repo Repository, events EventLog, clk clock.Clock, log *zap.Logger) Service {
	return &service{repo: repo, events: events, clock: clk, log: log}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*StockTake, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, tillerr.User("stocktake description is required")
	}
	st := &StockTake{Description: desc, CreateTime: s.clock.Now(), CreateUser: req.UserID}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, database.Classify(err)
	}
	return st, nil
}

func (s *service) get(ctx context.Context, id int64) (*StockTake, error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("stocktake %d: %w", id, database.Classify(err))
	}
	return st, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Detail, error) {
	st, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	scope, err := s.repo.Scope(ctx, id)
	if err != nil {
		return nil, err
	}
	snaps, err := s.repo.Snapshots(ctx, id)
	if err != nil {
		return nil, err
	}
	adjs, err := s.repo.Adjustments(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{StockTake: *st, Status: st.State(), Scope: scope, Items: count(snaps, adjs)}, nil
}

// count pairs snapshots with their adjustments. Counted is the baseline
// less every adjustment.
func count(snaps []Snapshot, adjs []Adjustment) []ItemCount {
	byStock := make(map[int64][]Adjustment)
	for _, a := range adjs {
		byStock[a.StockID] = append(byStock[a.StockID], a)
	}
	items := make([]ItemCount, 0, len(snaps))
	for _, snap := range snaps {
		ic := ItemCount{Snapshot: snap, Adjustments: byStock[snap.StockID], Counted: snap.Qty}
		for _, a := range ic.Adjustments {
			ic.Counted = ic.Counted.Sub(a.Qty)
		}
		items = append(items, ic)
	}
	return items
}

func (s *service) List(ctx context.Context, uncommittedOnly bool) ([]StockTake, error) {
	return s.repo.List(ctx, uncommittedOnly)
}

func (s *service) inState(ctx context.Context, id int64, want State) (*StockTake, error) {
	st, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if got := st.State(); got != want {
		switch got {
		case StateCommitted:
			return nil, tillerr.State("stocktake %d has already been committed", id)
		case StateInProgress:
			return nil, tillerr.State("stocktake %d has already been started", id)
		default:
			return nil, tillerr.State("stocktake %d has not been started", id)
		}
	}
	return st, nil
}

func (s *service) SetScope(ctx context.Context, id int64, stockTypeIDs []int64) error {
	if _, err := s.inState(ctx, id, StatePending); err != nil {
		return err
	}
	if len(stockTypeIDs) == 0 {
		return tillerr.User("a stocktake needs at least one stock type in scope")
	}
	err := s.repo.SetScope(ctx, id, stockTypeIDs)
	if errors.Is(err, errScopeConflict) {
		return tillerr.User("some of those stock types are already in another stocktake")
	}
	return database.Classify(err)
}

func (s *service) Start(ctx context.Context, id int64) error {
	st, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(st.State(), StateInProgress) {
		return tillerr.State("stocktake %d has already been started", id)
	}
	scope, err := s.repo.Scope(ctx, id)
	if err != nil {
		return err
	}
	if len(scope) == 0 {
		return tillerr.User("stocktake %d has nothing in scope", id)
	}
	if err := s.repo.Start(ctx, id, s.clock.Now()); err != nil {
		return database.Classify(err)
	}
	s.log.Info("stocktake started", zap.Int64("stocktake", id), zap.Int("stocktypes", len(scope)))
	s.record(ctx, eventlog.Entry{Description: fmt.Sprintf("Started stocktake %d", id), StocktakeID: &id})
	return nil
}

func (s *service) snapshot(ctx context.Context, id, stockID int64) error {
	snaps, err := s.repo.Snapshots(ctx, id)
	if err != nil {
		return err
	}
	for _, snap := range snaps {
		if snap.StockID == stockID {
			return nil
		}
	}
	return tillerr.User("stock item %d is not part of stocktake %d", stockID, id)
}

func (s *service) Adjust(ctx context.Context, id int64, req AdjustRequest) error {
	if _, err := s.inState(ctx, id, StateInProgress); err != nil {
		return err
	}
	code := req.RemoveCode
	if code == "" {
		code = inventory.RemoveStocktake
	}
	if code == inventory.RemoveSold {
		return tillerr.User("stocktake adjustments cannot be recorded as sales")
	}
	if err := s.snapshot(ctx, id, req.StockID); err != nil {
		return err
	}
	adj := Adjustment{StocktakeID: id, StockID: req.StockID, RemoveCode: code, Qty: req.Qty}
	return database.Classify(s.repo.SetAdjustment(ctx, adj))
}

func (s *service) SetFinishCode(ctx context.Context, id, stockID int64, code *string) error {
	if _, err := s.inState(ctx, id, StateInProgress); err != nil {
		return err
	}
	if code != nil && *code == "" {
		code = nil
	}
	return database.Classify(s.repo.SetFinishCode(ctx, id, stockID, code))
}

func (s *service) AddItem(ctx context.Context, id int64, req AddItemRequest) (*inventory.StockItem, error) {
	if _, err := s.inState(ctx, id, StateInProgress); err != nil {
		return nil, err
	}
	if !req.Size.IsPositive() {
		return nil, tillerr.User("item size must be greater than zero")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, tillerr.User("item description is required")
	}
	scope, err := s.repo.Scope(ctx, id)
	if err != nil {
		return nil, err
	}
	if !contains(scope, req.StockTypeID) {
		return nil, tillerr.User("stock type %d is not in the scope of stocktake %d", req.StockTypeID, id)
	}
	item := &inventory.StockItem{
		StocktakeID: &id,
		StockTypeID: req.StockTypeID,
		Description: strings.TrimSpace(req.Description),
		Size:        req.Size,
		BestBefore:  req.BestBefore,
		Used:        decimal.Zero,
	}
	if err := s.repo.AddItem(ctx, id, item); err != nil {
		return nil, database.Classify(err)
	}
	return item, nil
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *service) Commit(ctx context.Context, id int64, userID *int64) error {
	st, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(st.State(), StateCommitted) {
		if st.State() == StatePending {
			return tillerr.State("stocktake %d has not been started", id)
		}
		return tillerr.State("stocktake %d has already been committed", id)
	}
	if err := s.repo.Commit(ctx, id, userID, s.clock.Now()); err != nil {
		return database.Classify(err)
	}
	s.log.Info("stocktake committed", zap.Int64("stocktake", id))
	s.record(ctx, eventlog.Entry{
		Description: fmt.Sprintf("Committed stocktake %d", id),
		UserID:      userID,
		StocktakeID: &id,
	})
	return nil
}

func (s *service) Abandon(ctx context.Context, id int64) error {
	st, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if st.State() == StateCommitted {
		return tillerr.State("stocktake %d has already been committed", id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return database.Classify(err)
	}
	s.log.Info("stocktake abandoned", zap.Int64("stocktake", id))
	s.record(ctx, eventlog.Entry{Description: fmt.Sprintf("Abandoned stocktake %d", id)})
	return nil
}

func (s *service) CheckSaleAllowed(ctx context.Context, stockTypeID int64) error {
	st, err := s.repo.InProgressFor(ctx, stockTypeID)
	if err != nil {
		return err
	}
	if st != nil {
		return tillerr.State("this stock is being counted in stocktake %d (%s)", st.ID, st.Description)
	}
	return nil
}

// record writes e to the event log. The change it describes has already
// been made, so a failure is only logged.
func (s *service) record(ctx context.Context, e eventlog.Entry) {
	if err := s.events.Log(ctx, e); err != nil {
		s.log.Warn("event log", zap.String("description", e.Description), zap.Error(err))
	}
}
