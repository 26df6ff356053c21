package inventory

import (
	"context"
	"fmt"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/modules/catalog"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/shopspring/decimal"
)

// Catalog is the part of the stock catalog deliveries need.
type Catalog interface {
	GetStockType(ctx context.Context, id int64) (*catalog.StockType, error)
	GetStockUnit(ctx context.Context, id int64) (*catalog.StockUnit, error)
}

// Service defines inventory business logic.
type Service interface {
	CreateDelivery(ctx context.Context, req CreateDeliveryRequest) (*Delivery, error)
	GetDelivery(ctx context.Context, id int64) (*DeliveryDetail, error)
	ListDeliveries(ctx context.Context, uncheckedOnly bool) ([]Delivery, error)
	AddItems(ctx context.Context, req AddItemsRequest) ([]*StockItem, error)
	CheckDelivery(ctx context.Context, id int64) error
	DeleteDelivery(ctx context.Context, id int64) error

	GetItem(ctx context.Context, id int64) (*StockItem, error)
	ItemsOnLine(ctx context.Context, lineID int64) ([]StockItem, error)
	StockOnSale(ctx context.Context, stockTypeID int64) ([]StockItem, error)
	RecordWaste(ctx context.Context, req WasteRequest) (*StockOut, error)
	FinishItem(ctx context.Context, id int64, finishCode string) error
}

type service struct {
	deliveries DeliveryRepository
	stock      StockRepository
	catalog    Catalog
	clock      clock.Clock
}

func NewService(deliveries DeliveryRepository, stock StockRepository, cat Catalog, clk clock.Clock) Service {
	return &service{deliveries: deliveries, stock: stock, catalog: cat, clock: clk}
}

func (s *service) CreateDelivery(ctx context.Context, req CreateDeliveryRequest) (*Delivery, error) {
	if req.SupplierID == 0 {
		return nil, tillerr.User("supplier is required")
	}
	d := &Delivery{SupplierID: req.SupplierID, DocNumber: req.DocNumber, Date: s.clock.Now()}
	if req.Date != nil {
		d.Date = *req.Date
	}
	if err := s.deliveries.CreateDelivery(ctx, d); err != nil {
		return nil, database.Classify(err)
	}
	return d, nil
}

func (s *service) getDelivery(ctx context.Context, id int64) (*Delivery, error) {
	d, err := s.deliveries.GetDelivery(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delivery %d: %w", id, database.Classify(err))
	}
	return d, nil
}

func (s *service) GetDelivery(ctx context.Context, id int64) (*DeliveryDetail, error) {
	d, err := s.getDelivery(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.stock.ListDeliveryItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DeliveryDetail{Delivery: *d, Items: items}, nil
}

func (s *service) ListDeliveries(ctx context.Context, uncheckedOnly bool) ([]Delivery, error) {
	return s.deliveries.ListDeliveries(ctx, uncheckedOnly)
}

// AddItems adds stock to an unchecked delivery. A stock unit marked merge
// turns several identical items into one item of the combined size;
// otherwise each item gets an equal share of the cost and the last item
// absorbs the rounding remainder.
func (s *service) AddItems(ctx context.Context, req AddItemsRequest) ([]*StockItem, error) {
	if req.Qty < 1 {
		return nil, tillerr.User("quantity must be at least one")
	}
	if req.Cost != nil && req.Cost.IsNegative() {
		return nil, tillerr.User("cost cannot be negative")
	}
	d, err := s.getDelivery(ctx, req.DeliveryID)
	if err != nil {
		return nil, err
	}
	if d.Checked {
		return nil, tillerr.State("delivery %d has already been checked", d.ID)
	}
	st, err := s.catalog.GetStockType(ctx, req.StockTypeID)
	if err != nil {
		return nil, err
	}
	su, err := s.catalog.GetStockUnit(ctx, req.StockUnitID)
	if err != nil {
		return nil, err
	}
	if su.UnitID != st.UnitID {
		return nil, tillerr.User("%s cannot be delivered in %s", st.Format(), su.Description)
	}

	items := SplitItems(su, req.Qty, req.Cost)
	for _, item := range items {
		item.DeliveryID = &d.ID
		item.StockTypeID = st.ID
		item.BestBefore = req.BestBefore
	}
	if err := s.stock.InsertItems(ctx, items); err != nil {
		return nil, database.Classify(err)
	}
	return items, nil
}

// SplitItems builds the stock items for qty of a stock unit costing cost
// in total.
func SplitItems(su *catalog.StockUnit, qty int, cost *decimal.Decimal) []*StockItem {
	if su.Merge && qty > 1 {
		return []*StockItem{{
			Description: fmt.Sprintf("%d × %s", qty, su.Description),
			Size:        su.Size.Mul(decimal.NewFromInt(int64(qty))),
			CostPrice:   cost,
		}}
	}

	var each, last *decimal.Decimal
	if cost != nil {
		e := cost.Div(decimal.NewFromInt(int64(qty))).RoundDown(2)
		l := cost.Sub(e.Mul(decimal.NewFromInt(int64(qty - 1))))
		each, last = &e, &l
	}
	items := make([]*StockItem, qty)
	for i := range items {
		items[i] = &StockItem{Description: su.Description, Size: su.Size, CostPrice: each}
	}
	items[qty-1].CostPrice = last
	return items
}

func (s *service) CheckDelivery(ctx context.Context, id int64) error {
	d, err := s.getDelivery(ctx, id)
	if err != nil {
		return err
	}
	if d.Checked {
		return tillerr.State("delivery %d has already been checked", id)
	}
	if err := s.deliveries.SetChecked(ctx, id); err != nil {
		return database.Classify(err)
	}
	return nil
}

func (s *service) DeleteDelivery(ctx context.Context, id int64) error {
	d, err := s.getDelivery(ctx, id)
	if err != nil {
		return err
	}
	if d.Checked {
		return tillerr.State("delivery %d has been checked and cannot be deleted", id)
	}
	if err := s.deliveries.DeleteDelivery(ctx, id); err != nil {
		return database.Classify(err)
	}
	return nil
}

func (s *service) GetItem(ctx context.Context, id int64) (*StockItem, error) {
	item, err := s.stock.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("stock item %d: %w", id, database.Classify(err))
	}
	return item, nil
}

func (s *service) ItemsOnLine(ctx context.Context, lineID int64) ([]StockItem, error) {
	return s.stock.ItemsOnLine(ctx, lineID)
}

func (s *service) StockOnSale(ctx context.Context, stockTypeID int64) ([]StockItem, error) {
	return s.stock.StockOnSale(ctx, stockTypeID)
}

func (s *service) RecordWaste(ctx context.Context, req WasteRequest) (*StockOut, error) {
	if !isWasteCode(req.RemoveCode) {
		return nil, tillerr.User("%q is not a waste reason", req.RemoveCode)
	}
	if !req.Qty.IsPositive() {
		return nil, tillerr.User("waste quantity must be greater than zero")
	}
	item, err := s.GetItem(ctx, req.StockID)
	if err != nil {
		return nil, err
	}
	if item.IsFinished() {
		return nil, tillerr.State("stock item %d is finished", item.ID)
	}
	out := &StockOut{StockID: item.ID, Qty: req.Qty, RemoveCode: req.RemoveCode, Time: s.clock.Now()}
	if err := s.stock.InsertStockOut(ctx, out); err != nil {
		return nil, database.Classify(err)
	}
	return out, nil
}

func (s *service) FinishItem(ctx context.Context, id int64, finishCode string) error {
	if finishCode == "" {
		return tillerr.User("a finish reason is required")
	}
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if item.IsFinished() {
		return tillerr.State("stock item %d is already finished", id)
	}
	if err := s.stock.Finish(ctx, id, finishCode, s.clock.Now()); err != nil {
		return database.Classify(err)
	}
	return nil
}

func isWasteCode(code string) bool {
	for _, c := range WasteCodes {
		if c == code {
			return true
		}
	}
	return false
}
