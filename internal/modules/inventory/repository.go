package inventory

import (
	"context"
	"time"
)

// DeliveryRepository defines the data-access contract for deliveries.
type DeliveryRepository interface {
	CreateDelivery(ctx context.Context, d *Delivery) error
	GetDelivery(ctx context.Context, id int64) (*Delivery, error)
	ListDeliveries(ctx context.Context, uncheckedOnly bool) ([]Delivery, error)
	SetChecked(ctx context.Context, id int64) error
	DeleteDelivery(ctx context.Context, id int64) error
}

// StockRepository defines the data-access contract for stock items and
// removals.
type StockRepository interface {
	// InsertItems inserts all items in one database transaction.
	InsertItems(ctx context.Context, items []*StockItem) error
	GetItem(ctx context.Context, id int64) (*StockItem, error)
	ListDeliveryItems(ctx context.Context, deliveryID int64) ([]StockItem, error)
	// ItemsOnLine returns the items attached to a stockline in sale order:
	// displayqty descending (null as zero), then id.
	ItemsOnLine(ctx context.Context, lineID int64) ([]StockItem, error)
	// StockOnSale returns unfinished, available, unattached items of a
	// stock type in id order.
	StockOnSale(ctx context.Context, stockTypeID int64) ([]StockItem, error)
	InsertStockOut(ctx context.Context, out *StockOut) error
	Finish(ctx context.Context, id int64, code string, at time.Time) error
}
