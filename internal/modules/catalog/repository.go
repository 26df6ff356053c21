package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository defines the data-access contract for the stock catalog.
type Repository interface {
	CreateDepartment(ctx context.Context, d *Department) error
	GetDepartment(ctx context.Context, id int64) (*Department, error)
	ListDepartments(ctx context.Context) ([]Department, error)

	CreateUnit(ctx context.Context, u *Unit) error
	GetUnit(ctx context.Context, id int64) (*Unit, error)

	CreateStockUnit(ctx context.Context, su *StockUnit) error
	GetStockUnit(ctx context.Context, id int64) (*StockUnit, error)
	ListStockUnits(ctx context.Context, unitID int64) ([]StockUnit, error)

	CreateStockType(ctx context.Context, st *StockType) error
	GetStockType(ctx context.Context, id int64) (*StockType, error)
	// SearchStockTypes matches manufacturer and name with ILIKE patterns,
	// excluding archived types.
	SearchStockTypes(ctx context.Context, manufacturer, name string) ([]StockType, error)
	FindStockType(ctx context.Context, key StockTypeKey) (*StockType, error)
	UpdatePrice(ctx context.Context, id int64, price *decimal.Decimal, at time.Time) error
	SetArchived(ctx context.Context, id int64, archived bool) error
}
