package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/shopspring/decimal"
)

// Service defines the stock catalog business logic.
type Service interface {
	CreateDepartment(ctx context.Context, d Department) (*Department, error)
	GetDepartment(ctx context.Context, id int64) (*Department, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	CreateUnit(ctx context.Context, u Unit) (*Unit, error)
	GetUnit(ctx context.Context, id int64) (*Unit, error)
	CreateStockUnit(ctx context.Context, su StockUnit) (*StockUnit, error)
	GetStockUnit(ctx context.Context, id int64) (*StockUnit, error)
	ListStockUnits(ctx context.Context, unitID int64) ([]StockUnit, error)
	CreateStockType(ctx context.Context, req CreateStockTypeRequest) (*StockType, error)
	GetStockType(ctx context.Context, id int64) (*StockType, error)
	// Describe loads a stock type with its unit and department.
	Describe(ctx context.Context, id int64) (*StockTypeInfo, error)
	FuzzyLookup(ctx context.Context, manufacturer, name string) ([]StockType, error)
	ExactLookup(ctx context.Context, key StockTypeKey) (*StockType, error)
	Reprice(ctx context.Context, id int64, price *decimal.Decimal) (*StockType, error)
	Archive(ctx context.Context, id int64, archived bool) error
}

type service struct {
	repo  Repository
	clock clock.Clock
}

func NewService(repo Repository, clk clock.Clock) Service {
	return &service{repo: repo, clock: clk}
}

func (s *service) CreateDepartment(ctx context.Context, d Department) (*Department, error) {
	if strings.TrimSpace(d.Description) == "" {
		return nil, tillerr.User("department description is required")
	}
	if d.MinPrice != nil && d.MaxPrice != nil && d.MinPrice.GreaterThan(*d.MaxPrice) {
		return nil, tillerr.User("minimum price must not exceed maximum price")
	}
	if d.MinABV != nil && d.MaxABV != nil && d.MinABV.GreaterThan(*d.MaxABV) {
		return nil, tillerr.User("minimum ABV must not exceed maximum ABV")
	}
	if err := s.repo.CreateDepartment(ctx, &d); err != nil {
		return nil, database.Classify(err)
	}
	return &d, nil
}

func (s *service) GetDepartment(ctx context.Context, id int64) (*Department, error) {
	d, err := s.repo.GetDepartment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("department %d: %w", id, database.Classify(err))
	}
	return d, nil
}

func (s *service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.repo.ListDepartments(ctx)
}

func (s *service) CreateUnit(ctx context.Context, u Unit) (*Unit, error) {
	if u.BaseUnit == "" || u.SaleUnitName == "" || u.StockUnitName == "" {
		return nil, tillerr.User("base, sale and stock unit names are required")
	}
	if !u.BaseUnitsPerSaleUnit.IsPositive() || !u.BaseUnitsPerStockUnit.IsPositive() {
		return nil, tillerr.User("unit ratios must be greater than zero")
	}
	if u.SaleUnitNamePlural == "" {
		u.SaleUnitNamePlural = u.SaleUnitName + "s"
	}
	if u.StockUnitNamePlural == "" {
		u.StockUnitNamePlural = u.StockUnitName + "s"
	}
	if err := s.repo.CreateUnit(ctx, &u); err != nil {
		return nil, database.Classify(err)
	}
	return &u, nil
}

func (s *service) GetUnit(ctx context.Context, id int64) (*Unit, error) {
	u, err := s.repo.GetUnit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("unit %d: %w", id, database.Classify(err))
	}
	return u, nil
}

func (s *service) CreateStockUnit(ctx context.Context, su StockUnit) (*StockUnit, error) {
	if !su.Size.IsPositive() {
		return nil, tillerr.User("stock unit size must be greater than zero")
	}
	if _, err := s.GetUnit(ctx, su.UnitID); err != nil {
		return nil, err
	}
	if err := s.repo.CreateStockUnit(ctx, &su); err != nil {
		return nil, database.Classify(err)
	}
	return &su, nil
}

func (s *service) GetStockUnit(ctx context.Context, id int64) (*StockUnit, error) {
	su, err := s.repo.GetStockUnit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("stock unit %d: %w", id, database.Classify(err))
	}
	return su, nil
}

func (s *service) ListStockUnits(ctx context.Context, unitID int64) ([]StockUnit, error) {
	return s.repo.ListStockUnits(ctx, unitID)
}

func (s *service) CreateStockType(ctx context.Context, req CreateStockTypeRequest) (*StockType, error) {
	if strings.TrimSpace(req.Manufacturer) == "" || strings.TrimSpace(req.Name) == "" {
		return nil, tillerr.User("manufacturer and name are required")
	}
	dept, err := s.GetDepartment(ctx, req.DeptID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetUnit(ctx, req.UnitID); err != nil {
		return nil, err
	}
	if err := dept.CheckABV(req.ABV); err != nil {
		return nil, err
	}
	if req.SalePrice != nil {
		if err := dept.CheckPrice(*req.SalePrice); err != nil {
			return nil, err
		}
	}

	st := &StockType{
		DeptID:       req.DeptID,
		Manufacturer: strings.TrimSpace(req.Manufacturer),
		Name:         strings.TrimSpace(req.Name),
		Shortname:    strings.TrimSpace(req.Shortname),
		ABV:          req.ABV,
		UnitID:       req.UnitID,
		SalePrice:    req.SalePrice,
	}
	if st.Shortname == "" {
		st.Shortname = st.Name
	}
	if st.SalePrice != nil {
		now := s.clock.Now()
		st.PriceChanged = &now
	}
	if err := s.repo.CreateStockType(ctx, st); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, tillerr.User("%s already exists in this department with this unit and ABV", st.Format())
		}
		return nil, database.Classify(err)
	}
	return st, nil
}

func (s *service) GetStockType(ctx context.Context, id int64) (*StockType, error) {
	st, err := s.repo.GetStockType(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("stock type %d: %w", id, database.Classify(err))
	}
	return st, nil
}

func (s *service) Describe(ctx context.Context, id int64) (*StockTypeInfo, error) {
	st, err := s.GetStockType(ctx, id)
	if err != nil {
		return nil, err
	}
	unit, err := s.GetUnit(ctx, st.UnitID)
	if err != nil {
		return nil, err
	}
	dept, err := s.GetDepartment(ctx, st.DeptID)
	if err != nil {
		return nil, err
	}
	return &StockTypeInfo{StockType: *st, Unit: *unit, Department: *dept}, nil
}

func (s *service) FuzzyLookup(ctx context.Context, manufacturer, name string) ([]StockType, error) {
	return s.repo.SearchStockTypes(ctx, likePattern(manufacturer), likePattern(name))
}

func (s *service) ExactLookup(ctx context.Context, key StockTypeKey) (*StockType, error) {
	st, err := s.repo.FindStockType(ctx, key)
	if err != nil {
		return nil, database.Classify(err)
	}
	return st, nil
}

func (s *service) Reprice(ctx context.Context, id int64, price *decimal.Decimal) (*StockType, error) {
	st, err := s.GetStockType(ctx, id)
	if err != nil {
		return nil, err
	}
	if price != nil {
		if price.IsNegative() {
			return nil, tillerr.User("price cannot be negative")
		}
		dept, err := s.GetDepartment(ctx, st.DeptID)
		if err != nil {
			return nil, err
		}
		if err := dept.CheckPrice(*price); err != nil {
			return nil, err
		}
		rounded := price.Round(2)
		price = &rounded
	}
	now := s.clock.Now()
	if err := s.repo.UpdatePrice(ctx, id, price, now); err != nil {
		return nil, database.Classify(err)
	}
	st.SalePrice = price
	st.PriceChanged = &now
	return st, nil
}

func (s *service) Archive(ctx context.Context, id int64, archived bool) error {
	if err := s.repo.SetArchived(ctx, id, archived); err != nil {
		return database.Classify(err)
	}
	return nil
}

// likePattern turns user input into a substring ILIKE pattern, escaping
// the LIKE metacharacters it contains.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}
