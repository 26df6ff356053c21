package catalog

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type postgresRepository struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepository{db: db} }

const stockTypeColumns = `id, dept, manufacturer, name, shortname, abv, unit, saleprice, pricechanged, stocktake, archived`

func (r *postgresRepository) CreateDepartment(ctx context.Context, d *Department) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO departments (description, vatband, notes, minprice, maxprice, minabv, maxabv)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		d.Description, d.VatBand, d.Notes, d.MinPrice, d.MaxPrice, d.MinABV, d.MaxABV).Scan(&d.ID)
}

func (r *postgresRepository) GetDepartment(ctx context.Context, id int64) (*Department, error) {
	d := &Department{}
	err := r.db.GetContext(ctx, d, `
		SELECT id, description, vatband, notes, minprice, maxprice, minabv, maxabv
		FROM departments WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *postgresRepository) ListDepartments(ctx context.Context) ([]Department, error) {
	var depts []Department
	err := r.db.SelectContext(ctx, &depts, `
		SELECT id, description, vatband, notes, minprice, maxprice, minabv, maxabv
		FROM departments ORDER BY id`)
	return depts, err
}

func (r *postgresRepository) CreateUnit(ctx context.Context, u *Unit) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO units
		  (description, base_unit, sale_unit_name, sale_unit_name_plural, base_units_per_sale_unit,
		   stock_unit_name, stock_unit_name_plural, base_units_per_stock_unit, stocktake_by_items)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		u.Description, u.BaseUnit, u.SaleUnitName, u.SaleUnitNamePlural, u.BaseUnitsPerSaleUnit,
		u.StockUnitName, u.StockUnitNamePlural, u.BaseUnitsPerStockUnit, u.StocktakeByItems).Scan(&u.ID)
}

func (r *postgresRepository) GetUnit(ctx context.Context, id int64) (*Unit, error) {
	u := &Unit{}
	err := r.db.GetContext(ctx, u, `
		SELECT id, description, base_unit, sale_unit_name, sale_unit_name_plural, base_units_per_sale_unit,
		       stock_unit_name, stock_unit_name_plural, base_units_per_stock_unit, stocktake_by_items
		FROM units WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *postgresRepository) CreateStockUnit(ctx context.Context, su *StockUnit) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO stockunits (description, unit, size, merge)
		VALUES ($1,$2,$3,$4) RETURNING id`,
		su.Description, su.UnitID, su.Size, su.Merge).Scan(&su.ID)
}

func (r *postgresRepository) GetStockUnit(ctx context.Context, id int64) (*StockUnit, error) {
	su := &StockUnit{}
	err := r.db.GetContext(ctx, su, `SELECT id, description, unit, size, merge FROM stockunits WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return su, nil
}

func (r *postgresRepository) ListStockUnits(ctx context.Context, unitID int64) ([]StockUnit, error) {
	var units []StockUnit
	err := r.db.SelectContext(ctx, &units, `
		SELECT id, description, unit, size, merge FROM stockunits
		WHERE unit = $1 ORDER BY size`, unitID)
	return units, err
}

func (r *postgresRepository) CreateStockType(ctx context.Context, st *StockType) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO stocktypes (dept, manufacturer, name, shortname, abv, unit, saleprice, pricechanged)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		st.DeptID, st.Manufacturer, st.Name, st.Shortname, st.ABV, st.UnitID, st.SalePrice, st.PriceChanged).Scan(&st.ID)
}

func (r *postgresRepository) GetStockType(ctx context.Context, id int64) (*StockType, error) {
	st := &StockType{}
	err := r.db.GetContext(ctx, st, `SELECT `+stockTypeColumns+` FROM stocktypes WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (r *postgresRepository) SearchStockTypes(ctx context.Context, manufacturer, name string) ([]StockType, error) {
	var types []StockType
	err := r.db.SelectContext(ctx, &types, `
		SELECT `+stockTypeColumns+` FROM stocktypes
		WHERE manufacturer ILIKE $1 AND name ILIKE $2 AND NOT archived
		ORDER BY manufacturer, name, id
		LIMIT 50`, manufacturer, name)
	return types, err
}

func (r *postgresRepository) FindStockType(ctx context.Context, key StockTypeKey) (*StockType, error) {
	st := &StockType{}
	err := r.db.GetContext(ctx, st, `
		SELECT `+stockTypeColumns+` FROM stocktypes
		WHERE dept = $1 AND manufacturer = $2 AND name = $3 AND shortname = $4
		  AND abv IS NOT DISTINCT FROM $5 AND unit = $6`,
		key.DeptID, key.Manufacturer, key.Name, key.Shortname, key.ABV, key.UnitID)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (r *postgresRepository) UpdatePrice(ctx context.Context, id int64, price *decimal.Decimal, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE stocktypes SET saleprice = $2, pricechanged = $3 WHERE id = $1`, id, price, at)
	return err
}

func (r *postgresRepository) SetArchived(ctx context.Context, id int64, archived bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE stocktypes SET archived = $2 WHERE id = $1`, id, archived)
	return err
}
