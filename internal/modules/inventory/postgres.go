package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/jmoiron/sqlx"
)

// ── deliveries ───────────────────────────────────────────────────────

type deliveryPostgres struct{ db *sqlx.DB }

func NewDeliveryPostgresRepository(db *sqlx.DB) DeliveryRepository {
	return &deliveryPostgres{db: db}
}

func (r *deliveryPostgres) CreateDelivery(ctx context.Context, d *Delivery) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO deliveries (supplierid, docnumber, date)
		VALUES ($1,$2,$3) RETURNING id, checked`,
		d.SupplierID, d.DocNumber, d.Date).Scan(&d.ID, &d.Checked)
}

func (r *deliveryPostgres) GetDelivery(ctx context.Context, id int64) (*Delivery, error) {
	d := &Delivery{}
	err := r.db.GetContext(ctx, d, `
		SELECT id, supplierid, docnumber, date, checked, accinfo
		FROM deliveries WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *deliveryPostgres) ListDeliveries(ctx context.Context, uncheckedOnly bool) ([]Delivery, error) {
	var ds []Delivery
	err := r.db.SelectContext(ctx, &ds, `
		SELECT id, supplierid, docnumber, date, checked, accinfo
		FROM deliveries WHERE NOT ($1 AND checked)
		ORDER BY date DESC, id DESC`, uncheckedOnly)
	return ds, err
}

func (r *deliveryPostgres) SetChecked(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE deliveries SET checked = true WHERE id = $1`, id)
	return err
}

func (r *deliveryPostgres) DeleteDelivery(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM deliveries WHERE id = $1`, id)
	return err
}

// ── stock ────────────────────────────────────────────────────────────

type stockPostgres struct{ db *sqlx.DB }

func NewStockPostgresRepository(db *sqlx.DB) StockRepository { return &stockPostgres{db: db} }

// itemSelect loads stock rows with their derived used and available
// columns.
const itemSelect = `
	SELECT s.id, s.deliveryid, s.stocktake, s.stocktype, s.description, s.size,
	       s.costprice, s.onsale, s.finished, s.finishcode, s.bestbefore,
	       s.stocklineid, s.displayqty,
	       coalesce((SELECT sum(so.qty) FROM stockout so WHERE so.stockid = s.id), 0.0) AS used,
	       (coalesce(d.checked, false) OR st.commit_time IS NOT NULL) AS available
	FROM stock s
	LEFT JOIN deliveries d ON d.id = s.deliveryid
	LEFT JOIN stocktakes st ON st.id = s.stocktake`

func (r *stockPostgres) InsertItems(ctx context.Context, items []*StockItem) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range items {
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO stock (deliveryid, stocktake, stocktype, description, size, costprice, bestbefore)
			VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			item.DeliveryID, item.StocktakeID, item.StockTypeID, item.Description,
			item.Size, item.CostPrice, item.BestBefore).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert stock item: %w", err)
		}
	}
	return tx.Commit()
}

func (r *stockPostgres) GetItem(ctx context.Context, id int64) (*StockItem, error) {
	item := &StockItem{}
	if err := r.db.GetContext(ctx, item, itemSelect+` WHERE s.id = $1`, id); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *stockPostgres) ListDeliveryItems(ctx context.Context, deliveryID int64) ([]StockItem, error) {
	var items []StockItem
	err := r.db.SelectContext(ctx, &items, itemSelect+` WHERE s.deliveryid = $1 ORDER BY s.id`, deliveryID)
	return items, err
}

func (r *stockPostgres) ItemsOnLine(ctx context.Context, lineID int64) ([]StockItem, error) {
	var items []StockItem
	err := r.db.SelectContext(ctx, &items, itemSelect+`
		WHERE s.stocklineid = $1
		ORDER BY coalesce(s.displayqty, 0) DESC, s.id`, lineID)
	return items, err
}

func (r *stockPostgres) StockOnSale(ctx context.Context, stockTypeID int64) ([]StockItem, error) {
	var items []StockItem
	err := r.db.SelectContext(ctx, &items, itemSelect+`
		WHERE s.stocktype = $1 AND s.finished IS NULL AND s.stocklineid IS NULL
		  AND (coalesce(d.checked, false) OR st.commit_time IS NOT NULL)
		ORDER BY s.id`, stockTypeID)
	return items, err
}

func (r *stockPostgres) InsertStockOut(ctx context.Context, out *StockOut) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO stockout (stockid, qty, removecode, translineid, stocktake, time)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		out.StockID, out.Qty, out.RemoveCode, out.TranslineID, out.StocktakeID, out.Time).Scan(&out.ID)
}

func (r *stockPostgres) Finish(ctx context.Context, id int64, code string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE stock SET finished = $2, finishcode = $3, stocklineid = NULL
		WHERE id = $1 AND finished IS NULL`, id, at, code)
	if err != nil {
		return err
	}
	return database.ExpectOne(res, "stock item %d is already finished", id)
}
