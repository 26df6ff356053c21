package stocktake

import (
	"context"
	"fmt"
	"time"

	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/modules/inventory"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type postgresRepository struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepository{db: db} }

const stocktakeColumns = `id, description, create_time, create_user, start_time, commit_time, commit_user`

func (r *postgresRepository) Create(ctx context.Context, st *StockTake) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO stocktakes (description, create_time, create_user)
		VALUES ($1,$2,$3) RETURNING id`,
		st.Description, st.CreateTime, st.CreateUser).Scan(&st.ID)
}

func (r *postgresRepository) Get(ctx context.Context, id int64) (*StockTake, error) {
	st := &StockTake{}
	if err := r.db.GetContext(ctx, st, `SELECT `+stocktakeColumns+` FROM stocktakes WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return st, nil
}

func (r *postgresRepository) List(ctx context.Context, uncommittedOnly bool) ([]StockTake, error) {
	var sts []StockTake
	err := r.db.SelectContext(ctx, &sts, `
		SELECT `+stocktakeColumns+` FROM stocktakes
		WHERE NOT ($1 AND commit_time IS NOT NULL)
		ORDER BY id DESC`, uncommittedOnly)
	return sts, err
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stocktakes WHERE id = $1 AND commit_time IS NULL`, id)
	if err != nil {
		return err
	}
	return database.ExpectOne(res, "stocktake %d has been committed", id)
}

func (r *postgresRepository) SetScope(ctx context.Context, id int64, stockTypeIDs []int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE stocktypes SET stocktake = NULL
			WHERE stocktake = $1 AND NOT (id = ANY($2))`, id, pq.Array(stockTypeIDs)); err != nil {
			return fmt.Errorf("clear scope: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE stocktypes SET stocktake = $1
			WHERE id = ANY($2) AND (stocktake IS NULL OR stocktake = $1)`, id, pq.Array(stockTypeIDs))
		if err != nil {
			return fmt.Errorf("set scope: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if int(n) != len(stockTypeIDs) {
			return errScopeConflict
		}
		return nil
	})
}

func (r *postgresRepository) Scope(ctx context.Context, id int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM stocktypes WHERE stocktake = $1 ORDER BY id`, id)
	return ids, err
}

func (r *postgresRepository) InProgressFor(ctx context.Context, stockTypeID int64) (*StockTake, error) {
	var sts []StockTake
	err := r.db.SelectContext(ctx, &sts, `
		SELECT st.id, st.description, st.create_time, st.create_user, st.start_time,
		       st.commit_time, st.commit_user
		FROM stocktakes st JOIN stocktypes t ON t.stocktake = st.id
		WHERE t.id = $1 AND st.start_time IS NOT NULL AND st.commit_time IS NULL`, stockTypeID)
	if err != nil || len(sts) == 0 {
		return nil, err
	}
	return &sts[0], nil
}

func (r *postgresRepository) Start(ctx context.Context, id int64, at time.Time) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE stocktakes SET start_time = $2 WHERE id = $1 AND start_time IS NULL`, id, at)
		if err != nil {
			return err
		}
		if err := database.ExpectOne(res, "stocktake %d has already been started", id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stocktake_snapshots (stocktake, stockid, qty, bestbefore)
			SELECT $1, s.id,
			       s.size - coalesce((SELECT sum(so.qty) FROM stockout so WHERE so.stockid = s.id), 0.0),
			       s.bestbefore
			FROM stock s
			JOIN stocktypes t ON t.id = s.stocktype
			LEFT JOIN deliveries d ON d.id = s.deliveryid
			LEFT JOIN stocktakes o ON o.id = s.stocktake
			WHERE t.stocktake = $1 AND s.finished IS NULL
			  AND (coalesce(d.checked, false) OR o.commit_time IS NOT NULL)`, id)
		if err != nil {
			return fmt.Errorf("snapshot stock: %w", err)
		}
		return nil
	})
}

func (r *postgresRepository) Snapshots(ctx context.Context, id int64) ([]Snapshot, error) {
	var snaps []Snapshot
	err := r.db.SelectContext(ctx, &snaps, `
		SELECT stocktake, stockid, qty, bestbefore, finishcode
		FROM stocktake_snapshots WHERE stocktake = $1 ORDER BY stockid`, id)
	return snaps, err
}

func (r *postgresRepository) Adjustments(ctx context.Context, id int64) ([]Adjustment, error) {
	var adjs []Adjustment
	err := r.db.SelectContext(ctx, &adjs, `
		SELECT stocktake, stockid, removecode, qty
		FROM stocktake_adjustments WHERE stocktake = $1 ORDER BY stockid, removecode`, id)
	return adjs, err
}

func (r *postgresRepository) SetAdjustment(ctx context.Context, adj Adjustment) error {
	if adj.Qty.IsZero() {
		_, err := r.db.ExecContext(ctx, `
			DELETE FROM stocktake_adjustments
			WHERE stocktake = $1 AND stockid = $2 AND removecode = $3`,
			adj.StocktakeID, adj.StockID, adj.RemoveCode)
		return err
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO stocktake_adjustments (stocktake, stockid, removecode, qty)
		VALUES (:stocktake, :stockid, :removecode, :qty)
		ON CONFLICT (stocktake, stockid, removecode) DO UPDATE SET qty = EXCLUDED.qty`, adj)
	return err
}

func (r *postgresRepository) SetFinishCode(ctx context.Context, id, stockID int64, code *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE stocktake_snapshots SET finishcode = $3 WHERE stocktake = $1 AND stockid = $2`,
		id, stockID, code)
	if err != nil {
		return err
	}
	return database.ExpectOne(res, "stock item %d is not part of stocktake %d", stockID, id)
}

func (r *postgresRepository) AddItem(ctx context.Context, id int64, item *inventory.StockItem) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO stock (stocktake, stocktype, description, size, bestbefore)
			VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			id, item.StockTypeID, item.Description, item.Size, item.BestBefore).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert stock item: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stocktake_snapshots (stocktake, stockid, qty, bestbefore)
			VALUES ($1,$2,$3,$4)`, id, item.ID, item.Size, item.BestBefore)
		return err
	})
}

func (r *postgresRepository) Commit(ctx context.Context, id int64, user *int64, at time.Time) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stockout (stockid, qty, removecode, stocktake, time)
			SELECT stockid, qty, removecode, stocktake, $2
			FROM stocktake_adjustments WHERE stocktake = $1`, id, at); err != nil {
			return fmt.Errorf("write adjustments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE stock s SET finished = $2, finishcode = ss.finishcode, stocklineid = NULL
			FROM stocktake_snapshots ss
			WHERE ss.stocktake = $1 AND ss.stockid = s.id
			  AND ss.finishcode IS NOT NULL AND s.finished IS NULL`, id, at); err != nil {
			return fmt.Errorf("finish items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE stocktypes SET stocktake = NULL WHERE stocktake = $1`, id); err != nil {
			return fmt.Errorf("clear scope: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE stocktakes SET commit_time = $2, commit_user = $3
			WHERE id = $1 AND start_time IS NOT NULL AND commit_time IS NULL`, id, at, user)
		if err != nil {
			return err
		}
		return database.ExpectOne(res, "stocktake %d has already been committed", id)
	})
}
