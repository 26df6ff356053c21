package stockline

import (
	"context"
	"fmt"
	"time"

	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type postgresRepository struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepository{db: db} }

const lineColumns = `id, name, location, linetype, stocktype, capacity, pullthru, note`

func (r *postgresRepository) Create(ctx context.Context, sl *StockLine) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO stocklines (name, location, linetype, stocktype, capacity, pullthru, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		sl.Name, sl.Location, sl.LineType, sl.StockTypeID, sl.Capacity, sl.PullThru, sl.Note).Scan(&sl.ID)
}

func (r *postgresRepository) Get(ctx context.Context, id int64) (*StockLine, error) {
	sl := &StockLine{}
	if err := r.db.GetContext(ctx, sl, `SELECT `+lineColumns+` FROM stocklines WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return sl, nil
}

func (r *postgresRepository) List(ctx context.Context, location string) ([]StockLine, error) {
	var lines []StockLine
	err := r.db.SelectContext(ctx, &lines, `
		SELECT `+lineColumns+` FROM stocklines
		WHERE $1 = '' OR location = $1
		ORDER BY location, name`, location)
	return lines, err
}

func (r *postgresRepository) Update(ctx context.Context, sl *StockLine) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE stocklines SET name = :name, location = :location, stocktype = :stocktype,
		       capacity = :capacity, pullthru = :pullthru, note = :note
		WHERE id = :id`, sl)
	if err != nil {
		return err
	}
	return database.ExpectOne(res, "stockline %d no longer exists", sl.ID)
}

func (r *postgresRepository) Attach(ctx context.Context, stockID, lineID int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE stock SET stocklineid = $2, onsale = coalesce(onsale, $3), displayqty = NULL
		WHERE id = $1 AND stocklineid IS NULL AND finished IS NULL`, stockID, lineID, at)
	if err != nil {
		return err
	}
	return database.ExpectOne(res, "stock item %d was put on sale elsewhere", stockID)
}

func (r *postgresRepository) Detach(ctx context.Context, stockID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE stock SET stocklineid = NULL, displayqty = NULL WHERE id = $1`, stockID)
	return err
}

func (r *postgresRepository) DetachAll(ctx context.Context, lineID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE stock SET stocklineid = NULL, displayqty = NULL WHERE stocklineid = $1`, lineID)
	return err
}

func (r *postgresRepository) ApplyRestock(ctx context.Context, moves []Movement) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, m := range moves {
			res, err := tx.ExecContext(ctx, `
				UPDATE stock SET displayqty = $2
				WHERE id = $1 AND stocklineid IS NOT NULL AND displayqty IS NOT DISTINCT FROM $3`,
				m.Item.ID, m.NewDisplayQty, m.Item.DisplayQty)
			if err != nil {
				return fmt.Errorf("restock item %d: %w", m.Item.ID, err)
			}
			if err := database.ExpectOne(res, "stock item %d changed during restock", m.Item.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *postgresRepository) LastActivity(ctx context.Context, lineID int64, codes []string) (*time.Time, error) {
	var last *time.Time
	err := r.db.QueryRowxContext(ctx, `
		SELECT max(so.time) FROM stockout so
		JOIN stock s ON s.id = so.stockid
		WHERE s.stocklineid = $1 AND so.removecode = ANY($2)`,
		lineID, pq.Array(codes)).Scan(&last)
	return last, err
}
