package eventlog

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type postgresRepository struct{ db sqlx.ExtContext }

// NewPostgresRepository accepts either a *sqlx.DB or a *sqlx.Tx, so log
// rows can be written inside the transaction they describe.
func NewPostgresRepository(db sqlx.ExtContext) Repository { return &postgresRepository{db: db} }

func (r *postgresRepository) Insert(ctx context.Context, e *Entry) error {
	return sqlx.GetContext(ctx, r.db, &e.ID, `
		INSERT INTO log (time, loguser, description, transid, translineid, paymentid,
		                 sessionid, stockid, stocklineid, stocktake)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		e.Time, e.UserID, e.Description, e.TransID, e.TranslineID, e.PaymentID,
		e.SessionID, e.StockID, e.StockLineID, e.StocktakeID)
}

func (r *postgresRepository) List(ctx context.Context, f Filter) ([]Entry, error) {
	var entries []Entry
	err := sqlx.SelectContext(ctx, r.db, &entries, `
		SELECT id, time, loguser, description, transid, translineid, paymentid,
		       sessionid, stockid, stocklineid, stocktake
		FROM log
		WHERE ($1 = 0 OR transid = $1) AND ($2 = 0 OR sessionid = $2)
		ORDER BY id DESC LIMIT $3`, f.TransID, f.SessionID, f.Limit)
	return entries, err
}
