package session

import (
	"context"
	"database/sql"
	"errors"

	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/jmoiron/sqlx"
)

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, s *Session) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO sessions (date, starttime) VALUES ($1, $2) RETURNING id`,
		s.Date, s.StartTime).Scan(&s.ID)
}

func (r *postgresRepository) Current(ctx context.Context) (*Session, error) {
	s := &Session{}
	err := r.db.GetContext(ctx, s, `
		SELECT id, date, starttime, endtime, accinfo FROM sessions WHERE endtime IS NULL`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepository) Get(ctx context.Context, id int64) (*Session, error) {
	s := &Session{}
	if err := r.db.GetContext(ctx, s, `
		SELECT id, date, starttime, endtime, accinfo FROM sessions WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepository) List(ctx context.Context, limit int) ([]Session, error) {
	var out []Session
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, date, starttime, endtime, accinfo FROM sessions ORDER BY id DESC LIMIT $1`, limit)
	return out, err
}

func (r *postgresRepository) Blockers(ctx context.Context, id int64) (Blockers, error) {
	var b Blockers
	err := r.db.GetContext(ctx, &b, `
		SELECT
		  (SELECT count(*) FROM transactions WHERE sessionid = $1 AND NOT closed) AS open_transactions,
		  (SELECT count(*) FROM payments p JOIN transactions t ON t.id = p.transid
		    WHERE t.sessionid = $1 AND p.pending) AS pending_payments`, id)
	return b, err
}

func (r *postgresRepository) Close(ctx context.Context, s *Session) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET endtime = $2 WHERE id = $1 AND endtime IS NULL`, s.ID, s.EndTime)
	if err != nil {
		return err
	}
	return database.ExpectOne(res, "session %d has already been closed", s.ID)
}

func (r *postgresRepository) DeptTotals(ctx context.Context, id int64) ([]DeptTotal, error) {
	var out []DeptTotal
	err := r.db.SelectContext(ctx, &out, `
		SELECT l.dept, d.description, sum(l.items * l.amount) AS total
		FROM translines l
		JOIN transactions t ON t.id = l.transid
		JOIN departments d ON d.id = l.dept
		WHERE t.sessionid = $1
		GROUP BY l.dept, d.description
		ORDER BY l.dept`, id)
	return out, err
}

func (r *postgresRepository) UserTotals(ctx context.Context, id int64) ([]UserTotal, error) {
	var out []UserTotal
	err := r.db.SelectContext(ctx, &out, `
		SELECT u.id AS user_id, coalesce(u.fullname, 'Unknown') AS name,
		       sum(l.items) AS items, sum(l.items * l.amount) AS total
		FROM translines l
		JOIN transactions t ON t.id = l.transid
		LEFT JOIN users u ON u.id = l."user"
		WHERE t.sessionid = $1
		GROUP BY u.id, u.fullname
		ORDER BY total DESC`, id)
	return out, err
}

func (r *postgresRepository) PayTypeTotals(ctx context.Context, id int64) ([]PayTypeTotal, error) {
	var out []PayTypeTotal
	err := r.db.SelectContext(ctx, &out, `
		SELECT pt.paytype, pt.description,
		       coalesce((SELECT sum(p.amount) FROM payments p
		                   JOIN transactions t ON t.id = p.transid
		                  WHERE t.sessionid = $1 AND p.paytype = pt.paytype), 0.00) AS till,
		       st.amount AS recorded, coalesce(st.fees, 0.00) AS fees
		FROM paytypes pt
		LEFT JOIN sessiontotals st ON st.paytype = pt.paytype AND st.sessionid = $1
		WHERE pt.mode <> 'disabled' OR st.amount IS NOT NULL
		ORDER BY pt."order", pt.paytype`, id)
	return out, err
}

func (r *postgresRepository) RecordTotals(ctx context.Context, id int64, totals []RecordedTotal) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessiontotals WHERE sessionid = $1`, id); err != nil {
			return err
		}
		for _, t := range totals {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO sessiontotals (sessionid, paytype, amount, fees) VALUES ($1, $2, $3, $4)`,
				id, t.PayType, t.Amount, t.Fees); err != nil {
				return err
			}
		}
		return nil
	})
}
