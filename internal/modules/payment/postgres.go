package payment

import (
	"context"
	"strconv"

	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const payTypeColumns = `paytype, description, driver_name, mode, "order", config, state,
	payments_account, fees_account`

const paymentColumns = `id, transid, amount, paytype, text, source, "user", time, pending`

func (r *postgresRepository) ListPayTypes(ctx context.Context) ([]PayType, error) {
	var out []PayType
	err := r.db.SelectContext(ctx, &out, `SELECT `+payTypeColumns+` FROM paytypes ORDER BY "order", paytype`)
	return out, err
}

func (r *postgresRepository) GetPayType(ctx context.Context, paytype string) (*PayType, error) {
	pt := &PayType{}
	if err := r.db.GetContext(ctx, pt, `SELECT `+payTypeColumns+` FROM paytypes WHERE paytype = $1`, paytype); err != nil {
		return nil, err
	}
	return pt, nil
}

func (r *postgresRepository) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	p := &Payment{}
	if err := r.db.GetContext(ctx, p, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id); err != nil {
		return nil, err
	}
	ps := []Payment{*p}
	if err := r.loadMeta(ctx, ps); err != nil {
		return nil, err
	}
	return &ps[0], nil
}

func (r *postgresRepository) PaymentsFor(ctx context.Context, transID int64) ([]Payment, error) {
	var out []Payment
	if err := r.db.SelectContext(ctx, &out, `
		SELECT `+paymentColumns+` FROM payments WHERE transid = $1 ORDER BY id`, transID); err != nil {
		return nil, err
	}
	return out, r.loadMeta(ctx, out)
}

func (r *postgresRepository) loadMeta(ctx context.Context, ps []Payment) error {
	if len(ps) == 0 {
		return nil
	}
	ids := make([]int64, len(ps))
	index := make(map[int64]int, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
		index[p.ID] = i
	}
	var rows []struct {
		PaymentID int64  `db:"paymentid"`
		Key       string `db:"key"`
		Value     string `db:"value"`
	}
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT paymentid, key, value FROM payment_meta WHERE paymentid = ANY($1)`, pq.Array(ids)); err != nil {
		return err
	}
	for _, m := range rows {
		p := &ps[index[m.PaymentID]]
		if p.Meta == nil {
			p.Meta = make(map[string]string)
		}
		p.Meta[m.Key] = m.Value
	}
	return nil
}

func (r *postgresRepository) InsertPayments(ctx context.Context, ps []*Payment) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, p := range ps {
			if err := insertPayment(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertPayment(ctx context.Context, tx *sqlx.Tx, p *Payment) error {
	if p.Source == "" {
		p.Source = "default"
	}
	if err := tx.QueryRowxContext(ctx, `
		INSERT INTO payments (transid, amount, paytype, text, source, "user", time, pending)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		p.TransID, p.Amount, p.PayType, p.Text, p.Source, p.UserID, p.Time, p.Pending).Scan(&p.ID); err != nil {
		return err
	}
	return upsertMeta(ctx, tx, p.ID, p.Meta)
}

func upsertMeta(ctx context.Context, tx *sqlx.Tx, paymentID int64, meta map[string]string) error {
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO payment_meta (paymentid, key, value) VALUES ($1, $2, $3)
			ON CONFLICT (paymentid, key) DO UPDATE SET value = EXCLUDED.value`,
			paymentID, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresRepository) Complete(ctx context.Context, p *Payment, extra []*Payment) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE payments SET amount = $2, text = $3, pending = false
			WHERE id = $1 AND pending`, p.ID, p.Amount, p.Text)
		if err != nil {
			return err
		}
		if err := database.ExpectOne(res, "payment %d is no longer pending", p.ID); err != nil {
			return err
		}
		if err := upsertMeta(ctx, tx, p.ID, p.Meta); err != nil {
			return err
		}
		for _, e := range extra {
			if err := insertPayment(ctx, tx, e); err != nil {
				return err
			}
		}
		p.Pending = false
		return nil
	})
}

func (r *postgresRepository) SetMeta(ctx context.Context, paymentID int64, meta map[string]string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return upsertMeta(ctx, tx, paymentID, meta)
	})
}

func (r *postgresRepository) RefundedAgainst(ctx context.Context, originalID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, `
		SELECT coalesce(-sum(p.amount), 0.00)
		FROM payments p
		JOIN payment_meta m ON m.paymentid = p.id AND m.key = $2
		WHERE m.value = $1`, strconv.FormatInt(originalID, 10), MetaRefundOf)
	return total, err
}
