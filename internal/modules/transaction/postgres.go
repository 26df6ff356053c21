package transaction

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/modules/inventory"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL transaction repository.
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const transColumns = `
	t.id, t.sessionid, t.closed, t.notes, t.discount_policy,
	coalesce((SELECT sum(l.items * l.amount) FROM translines l WHERE l.transid = t.id), 0.00) AS total,
	coalesce((SELECT sum(p.amount) FROM payments p WHERE p.transid = t.id), 0.00) AS paid,
	(SELECT count(*) FROM payments p WHERE p.transid = t.id) AS payment_count,
	EXISTS (SELECT 1 FROM payments p WHERE p.transid = t.id AND p.pending) AS pending`

const lineColumns = `id, transid, items, amount, dept, "user", transcode, text, time,
	source, modifier, discount, discount_name, voided_by`

func (r *postgresRepository) OpenSessionID(ctx context.Context) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `SELECT id FROM sessions WHERE endtime IS NULL`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return id, err
}

func (r *postgresRepository) Create(ctx context.Context, t *Transaction, ownerID int64, at time.Time) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertTransaction(ctx, tx, t); err != nil {
			return err
		}
		return takeOwnership(ctx, tx, ownerID, t.ID, at)
	})
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	return tx.QueryRowxContext(ctx, `
		INSERT INTO transactions (sessionid, notes) VALUES ($1, $2) RETURNING id`,
		t.SessionID, t.Notes).Scan(&t.ID)
}

// takeOwnership gives a transaction nobody owns yet to userID.
func takeOwnership(ctx context.Context, tx *sqlx.Tx, userID, transID int64, at time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE users SET transaction = $2, trans_since = $3 WHERE id = $1`, userID, transID, at)
	if err != nil {
		return err
	}
	return database.ExpectOne(res, "user %d no longer exists", userID)
}

func (r *postgresRepository) Get(ctx context.Context, id int64) (*Transaction, error) {
	t := &Transaction{}
	if err := r.db.GetContext(ctx, t, `SELECT `+transColumns+` FROM transactions t WHERE t.id = $1`, id); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresRepository) Lines(ctx context.Context, transID int64) ([]Line, error) {
	var lines []Line
	err := r.db.SelectContext(ctx, &lines,
		`SELECT `+lineColumns+` FROM translines WHERE transid = $1 ORDER BY id`, transID)
	return lines, err
}

func (r *postgresRepository) StockOutForLines(ctx context.Context, lineIDs []int64) ([]inventory.StockOut, error) {
	var out []inventory.StockOut
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, stockid, qty, removecode, translineid, stocktake, time
		FROM stockout WHERE translineid = ANY($1) ORDER BY id`, pq.Array(lineIDs))
	return out, err
}

func insertLine(ctx context.Context, tx *sqlx.Tx, l *Line) error {
	return tx.QueryRowxContext(ctx, `
		INSERT INTO translines (transid, items, amount, dept, "user", transcode, text, time, source, modifier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		l.TransID, l.Items, l.Amount, l.DeptID, l.UserID, l.TransCode, l.Text, l.Time, l.Source, l.Modifier,
	).Scan(&l.ID)
}

func insertStockOut(ctx context.Context, tx *sqlx.Tx, so *inventory.StockOut) error {
	return tx.QueryRowxContext(ctx, `
		INSERT INTO stockout (stockid, qty, removecode, translineid, time)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		so.StockID, so.Qty, so.RemoveCode, so.TranslineID, so.Time).Scan(&so.ID)
}

func (r *postgresRepository) InsertLine(ctx context.Context, l *Line, out []inventory.StockOut) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertLine(ctx, tx, l); err != nil {
			return err
		}
		for i := range out {
			out[i].TranslineID = &l.ID
			if err := insertStockOut(ctx, tx, &out[i]); err != nil {
				return err
			}
		}
		l.StockOut = out
		return nil
	})
}

func (r *postgresRepository) IncrementLine(ctx context.Context, lineID, by int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE stockout so SET qty = so.qty * (l.items + $2) / l.items
			FROM translines l
			WHERE so.translineid = l.id AND l.id = $1`, lineID, by); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE translines SET items = items + $2
			WHERE id = $1 AND voided_by IS NULL AND items + $2 > 0`, lineID, by)
		if err != nil {
			return err
		}
		return database.ExpectOne(res, "line %d was changed on another terminal", lineID)
	})
}

func (r *postgresRepository) ApplyVoids(ctx context.Context, p *VoidPlan) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if p.Target.ID == 0 {
			if err := insertTransaction(ctx, tx, p.Target); err != nil {
				return err
			}
			if err := takeOwnership(ctx, tx, p.UserID, p.Target.ID, p.At); err != nil {
				return err
			}
		}
		if len(p.Delete) > 0 {
			res, err := tx.ExecContext(ctx, `
				DELETE FROM translines WHERE id = ANY($1) AND voided_by IS NULL`, pq.Array(p.Delete))
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n != int64(len(p.Delete)) {
				return tillerr.Concurrent("lines were changed on another terminal", nil)
			}
		}
		for i := range p.Reverse {
			orig := p.Reverse[i]
			v := Line{
				TransID:   p.Target.ID,
				Items:     -orig.Items,
				Amount:    orig.Amount,
				DeptID:    orig.DeptID,
				UserID:    &p.UserID,
				TransCode: CodeVoid,
				Text:      orig.Text,
				Time:      p.At,
				Source:    orig.Source,
				Modifier:  orig.Modifier,
			}
			if err := insertLine(ctx, tx, &v); err != nil {
				return err
			}
			for _, so := range orig.StockOut {
				rev := inventory.StockOut{
					StockID:     so.StockID,
					Qty:         so.Qty.Neg(),
					RemoveCode:  so.RemoveCode,
					TranslineID: &v.ID,
					Time:        p.At,
				}
				if err := insertStockOut(ctx, tx, &rev); err != nil {
					return err
				}
				v.StockOut = append(v.StockOut, rev)
			}
			res, err := tx.ExecContext(ctx, `
				UPDATE translines SET voided_by = $2 WHERE id = $1 AND voided_by IS NULL`, orig.ID, v.ID)
			if err != nil {
				return err
			}
			if err := database.ExpectOne(res, "line %d has already been voided", orig.ID); err != nil {
				return err
			}
			p.Reverse[i] = v
		}
		return nil
	})
}

func (r *postgresRepository) MoveLines(ctx context.Context, lineIDs []int64, fromID, toID int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return moveLines(ctx, tx, lineIDs, fromID, toID)
	})
}

func moveLines(ctx context.Context, tx *sqlx.Tx, lineIDs []int64, fromID, toID int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE translines SET transid = $3 WHERE id = ANY($1) AND transid = $2`,
		pq.Array(lineIDs), fromID, toID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != int64(len(lineIDs)) {
		return tillerr.Concurrent("lines were moved on another terminal", nil)
	}
	return nil
}

func (r *postgresRepository) Split(ctx context.Context, t *Transaction, fromID int64, lineIDs []int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertTransaction(ctx, tx, t); err != nil {
			return err
		}
		return moveLines(ctx, tx, lineIDs, fromID, t.ID)
	})
}

func (r *postgresRepository) Merge(ctx context.Context, fromID, intoID int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE translines SET transid = $2 WHERE transid = $1`, fromID, intoID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM transactions t
			WHERE t.id = $1 AND NOT t.closed
			  AND NOT EXISTS (SELECT 1 FROM payments p WHERE p.transid = t.id)`, fromID)
		if err != nil {
			return err
		}
		return database.ExpectOne(res, "transaction %d was changed on another terminal", fromID)
	})
}

func (r *postgresRepository) Defer(ctx context.Context, id int64, refund *Refund) (int64, error) {
	var refundTrans int64
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if refund != nil {
			if err := tx.QueryRowxContext(ctx, `
				INSERT INTO transactions (sessionid, notes)
				SELECT sessionid, 'Payments from deferred transaction ' || id
				FROM transactions WHERE id = $1
				RETURNING id`, id).Scan(&refundTrans); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE payments SET transid = $2 WHERE transid = $1`, id, refundTrans); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO payments (transid, amount, paytype, text, "user", time)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				refundTrans, refund.Amount.Neg(), refund.PayType, refund.Text, refund.UserID, refund.Time); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE transactions SET closed = true WHERE id = $1`, refundTrans); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE transactions SET sessionid = NULL
			WHERE id = $1 AND NOT closed AND sessionid IS NOT NULL`, id)
		if err != nil {
			return err
		}
		return database.ExpectOne(res, "transaction %d was changed on another terminal", id)
	})
	return refundTrans, err
}

func (r *postgresRepository) Freebie(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE stockout SET removecode = $2, translineid = NULL
			WHERE translineid IN (SELECT id FROM translines WHERE transid = $1)`,
			id, inventory.RemoveFreebie); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM transactions t
			WHERE t.id = $1 AND NOT t.closed
			  AND NOT EXISTS (SELECT 1 FROM payments p WHERE p.transid = t.id)`, id)
		if err != nil {
			return err
		}
		return database.ExpectOne(res, "transaction %d was changed on another terminal", id)
	})
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM transactions t
		WHERE t.id = $1 AND NOT t.closed
		  AND NOT EXISTS (SELECT 1 FROM translines l WHERE l.transid = t.id)
		  AND NOT EXISTS (SELECT 1 FROM payments p WHERE p.transid = t.id)`, id)
	if err != nil {
		return err
	}
	return database.ExpectOne(res, "transaction %d is no longer empty", id)
}

func (r *postgresRepository) Close(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET closed = true WHERE id = $1 AND NOT closed`, id)
	if err != nil {
		return err
	}
	return database.ExpectOne(res, "transaction %d has already been closed", id)
}

func (r *postgresRepository) SetNotes(ctx context.Context, id int64, notes string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET notes = $2 WHERE id = $1 AND NOT closed`, id, notes)
	if err != nil {
		return err
	}
	return database.ExpectOne(res, "transaction %d has been closed", id)
}

func (r *postgresRepository) SetSession(ctx context.Context, id, sessionID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET sessionid = $2
		WHERE id = $1 AND sessionid IS NULL AND NOT closed`, id, sessionID)
	if err != nil {
		return err
	}
	return database.ExpectOne(res, "transaction %d is no longer deferred", id)
}

func (r *postgresRepository) Related(ctx context.Context, id int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `
		WITH RECURSIVE related(transid) AS (
			SELECT $1::integer
			UNION
			SELECT other.transid
			FROM related r
			JOIN translines l ON l.transid = r.transid
			JOIN translines other ON other.id = l.voided_by OR other.voided_by = l.id
		)
		SELECT transid FROM related ORDER BY transid`, id)
	return ids, err
}

func (r *postgresRepository) Recallable(ctx context.Context, sessionID int64) ([]Summary, error) {
	var out []Summary
	err := r.db.SelectContext(ctx, &out, `
		SELECT t.id, t.sessionid, t.notes,
		       coalesce((SELECT sum(l.items * l.amount) FROM translines l WHERE l.transid = t.id), 0.00) AS total,
		       coalesce((SELECT sum(p.amount) FROM payments p WHERE p.transid = t.id), 0.00) AS paid,
		       u.id AS owner_id, u.fullname AS owner
		FROM transactions t
		LEFT JOIN users u ON u.transaction = t.id
		WHERE NOT t.closed AND (t.sessionid = $1 OR t.sessionid IS NULL)
		ORDER BY t.sessionid NULLS LAST, t.id`, sessionID)
	return out, err
}
