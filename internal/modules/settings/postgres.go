package settings

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type postgresRepository struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepository{db: db} }

func (r *postgresRepository) Get(ctx context.Context, key string) (*Setting, error) {
	s := &Setting{}
	if err := r.db.GetContext(ctx, s, `SELECT key, value, type, description FROM config WHERE key = $1`, key); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Setting, error) {
	var all []Setting
	err := r.db.SelectContext(ctx, &all, `SELECT key, value, type, description FROM config ORDER BY key`)
	return all, err
}

func (r *postgresRepository) SetValue(ctx context.Context, key, value string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE config SET value = $2 WHERE key = $1`, key, value)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errUnknownKey(key)
	}
	return nil
}
