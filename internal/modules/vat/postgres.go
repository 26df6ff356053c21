package vat

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type postgresRepository struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepository{db: db} }

func (r *postgresRepository) CreateBand(ctx context.Context, b *Band) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO vat (band, description) VALUES (:band, :description)`, b)
	return err
}

func (r *postgresRepository) ListBands(ctx context.Context) ([]Band, error) {
	var bands []Band
	err := r.db.SelectContext(ctx, &bands, `SELECT band, description FROM vat ORDER BY band`)
	return bands, err
}

func (r *postgresRepository) AddRate(ctx context.Context, rate *Rate) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO vatrates (band, active, rate, business)
		VALUES (:band, :active, :rate, :business)`, rate)
	return err
}

func (r *postgresRepository) RateAt(ctx context.Context, band string, date time.Time) (*Rate, error) {
	var rate Rate
	err := r.db.GetContext(ctx, &rate, `
		SELECT band, active, rate, business FROM vatrates
		WHERE band = $1 AND active <= $2
		ORDER BY active DESC LIMIT 1`, band, date)
	if err != nil {
		return nil, err
	}
	return &rate, nil
}
