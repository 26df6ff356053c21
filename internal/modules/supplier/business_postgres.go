package supplier

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type businessPostgresRepository struct {
	db *sqlx.DB
}

// NewBusinessPostgresRepository creates a new PostgreSQL business repository.
func NewBusinessPostgresRepository(db *sqlx.DB) BusinessRepository {
	return &businessPostgresRepository{db: db}
}

func (r *businessPostgresRepository) CreateBusiness(ctx context.Context, b *Business) error {
	query := `
		INSERT INTO businesses (name, abbrev, address, vatno, show_vat_breakdown)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.db.QueryRowxContext(ctx, query, b.Name, b.Abbrev, b.Address, b.VatNo, b.ShowVatBreakdown).Scan(&b.ID)
}

func (r *businessPostgresRepository) ListBusinesses(ctx context.Context) ([]Business, error) {
	var businesses []Business
	err := r.db.SelectContext(ctx, &businesses, `
		SELECT id, name, abbrev, address, vatno, show_vat_breakdown
		FROM businesses ORDER BY id`)
	return businesses, err
}
