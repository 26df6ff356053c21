package supplier

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL supplier repository.
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, s *Supplier) error {
	query := `
		INSERT INTO suppliers (name, tel, email, web, accinfo)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.db.QueryRowxContext(ctx, query, s.Name, s.Tel, s.Email, s.Web, s.AccInfo).Scan(&s.ID)
}

func (r *postgresRepository) Update(ctx context.Context, s *Supplier) error {
	_, err := r.db.NamedExecContext(ctx, `
		UPDATE suppliers
		SET name = :name, tel = :tel, email = :email, web = :web, accinfo = :accinfo
		WHERE id = :id`, s)
	return err
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Supplier, error) {
	s := &Supplier{}
	err := r.db.GetContext(ctx, s, `SELECT id, name, tel, email, web, accinfo FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepository) GetByName(ctx context.Context, name string) (*Supplier, error) {
	s := &Supplier{}
	err := r.db.GetContext(ctx, s, `SELECT id, name, tel, email, web, accinfo FROM suppliers WHERE name = $1`, name)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Supplier, error) {
	var suppliers []Supplier
	err := r.db.SelectContext(ctx, &suppliers, `SELECT id, name, tel, email, web, accinfo FROM suppliers ORDER BY name`)
	return suppliers, err
}
