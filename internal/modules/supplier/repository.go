package supplier

import "context"

// Repository defines the interface for supplier data storage.
type Repository interface {
	Create(ctx context.Context, s *Supplier) error
	Update(ctx context.Context, s *Supplier) error
	GetByID(ctx context.Context, id int64) (*Supplier, error)
	GetByName(ctx context.Context, name string) (*Supplier, error)
	List(ctx context.Context) ([]Supplier, error)
}

// BusinessRepository defines the interface for business data storage.
type BusinessRepository interface {
	CreateBusiness(ctx context.Context, b *Business) error
	ListBusinesses(ctx context.Context) ([]Business, error)
}
