package supplier

import (
	"context"
	"strings"

	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/tillerr"
)

type Service interface {
	CreateSupplier(ctx context.Context, req SupplierRequest) (*Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, req SupplierRequest) (*Supplier, error)
	GetSupplier(ctx context.Context, id int64) (*Supplier, error)
	FindSupplier(ctx context.Context, name string) (*Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	CreateBusiness(ctx context.Context, b Business) (*Business, error)
	ListBusinesses(ctx context.Context) ([]Business, error)
}

type service struct {
	supplierRepo Repository
	businessRepo BusinessRepository
}

func NewService(supplierRepo Repository, businessRepo BusinessRepository) Service {
	return &service{supplierRepo: supplierRepo, businessRepo: businessRepo}
}

func (s *service) CreateSupplier(ctx context.Context, req SupplierRequest) (*Supplier, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, tillerr.User("supplier name is required")
	}
	sup := &Supplier{Name: name, Tel: req.Tel, Email: req.Email, Web: req.Web, AccInfo: req.AccInfo}
	if err := s.supplierRepo.Create(ctx, sup); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, tillerr.User("a supplier called %q already exists", name)
		}
		return nil, database.Classify(err)
	}
	return sup, nil
}

func (s *service) UpdateSupplier(ctx context.Context, id int64, req SupplierRequest) (*Supplier, error) {
	sup, err := s.GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		sup.Name = name
	}
	sup.Tel, sup.Email, sup.Web, sup.AccInfo = req.Tel, req.Email, req.Web, req.AccInfo
	if err := s.supplierRepo.Update(ctx, sup); err != nil {
		return nil, database.Classify(err)
	}
	return sup, nil
}

func (s *service) GetSupplier(ctx context.Context, id int64) (*Supplier, error) {
	sup, err := s.supplierRepo.GetByID(ctx, id)
	if err != nil {
		return nil, database.Classify(err)
	}
	return sup, nil
}

func (s *service) FindSupplier(ctx context.Context, name string) (*Supplier, error) {
	sup, err := s.supplierRepo.GetByName(ctx, name)
	if err != nil {
		return nil, database.Classify(err)
	}
	return sup, nil
}

func (s *service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	return s.supplierRepo.List(ctx)
}

func (s *service) CreateBusiness(ctx context.Context, b Business) (*Business, error) {
	if strings.TrimSpace(b.Name) == "" || strings.TrimSpace(b.Abbrev) == "" {
		return nil, tillerr.User("business name and abbreviation are required")
	}
	if err := s.businessRepo.CreateBusiness(ctx, &b); err != nil {
		return nil, database.Classify(err)
	}
	return &b, nil
}

func (s *service) ListBusinesses(ctx context.Context) ([]Business, error) {
	return s.businessRepo.ListBusinesses(ctx)
}
