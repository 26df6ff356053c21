package supplier

import (
	"context"
	"database/sql"
	"testing"

	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	suppliers  []Supplier
	businesses []Business
}

func (m *memRepo) Create(_ context.Context, s *Supplier) error {
	for _, e := range m.suppliers {
		if e.Name == s.Name {
			return &pq.Error{Code: "23505"}
		}
	}
	s.ID = int64(len(m.suppliers) + 1)
	m.suppliers = append(m.suppliers, *s)
	return nil
}

func (m *memRepo) Update(_ context.Context, s *Supplier) error {
	m.suppliers[s.ID-1] = *s
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*Supplier, error) {
	if id < 1 || int(id) > len(m.suppliers) {
		return nil, sql.ErrNoRows
	}
	s := m.suppliers[id-1]
	return &s, nil
}

func (m *memRepo) GetByName(_ context.Context, name string) (*Supplier, error) {
	for _, s := range m.suppliers {
		if s.Name == name {
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memRepo) List(context.Context) ([]Supplier, error) { return m.suppliers, nil }

func (m *memRepo) CreateBusiness(_ context.Context, b *Business) error {
	b.ID = int64(len(m.businesses) + 1)
	m.businesses = append(m.businesses, *b)
	return nil
}

func (m *memRepo) ListBusinesses(context.Context) ([]Business, error) { return m.businesses, nil }

func TestService_Suppliers(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, repo)
	ctx := context.Background()

	_, err := svc.CreateSupplier(ctx, SupplierRequest{Name: "  "})
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	sup, err := svc.CreateSupplier(ctx, SupplierRequest{Name: "Brewery Ltd"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), sup.ID)

	_, err = svc.CreateSupplier(ctx, SupplierRequest{Name: "Brewery Ltd"})
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	tel := "01223 000000"
	sup, err = svc.UpdateSupplier(ctx, 1, SupplierRequest{Tel: &tel})
	require.NoError(t, err)
	assert.Equal(t, "Brewery Ltd", sup.Name)
	assert.Equal(t, tel, *sup.Tel)

	found, err := svc.FindSupplier(ctx, "Brewery Ltd")
	require.NoError(t, err)
	assert.Equal(t, sup.ID, found.ID)

	_, err = svc.GetSupplier(ctx, 9)
	assert.True(t, tillerr.Is(err, tillerr.KindState))
}

func TestService_Businesses(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, repo)

	_, err := svc.CreateBusiness(context.Background(), Business{Name: "The Pub"})
	assert.Error(t, err)

	b, err := svc.CreateBusiness(context.Background(), Business{Name: "The Pub", Abbrev: "PUB"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.ID)

	list, err := svc.ListBusinesses(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
