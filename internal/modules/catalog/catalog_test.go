package catalog

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func pintUnit() *Unit {
	return &Unit{
		Description:           "Beer, in pints",
		BaseUnit:              "pint",
		SaleUnitName:          "pint",
		SaleUnitNamePlural:    "pints",
		BaseUnitsPerSaleUnit:  d("1"),
		StockUnitName:         "firkin",
		StockUnitNamePlural:   "firkins",
		BaseUnitsPerStockUnit: d("72"),
	}
}

func wineUnit() *Unit {
	return &Unit{
		BaseUnit:              "ml",
		SaleUnitName:          "175ml glass",
		SaleUnitNamePlural:    "175ml glasses",
		BaseUnitsPerSaleUnit:  d("175"),
		StockUnitName:         "bottle",
		StockUnitNamePlural:   "bottles",
		BaseUnitsPerStockUnit: d("750"),
	}
}

func TestUnit_Format(t *testing.T) {
	wine := wineUnit()
	tests := []struct {
		qty  string
		want string
	}{
		{"125", "125 ml"},
		{"-125", "-125 ml"},
		{"175", "1 175ml glass"},
		{"350", "2 175ml glasses"},
		{"-350", "-2 175ml glasses"},
		{"750", "1 bottle"},
		{"760", "1 bottle"},
		{"1500", "2 bottles"},
		{"-1500", "-2 bottles"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wine.Format(d(tt.qty)), tt.qty)
	}

	pints := pintUnit()
	assert.Equal(t, "0.5 pint", pints.Format(d("0.5")))
	assert.Equal(t, "3.5 pints", pints.Format(d("3.5")))
	assert.Equal(t, "1 firkin", pints.Format(d("72")))
	assert.Equal(t, "1.5 firkins", pints.Format(d("108")))
}

func TestDepartment_Bounds(t *testing.T) {
	dept := &Department{Description: "Real Ale", MinPrice: dp("1.00"), MaxPrice: dp("10.00"), MinABV: dp("2.0"), MaxABV: dp("12.0")}

	assert.NoError(t, dept.CheckPrice(d("3.50")))
	assert.True(t, tillerr.Is(dept.CheckPrice(d("0")), tillerr.KindUser))
	assert.True(t, tillerr.Is(dept.CheckPrice(d("0.50")), tillerr.KindUser))
	assert.True(t, tillerr.Is(dept.CheckPrice(d("10.01")), tillerr.KindUser))

	assert.NoError(t, dept.CheckABV(dp("4.1")))
	assert.Error(t, dept.CheckABV(nil))
	assert.Error(t, dept.CheckABV(dp("1.0")))
	assert.Error(t, dept.CheckABV(dp("15.0")))

	open := &Department{Description: "Misc"}
	assert.NoError(t, open.CheckABV(nil))
	assert.NoError(t, open.CheckPrice(d("-1.00")))
	assert.NoError(t, open.CheckPrice(d("0")))
}

func TestStockTypeInfo_SaleDescription(t *testing.T) {
	info := &StockTypeInfo{
		StockType: StockType{Manufacturer: "Brewery", Name: "Beer"},
		Unit:      *pintUnit(),
	}
	assert.Equal(t, "Brewery Beer", info.Format())
	assert.Equal(t, "Brewery Beer pint", info.SaleDescription())
}

type memRepo struct {
	depts      map[int64]*Department
	units      map[int64]*Unit
	stockunits map[int64]*StockUnit
	types      map[int64]*StockType
	lastLike   [2]string
}

func newMemRepo() *memRepo {
	return &memRepo{
		depts:      map[int64]*Department{},
		units:      map[int64]*Unit{},
		stockunits: map[int64]*StockUnit{},
		types:      map[int64]*StockType{},
	}
}

func (m *memRepo) CreateDepartment(_ context.Context, dept *Department) error {
	dept.ID = int64(len(m.depts) + 1)
	c := *dept
	m.depts[dept.ID] = &c
	return nil
}

func (m *memRepo) GetDepartment(_ context.Context, id int64) (*Department, error) {
	if dept, ok := m.depts[id]; ok {
		c := *dept
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memRepo) ListDepartments(context.Context) ([]Department, error) {
	var out []Department
	for i := int64(1); i <= int64(len(m.depts)); i++ {
		out = append(out, *m.depts[i])
	}
	return out, nil
}

func (m *memRepo) CreateUnit(_ context.Context, u *Unit) error {
	u.ID = int64(len(m.units) + 1)
	c := *u
	m.units[u.ID] = &c
	return nil
}

func (m *memRepo) GetUnit(_ context.Context, id int64) (*Unit, error) {
	if u, ok := m.units[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memRepo) CreateStockUnit(_ context.Context, su *StockUnit) error {
	su.ID = int64(len(m.stockunits) + 1)
	c := *su
	m.stockunits[su.ID] = &c
	return nil
}

func (m *memRepo) GetStockUnit(_ context.Context, id int64) (*StockUnit, error) {
	if su, ok := m.stockunits[id]; ok {
		c := *su
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memRepo) ListStockUnits(_ context.Context, unitID int64) ([]StockUnit, error) {
	var out []StockUnit
	for _, su := range m.stockunits {
		if su.UnitID == unitID {
			out = append(out, *su)
		}
	}
	return out, nil
}

func (m *memRepo) CreateStockType(_ context.Context, st *StockType) error {
	for _, e := range m.types {
		if e.DeptID == st.DeptID && e.Manufacturer == st.Manufacturer && e.Name == st.Name && e.UnitID == st.UnitID {
			return &pq.Error{Code: "23505"}
		}
	}
	st.ID = int64(len(m.types) + 1)
	c := *st
	m.types[st.ID] = &c
	return nil
}

func (m *memRepo) GetStockType(_ context.Context, id int64) (*StockType, error) {
	if st, ok := m.types[id]; ok {
		c := *st
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memRepo) SearchStockTypes(_ context.Context, manufacturer, name string) ([]StockType, error) {
	m.lastLike = [2]string{manufacturer, name}
	var out []StockType
	for _, st := range m.types {
		if !st.Archived {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (m *memRepo) FindStockType(_ context.Context, key StockTypeKey) (*StockType, error) {
	for _, st := range m.types {
		if st.DeptID == key.DeptID && st.Manufacturer == key.Manufacturer && st.Name == key.Name && st.UnitID == key.UnitID {
			c := *st
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memRepo) UpdatePrice(_ context.Context, id int64, price *decimal.Decimal, at time.Time) error {
	m.types[id].SalePrice = price
	m.types[id].PriceChanged = &at
	return nil
}

func (m *memRepo) SetArchived(_ context.Context, id int64, archived bool) error {
	m.types[id].Archived = archived
	return nil
}

func setup(t *testing.T) (Service, *memRepo, *clock.Manual) {
	t.Helper()
	repo := newMemRepo()
	clk := clock.NewManual(time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC))
	svc := NewService(repo, clk)

	ctx := context.Background()
	_, err := svc.CreateDepartment(ctx, Department{Description: "Real Ale", VatBand: "A", MinABV: dp("2.0"), MaxPrice: dp("8.00")})
	require.NoError(t, err)
	_, err = svc.CreateUnit(ctx, *pintUnit())
	require.NoError(t, err)
	return svc, repo, clk
}

func TestService_CreateStockType(t *testing.T) {
	svc, _, clk := setup(t)
	ctx := context.Background()

	req := CreateStockTypeRequest{
		StockTypeKey: StockTypeKey{DeptID: 1, Manufacturer: "Brewery", Name: "Beer", ABV: dp("4.1"), UnitID: 1},
		SalePrice:    dp("3.50"),
	}
	st, err := svc.CreateStockType(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Beer", st.Shortname)
	require.NotNil(t, st.PriceChanged)
	assert.Equal(t, clk.Now(), *st.PriceChanged)

	_, err = svc.CreateStockType(ctx, req)
	assert.True(t, tillerr.Is(err, tillerr.KindUser), "duplicate identity")

	noABV := req
	noABV.Name = "Mystery"
	noABV.ABV = nil
	_, err = svc.CreateStockType(ctx, noABV)
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	pricey := req
	pricey.Name = "Gold"
	pricey.SalePrice = dp("9.00")
	_, err = svc.CreateStockType(ctx, pricey)
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	info, err := svc.Describe(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "Brewery Beer pint", info.SaleDescription())
	assert.Equal(t, "Real Ale", info.Department.Description)
}

func TestService_RepriceAndArchive(t *testing.T) {
	svc, repo, clk := setup(t)
	ctx := context.Background()

	st, err := svc.CreateStockType(ctx, CreateStockTypeRequest{
		StockTypeKey: StockTypeKey{DeptID: 1, Manufacturer: "Brewery", Name: "Beer", ABV: dp("4.1"), UnitID: 1},
	})
	require.NoError(t, err)
	assert.Nil(t, st.PriceChanged)

	clk.Advance(time.Hour)
	st, err = svc.Reprice(ctx, st.ID, dp("3.755"))
	require.NoError(t, err)
	assert.Equal(t, "3.76", st.SalePrice.StringFixed(2))
	assert.Equal(t, clk.Now(), *repo.types[st.ID].PriceChanged)

	_, err = svc.Reprice(ctx, st.ID, dp("0"))
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	_, err = svc.Reprice(ctx, st.ID, dp("12.00"))
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	require.NoError(t, svc.Archive(ctx, st.ID, true))
	found, err := svc.FuzzyLookup(ctx, "brew", "50%_off")
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, [2]string{"%brew%", `%50\%\_off%`}, repo.lastLike)

	exact, err := svc.ExactLookup(ctx, StockTypeKey{DeptID: 1, Manufacturer: "Brewery", Name: "Beer", UnitID: 1})
	require.NoError(t, err)
	assert.Equal(t, st.ID, exact.ID)
}
