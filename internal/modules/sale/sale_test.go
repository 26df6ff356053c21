package sale

import (
	"testing"

	"github.com/georgemunganga/tillcore/internal/modules/catalog"
	"github.com/georgemunganga/tillcore/internal/modules/keyboard"
	"github.com/georgemunganga/tillcore/internal/modules/stockline"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func bitter() *catalog.StockTypeInfo {
	return &catalog.StockTypeInfo{
		StockType: catalog.StockType{ID: 1, Manufacturer: "Brewery", Name: "Beer", SalePrice: dp("3.50")},
		Unit: catalog.Unit{
			BaseUnit: "pint", SaleUnitName: "pint", SaleUnitNamePlural: "pints",
			BaseUnitsPerSaleUnit: d("1"), StockUnitName: "firkin", StockUnitNamePlural: "firkins",
			BaseUnitsPerStockUnit: d("72"),
		},
	}
}

var (
	pump   = &stockline.StockLine{ID: 1, Name: "Pump 1", LineType: stockline.Regular}
	fridge = &stockline.StockLine{ID: 2, Name: "Fridge", LineType: stockline.Display}
)

func TestProposedSale_Validate(t *testing.T) {
	s := FromStockType(bitter(), false)
	require.NoError(t, s.Validate())
	assert.Equal(t, "Brewery Beer pint", s.Description)
	assert.True(t, s.Qty.Equal(d("1")))

	bad := []ProposedSale{
		{Price: dp("1")},
		{Description: "x", Qty: dp("1")},
		{Description: "x", StockType: bitter()},
		{Description: "x", StockType: bitter(), Qty: dp("0")},
		{Description: "x", StockType: bitter(), Qty: dp("0.5"), WholeItems: true},
		{Description: "x", Price: dp("-1")},
	}
	for _, b := range bad {
		assert.Error(t, b.Validate(), "%+v", b)
	}

	plu := FromPLU(&keyboard.PLU{Description: "Crisps"})
	assert.NoError(t, plu.Validate(), "open price lookups have no price yet")
}

func TestRegistry_Builtins(t *testing.T) {
	reg := NewDefaultRegistry()
	assert.Equal(t, []string{"double", "half", "largeglass", "none", "pitcher"}, reg.Names())

	half := FromStockType(bitter(), false)
	require.NoError(t, reg.ApplyStockLine("half", pump, half))
	assert.Equal(t, "Brewery Beer half pint", half.Description)
	assert.True(t, half.Qty.Equal(d("0.5")))
	assert.True(t, half.Price.Equal(d("1.75")))

	double := FromStockType(bitter(), false)
	require.NoError(t, reg.ApplyStockLine("double", nil, double))
	assert.True(t, double.Qty.Equal(d("2")))
	assert.True(t, double.Price.Equal(d("7.00")))

	pitcher := FromStockType(bitter(), false)
	require.NoError(t, reg.ApplyStockLine("pitcher", pump, pitcher))
	assert.True(t, pitcher.Qty.Equal(d("4")))
	assert.True(t, pitcher.Price.Equal(d("12.60")))

	large := FromStockType(bitter(), false)
	require.NoError(t, reg.ApplyStockLine("largeglass", pump, large))
	assert.Equal(t, "Brewery Beer pint (large glass)", large.Description)
	assert.True(t, large.Price.Equal(d("3.50")))
}

func TestRegistry_Incompatible(t *testing.T) {
	reg := NewDefaultRegistry()

	bottle := FromStockType(bitter(), true)
	err := reg.ApplyStockLine("half", fridge, bottle)
	assert.True(t, tillerr.Is(err, tillerr.KindUser))
	err = reg.ApplyStockLine("double", fridge, bottle)
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	crisps := FromPLU(&keyboard.PLU{Description: "Crisps", Price: dp("1.20")})
	err = reg.ApplyPLU("half", nil, crisps)
	assert.True(t, tillerr.Is(err, tillerr.KindUser))
	err = reg.ApplyPLU("pitcher", nil, crisps)
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	require.NoError(t, reg.ApplyPLU("double", nil, crisps))
	assert.Equal(t, "Double Crisps", crisps.Description)
	assert.True(t, crisps.Price.Equal(d("2.40")))
}

func TestRegistry_NoneIsIdempotent(t *testing.T) {
	reg := NewDefaultRegistry()
	s := FromStockType(bitter(), false)
	before := *s
	require.NoError(t, reg.ApplyStockLine("none", pump, s))
	require.NoError(t, reg.ApplyStockLine("", pump, s))
	assert.Equal(t, before, *s)
}

type breaksQty struct{}

func (breaksQty) Name() string { return "broken" }

func (breaksQty) StockLine(_ *stockline.StockLine, s *ProposedSale) error {
	s.Qty = nil
	return nil
}

func (breaksQty) PLU(*keyboard.PLU, *ProposedSale) error { return nil }

func TestRegistry_Bugs(t *testing.T) {
	reg := NewDefaultRegistry()
	require.NoError(t, reg.Register(breaksQty{}))
	assert.Error(t, reg.Register(breaksQty{}), "duplicate name")

	err := reg.ApplyStockLine("broken", pump, FromStockType(bitter(), false))
	require.True(t, tillerr.Is(err, tillerr.KindBug))
	assert.Contains(t, tillerr.MessageOf(err), `modifier "broken"`)

	err = reg.ApplyStockLine("triple", pump, FromStockType(bitter(), false))
	assert.True(t, tillerr.Is(err, tillerr.KindBug))
}
