package stockline

import (
	"testing"

	"github.com/georgemunganga/tillcore/internal/modules/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func item(id int64, size, used string, displayqty *decimal.Decimal) inventory.StockItem {
	return inventory.StockItem{ID: id, Size: d(size), Used: d(used), DisplayQty: displayqty, Available: true}
}

func TestCalculateRegular(t *testing.T) {
	cask := item(1, "72", "0", nil)

	alloc := CalculateRegular(&cask, d("1"))
	require.Len(t, alloc.Assignments, 1)
	assert.True(t, alloc.Assignments[0].Qty.Equal(d("1")))
	assert.True(t, alloc.Unallocated.IsZero())
	assert.True(t, alloc.Remaining.Equal(d("71")))

	alloc = CalculateRegular(&cask, d("80"))
	assert.True(t, alloc.Remaining.Equal(d("-8")), "regular lines may go negative")

	alloc = CalculateRegular(nil, d("2"))
	assert.Empty(t, alloc.Assignments)
	assert.True(t, alloc.Unallocated.Equal(d("2")))
}

func TestCalculateDisplay_Underflow(t *testing.T) {
	items := []inventory.StockItem{
		item(7, "1", "0", dp("1")),
		item(3, "24", "0", dp("2")),
		item(9, "24", "0", nil),
	}

	alloc := CalculateDisplay(items, d("4"))
	assert.True(t, alloc.Unallocated.Equal(d("1")))
	require.Len(t, alloc.Assignments, 2)
	assert.Equal(t, int64(3), alloc.Assignments[0].Item.ID)
	assert.True(t, alloc.Assignments[0].Qty.Equal(d("2")))
	assert.Equal(t, int64(7), alloc.Assignments[1].Item.ID)
	assert.True(t, alloc.Remaining.IsZero())
}

func TestCalculateDisplay_OrderAndRemaining(t *testing.T) {
	items := []inventory.StockItem{
		item(5, "12", "2", dp("6")),
		item(2, "12", "0", dp("6")),
	}
	alloc := CalculateDisplay(items, d("7"))
	assert.True(t, alloc.Unallocated.IsZero())
	require.Len(t, alloc.Assignments, 2)
	assert.Equal(t, int64(2), alloc.Assignments[0].Item.ID, "equal displayqty falls back to id order")
	assert.True(t, alloc.Assignments[0].Qty.Equal(d("6")))
	assert.True(t, alloc.Assignments[1].Qty.Equal(d("1")))
	assert.True(t, alloc.Remaining.Equal(d("3")))
}

func TestCalculateContinuous(t *testing.T) {
	items := []inventory.StockItem{
		item(5, "750", "650", nil),
		item(3, "750", "0", nil),
	}
	alloc := CalculateContinuous(items, d("875"))
	require.Len(t, alloc.Assignments, 2)
	assert.Equal(t, int64(3), alloc.Assignments[0].Item.ID)
	assert.True(t, alloc.Assignments[0].Qty.Equal(d("750")))
	assert.Equal(t, int64(5), alloc.Assignments[1].Item.ID)
	assert.True(t, alloc.Assignments[1].Qty.Equal(d("125")), "shortfall lands on the last item")
	assert.True(t, alloc.Unallocated.IsZero())
	assert.True(t, alloc.Remaining.Equal(d("-25")))

	alloc = CalculateContinuous(nil, d("175"))
	assert.Empty(t, alloc.Assignments)
	assert.True(t, alloc.Unallocated.Equal(d("175")))
}

func TestPlanRestock(t *testing.T) {
	items := []inventory.StockItem{
		item(2, "12", "0", nil),
		item(1, "12", "2", dp("4")),
	}

	moves := PlanRestock(6, items)
	require.Len(t, moves, 1)
	assert.Equal(t, int64(1), moves[0].Item.ID)
	assert.True(t, moves[0].Move.Equal(d("4")))
	assert.True(t, moves[0].NewDisplayQty.Equal(d("8")))

	moves = PlanRestock(12, items)
	require.Len(t, moves, 2)
	assert.True(t, moves[0].NewDisplayQty.Equal(d("12")))
	assert.Equal(t, int64(2), moves[1].Item.ID)
	assert.True(t, moves[1].Move.Equal(d("2")))
	assert.True(t, moves[1].NewDisplayQty.Equal(d("2")))

	assert.Empty(t, PlanRestock(2, items), "display already at capacity")
}
