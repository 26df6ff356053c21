package stockline

import (
	"sort"

	"github.com/georgemunganga/tillcore/internal/modules/inventory"
	"github.com/shopspring/decimal"
)

// CalculateRegular resolves qty against the single item attached to a
// regular line. The item may be driven negative; with no item attached
// nothing is allocated.
func CalculateRegular(item *inventory.StockItem, qty decimal.Decimal) Allocation {
	if item == nil {
		return Allocation{Unallocated: qty, Remaining: decimal.Zero}
	}
	return Allocation{
		Assignments: []Assignment{{Item: *item, Qty: qty}},
		Unallocated: decimal.Zero,
		Remaining:   item.Remaining().Sub(qty),
	}
}

// SortForDisplay orders display items for sale: displayqty descending,
// with null as zero, then id ascending.
func SortForDisplay(items []inventory.StockItem) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := displayKey(items[i]), displayKey(items[j])
		if !di.Equal(dj) {
			return di.GreaterThan(dj)
		}
		return items[i].ID < items[j].ID
	})
}

func displayKey(item inventory.StockItem) decimal.Decimal {
	if item.DisplayQty == nil {
		return decimal.Zero
	}
	return *item.DisplayQty
}

// CalculateDisplay resolves qty against what is on display. Stock in the
// back is never drawn on; any shortfall is returned as unallocated.
func CalculateDisplay(items []inventory.StockItem, qty decimal.Decimal) Allocation {
	sorted := append([]inventory.StockItem(nil), items...)
	SortForDisplay(sorted)

	alloc := Allocation{Unallocated: qty}
	onDisplay := decimal.Zero
	for _, item := range sorted {
		avail := item.OnDisplay()
		if avail.IsPositive() {
			onDisplay = onDisplay.Add(avail)
		}
		if !alloc.Unallocated.IsPositive() || !avail.IsPositive() {
			continue
		}
		take := decimal.Min(alloc.Unallocated, avail)
		alloc.Assignments = append(alloc.Assignments, Assignment{Item: item, Qty: take})
		alloc.Unallocated = alloc.Unallocated.Sub(take)
	}
	alloc.Remaining = onDisplay.Sub(qty.Sub(alloc.Unallocated))
	return alloc
}

// CalculateContinuous resolves qty against stock on sale in id order.
// Whatever cannot be covered is taken from the last item, leaving it
// negative. With no stock at all nothing is allocated.
func CalculateContinuous(items []inventory.StockItem, qty decimal.Decimal) Allocation {
	if len(items) == 0 {
		return Allocation{Unallocated: qty, Remaining: decimal.Zero}
	}
	sorted := append([]inventory.StockItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	total := decimal.Zero
	need := qty
	taken := make([]decimal.Decimal, len(sorted))
	for i, item := range sorted {
		rem := item.Remaining()
		total = total.Add(rem)
		if !need.IsPositive() || !rem.IsPositive() {
			continue
		}
		take := decimal.Min(need, rem)
		taken[i] = take
		need = need.Sub(take)
	}
	if need.IsPositive() {
		last := len(sorted) - 1
		taken[last] = taken[last].Add(need)
	}

	alloc := Allocation{Unallocated: decimal.Zero, Remaining: total.Sub(qty)}
	for i, item := range sorted {
		if taken[i].IsPositive() {
			alloc.Assignments = append(alloc.Assignments, Assignment{Item: item, Qty: taken[i]})
		}
	}
	return alloc
}

// PlanRestock lists the movements that bring the amount on display up to
// capacity, taking backstock from items in id order.
func PlanRestock(capacity int64, items []inventory.StockItem) []Movement {
	sorted := append([]inventory.StockItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	onDisplay := decimal.Zero
	for _, item := range sorted {
		if d := item.OnDisplay(); d.IsPositive() {
			onDisplay = onDisplay.Add(d)
		}
	}
	space := decimal.NewFromInt(capacity).Sub(onDisplay)

	var moves []Movement
	for _, item := range sorted {
		if !space.IsPositive() {
			break
		}
		backstock := item.InStock()
		if !backstock.IsPositive() {
			continue
		}
		move := decimal.Min(space, backstock)
		moves = append(moves, Movement{
			Item:          item,
			Move:          move,
			NewDisplayQty: decimal.Max(item.DisplayMark(), item.Used).Add(move),
		})
		space = space.Sub(move)
	}
	return moves
}
