package stockline

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/modules/inventory"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStock backs both the Items and Repository fakes so attachments are
// visible to each.
type memStock struct {
	clock  clock.Clock
	lines  map[int64]*StockLine
	items  map[int64]*inventory.StockItem
	outs   []inventory.StockOut
	nextID int64
}

func newMemStock(clk clock.Clock) *memStock {
	return &memStock{clock: clk, lines: map[int64]*StockLine{}, items: map[int64]*inventory.StockItem{}}
}

func (m *memStock) addItem(stockType int64, size string) *inventory.StockItem {
	m.nextID++
	it := &inventory.StockItem{ID: m.nextID, StockTypeID: stockType, Size: d(size), Available: true}
	m.items[it.ID] = it
	return it
}

// Items

func (m *memStock) GetItem(_ context.Context, id int64) (*inventory.StockItem, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, tillerr.State("stock item %d not found", id)
	}
	cp := *it
	return &cp, nil
}

func (m *memStock) ItemsOnLine(_ context.Context, lineID int64) ([]inventory.StockItem, error) {
	var out []inventory.StockItem
	for _, it := range m.items {
		if it.StockLineID != nil && *it.StockLineID == lineID {
			out = append(out, *it)
		}
	}
	SortForDisplay(out)
	return out, nil
}

func (m *memStock) StockOnSale(_ context.Context, stockTypeID int64) ([]inventory.StockItem, error) {
	var out []inventory.StockItem
	for _, it := range m.items {
		if it.StockTypeID == stockTypeID && it.StockLineID == nil && !it.IsFinished() && it.Available {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStock) RecordWaste(_ context.Context, req inventory.WasteRequest) (*inventory.StockOut, error) {
	out := inventory.StockOut{ID: int64(len(m.outs) + 1), StockID: req.StockID, Qty: req.Qty, RemoveCode: req.RemoveCode, Time: m.clock.Now()}
	m.outs = append(m.outs, out)
	it := m.items[req.StockID]
	it.Used = it.Used.Add(req.Qty)
	return &out, nil
}

func (m *memStock) FinishItem(_ context.Context, id int64, code string) error {
	it := m.items[id]
	now := m.clock.Now()
	it.Finished, it.FinishCode, it.StockLineID = &now, &code, nil
	return nil
}

// Repository

type memRepo struct{ *memStock }

func (r memRepo) Create(_ context.Context, sl *StockLine) error {
	r.nextID++
	sl.ID = r.nextID
	cp := *sl
	r.lines[sl.ID] = &cp
	return nil
}

func (r memRepo) Get(_ context.Context, id int64) (*StockLine, error) {
	sl, ok := r.lines[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *sl
	return &cp, nil
}

func (r memRepo) List(context.Context, string) ([]StockLine, error) {
	var out []StockLine
	for _, sl := range r.lines {
		out = append(out, *sl)
	}
	return out, nil
}

func (r memRepo) Update(_ context.Context, sl *StockLine) error {
	cp := *sl
	r.lines[sl.ID] = &cp
	return nil
}

func (r memRepo) Attach(_ context.Context, stockID, lineID int64, at time.Time) error {
	it := r.items[stockID]
	if it.StockLineID != nil || it.IsFinished() {
		return tillerr.Concurrent("attached elsewhere", nil)
	}
	it.StockLineID, it.DisplayQty = &lineID, nil
	if it.OnSale == nil {
		it.OnSale = &at
	}
	return nil
}

func (r memRepo) Detach(_ context.Context, stockID int64) error {
	r.items[stockID].StockLineID = nil
	r.items[stockID].DisplayQty = nil
	return nil
}

func (r memRepo) DetachAll(_ context.Context, lineID int64) error {
	for _, it := range r.items {
		if it.StockLineID != nil && *it.StockLineID == lineID {
			it.StockLineID, it.DisplayQty = nil, nil
		}
	}
	return nil
}

func (r memRepo) ApplyRestock(_ context.Context, moves []Movement) error {
	for _, m := range moves {
		q := m.NewDisplayQty
		r.items[m.Item.ID].DisplayQty = &q
	}
	return nil
}

func (r memRepo) LastActivity(_ context.Context, lineID int64, codes []string) (*time.Time, error) {
	var last *time.Time
	for i := range r.outs {
		out := r.outs[i]
		it := r.items[out.StockID]
		if it.StockLineID == nil || *it.StockLineID != lineID {
			continue
		}
		for _, c := range codes {
			if c == out.RemoveCode && (last == nil || out.Time.After(*last)) {
				last = &r.outs[i].Time
			}
		}
	}
	return last, nil
}

type defaults struct{}

func (defaults) Duration(_ context.Context, _ string, def time.Duration) time.Duration { return def }

func newTestService(t *testing.T) (Service, *memStock, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 3, 6, 18, 0, 0, 0, time.UTC))
	store := newMemStock(clk)
	return NewService(memRepo{store}, store, defaults{}, clk, zap.NewNop()), store, clk
}

func i64(v int64) *int64 { return &v }

func TestService_CreateValidatesVariants(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	bad := []CreateRequest{
		{Name: "Pump 1", Location: "Bar", LineType: Regular, Capacity: i64(4)},
		{Name: "Fridge", Location: "Bar", LineType: Display, StockTypeID: i64(1)},
		{Name: "Wine", Location: "Bar", LineType: Continuous},
		{Name: "Wine", Location: "Bar", LineType: Continuous, StockTypeID: i64(1), PullThru: dp("0.5")},
		{Name: "", Location: "Bar", LineType: Regular},
		{Name: "Tap", Location: "Bar", LineType: "tap"},
	}
	for _, req := range bad {
		_, err := svc.Create(ctx, req)
		assert.True(t, tillerr.Is(err, tillerr.KindUser), "%+v", req)
	}

	sl, err := svc.Create(ctx, CreateRequest{Name: " Pump 1 ", Location: "Bar", LineType: Regular, PullThru: dp("0.5")})
	require.NoError(t, err)
	assert.Equal(t, "Pump 1", sl.Name)
}

func TestService_UseStockRegularReplaces(t *testing.T) {
	svc, store, clk := newTestService(t)
	ctx := context.Background()

	sl, err := svc.Create(ctx, CreateRequest{Name: "Pump 1", Location: "Bar", LineType: Regular})
	require.NoError(t, err)
	first := store.addItem(1, "72")
	second := store.addItem(1, "72")

	require.NoError(t, svc.UseStock(ctx, sl.ID, first.ID, ""))
	assert.Equal(t, clk.Now(), *first.OnSale)

	require.NoError(t, svc.UseStock(ctx, sl.ID, second.ID, inventory.FinishEmpty))
	assert.True(t, first.IsFinished())
	assert.Nil(t, first.StockLineID)
	require.NotNil(t, second.StockLineID)
	assert.Equal(t, sl.ID, *second.StockLineID)

	err = svc.UseStock(ctx, sl.ID, second.ID, "")
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	unchecked := store.addItem(1, "72")
	unchecked.Available = false
	err = svc.UseStock(ctx, sl.ID, unchecked.ID, "")
	assert.True(t, tillerr.Is(err, tillerr.KindState))

	alloc, err := svc.CalculateSale(ctx, sl.ID, d("2"))
	require.NoError(t, err)
	require.Len(t, alloc.Assignments, 1)
	assert.Equal(t, second.ID, alloc.Assignments[0].Item.ID)
	assert.True(t, alloc.Remaining.Equal(d("70")))
}

func TestService_UseStockRejects(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	wine, err := svc.Create(ctx, CreateRequest{Name: "House red", Location: "Bar", LineType: Continuous, StockTypeID: i64(2)})
	require.NoError(t, err)
	fridge, err := svc.Create(ctx, CreateRequest{Name: "Fridge", Location: "Bar", LineType: Display, StockTypeID: i64(3), Capacity: i64(6)})
	require.NoError(t, err)
	bottle := store.addItem(2, "750")

	err = svc.UseStock(ctx, wine.ID, bottle.ID, "")
	assert.True(t, tillerr.Is(err, tillerr.KindUser))
	err = svc.UseStock(ctx, fridge.ID, bottle.ID, "")
	assert.True(t, tillerr.Is(err, tillerr.KindUser), "wrong stock type")

	alloc, err := svc.CalculateSale(ctx, wine.ID, d("175"))
	require.NoError(t, err)
	require.Len(t, alloc.Assignments, 1)
	assert.True(t, alloc.Remaining.Equal(d("575")))
}

func TestService_Restock(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	fridge, err := svc.Create(ctx, CreateRequest{Name: "Fridge", Location: "Bar", LineType: Display, StockTypeID: i64(3), Capacity: i64(20)})
	require.NoError(t, err)
	caseA := store.addItem(3, "12")
	caseB := store.addItem(3, "12")
	require.NoError(t, svc.UseStock(ctx, fridge.ID, caseA.ID, ""))
	require.NoError(t, svc.UseStock(ctx, fridge.ID, caseB.ID, ""))

	alloc, err := svc.CalculateSale(ctx, fridge.ID, d("1"))
	require.NoError(t, err)
	assert.True(t, alloc.Unallocated.Equal(d("1")), "nothing on display yet")

	moves, err := svc.CommitRestock(ctx, fridge.ID)
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.True(t, caseA.DisplayQty.Equal(d("12")))
	assert.True(t, caseB.DisplayQty.Equal(d("8")))

	again, err := svc.RestockPlan(ctx, fridge.ID)
	require.NoError(t, err)
	assert.Empty(t, again)

	_, err = svc.RestockPlan(ctx, 999)
	assert.True(t, tillerr.Is(err, tillerr.KindState))
}

func TestService_UpdateDetachesOnTypeChange(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	fridge, err := svc.Create(ctx, CreateRequest{Name: "Fridge", Location: "Bar", LineType: Display, StockTypeID: i64(3), Capacity: i64(20)})
	require.NoError(t, err)
	c := store.addItem(3, "12")
	require.NoError(t, svc.UseStock(ctx, fridge.ID, c.ID, ""))

	_, err = svc.Update(ctx, fridge.ID, UpdateRequest{Name: "Fridge", Location: "Bar", StockTypeID: i64(3), Capacity: i64(24)})
	require.NoError(t, err)
	assert.NotNil(t, c.StockLineID)

	_, err = svc.Update(ctx, fridge.ID, UpdateRequest{Name: "Fridge", Location: "Bar", StockTypeID: i64(4), Capacity: i64(24)})
	require.NoError(t, err)
	assert.Nil(t, c.StockLineID)
}

func TestService_PullThru(t *testing.T) {
	svc, store, clk := newTestService(t)
	ctx := context.Background()

	pump, err := svc.Create(ctx, CreateRequest{Name: "Pump 1", Location: "Bar", LineType: Regular, PullThru: dp("0.5")})
	require.NoError(t, err)

	status, err := svc.PullThruDue(ctx, pump.ID)
	require.NoError(t, err)
	assert.False(t, status.Due, "nothing attached")

	cask := store.addItem(1, "72")
	require.NoError(t, svc.UseStock(ctx, pump.ID, cask.ID, ""))

	status, err = svc.PullThruDue(ctx, pump.ID)
	require.NoError(t, err)
	assert.True(t, status.Due)
	assert.True(t, status.Qty.Equal(d("0.5")))

	out, err := svc.RecordPullThru(ctx, pump.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.RemovePullThru, out.RemoveCode)
	assert.True(t, cask.Remaining().Equal(d("71.5")))

	clk.Advance(10 * time.Hour)
	status, err = svc.PullThruDue(ctx, pump.ID)
	require.NoError(t, err)
	assert.False(t, status.Due)

	clk.Advance(time.Hour)
	status, err = svc.PullThruDue(ctx, pump.ID)
	require.NoError(t, err)
	assert.True(t, status.Due, "gap of eleven hours reached")
}
