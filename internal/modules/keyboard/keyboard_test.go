package keyboard

import (
	"context"
	"database/sql"
	"testing"

	"github.com/georgemunganga/tillcore/internal/notify"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	plus     map[int64]*PLU
	bindings []Binding
	barcodes map[string]Barcode
	keycaps  map[string]Keycap
	reads    int
}

func newMemRepo() *memRepo {
	return &memRepo{plus: map[int64]*PLU{}, barcodes: map[string]Barcode{}, keycaps: map[string]Keycap{}}
}

func (m *memRepo) CreatePLU(_ context.Context, p *PLU) error {
	p.ID = int64(len(m.plus) + 1)
	cp := *p
	m.plus[p.ID] = &cp
	return nil
}

func (m *memRepo) GetPLU(_ context.Context, id int64) (*PLU, error) {
	p, ok := m.plus[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (m *memRepo) ListPLUs(context.Context) ([]PLU, error) { return nil, nil }

func (m *memRepo) UpdatePLU(_ context.Context, p *PLU) error {
	cp := *p
	m.plus[p.ID] = &cp
	return nil
}

func (m *memRepo) SaveBinding(_ context.Context, b *Binding) error {
	for i, old := range m.bindings {
		if old.Keycode == b.Keycode && old.Menukey == b.Menukey {
			b.ID = old.ID
			m.bindings[i] = *b
			return nil
		}
	}
	b.ID = int64(len(m.bindings) + 1)
	m.bindings = append(m.bindings, *b)
	return nil
}

func (m *memRepo) DeleteBinding(_ context.Context, id int64) (string, error) {
	for i, b := range m.bindings {
		if b.ID == id {
			m.bindings = append(m.bindings[:i], m.bindings[i+1:]...)
			return b.Keycode, nil
		}
	}
	return "", sql.ErrNoRows
}

func (m *memRepo) Bindings(_ context.Context, keycode string) ([]Binding, error) {
	m.reads++
	var out []Binding
	for _, b := range m.bindings {
		if b.Keycode == keycode {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memRepo) SaveBarcode(_ context.Context, b *Barcode) error {
	m.barcodes[b.Barcode] = *b
	return nil
}

func (m *memRepo) DeleteBarcode(_ context.Context, code string) error {
	delete(m.barcodes, code)
	return nil
}

func (m *memRepo) GetBarcode(_ context.Context, code string) (*Barcode, error) {
	b, ok := m.barcodes[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

func (m *memRepo) SaveKeycap(_ context.Context, k *Keycap) error {
	m.keycaps[k.Keycode] = *k
	return nil
}

func (m *memRepo) ListKeycaps(context.Context) ([]Keycap, error) { return nil, nil }

type names map[string]bool

func (n names) Has(name string) bool { return n[name] }

func i64(v int64) *int64 { return &v }

func str(s string) *string { return &s }

func newTestService(t *testing.T) (Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	svc, err := NewService(repo, names{"half": true, "double": true}, zap.NewNop())
	require.NoError(t, err)
	return svc, repo
}

func TestService_SetBindingValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetBinding(ctx, Binding{Keycode: "K_PUMP1", StockLineID: i64(1), PLUID: i64(2)})
	assert.True(t, tillerr.Is(err, tillerr.KindUser), "two targets")
	_, err = svc.SetBinding(ctx, Binding{Keycode: "K_PUMP1"})
	assert.True(t, tillerr.Is(err, tillerr.KindUser), "no target and no modifier")
	_, err = svc.SetBinding(ctx, Binding{Keycode: "K_PUMP1", StockLineID: i64(1), Modifier: str("triple")})
	assert.True(t, tillerr.Is(err, tillerr.KindUser), "unknown modifier")

	b, err := svc.SetBinding(ctx, Binding{Keycode: "K_HALF", Modifier: str("half")})
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
}

func TestService_Resolve(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "K_PUMP1", "")
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	_, err = svc.SetBinding(ctx, Binding{Keycode: "K_PUMP1", StockLineID: i64(4)})
	require.NoError(t, err)
	res, err := svc.Resolve(ctx, "K_PUMP1", "")
	require.NoError(t, err)
	require.NotNil(t, res.Target)
	assert.Equal(t, Target{Kind: TargetStockLine, ID: 4, Source: "K:K_PUMP1"}, *res.Target)

	_, err = svc.SetBinding(ctx, Binding{Keycode: "K_WINE", Menukey: "1", StockTypeID: i64(8)})
	require.NoError(t, err)
	_, err = svc.SetBinding(ctx, Binding{Keycode: "K_WINE", Menukey: "2", StockTypeID: i64(9), Modifier: str("double")})
	require.NoError(t, err)

	res, err = svc.Resolve(ctx, "K_WINE", "")
	require.NoError(t, err)
	assert.Nil(t, res.Target)
	assert.Len(t, res.Choices, 2)

	res, err = svc.Resolve(ctx, "K_WINE", "2")
	require.NoError(t, err)
	assert.Equal(t, TargetStockType, res.Target.Kind)
	assert.Equal(t, int64(9), res.Target.ID)
	assert.Equal(t, "double", res.Target.Modifier)

	_, err = svc.Resolve(ctx, "K_WINE", "3")
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	_, err = svc.SetBinding(ctx, Binding{Keycode: "K_HALF", Modifier: str("half")})
	require.NoError(t, err)
	res, err = svc.Resolve(ctx, "K_HALF", "")
	require.NoError(t, err)
	assert.Equal(t, TargetModifier, res.Target.Kind)
}

func TestService_BindingCache(t *testing.T) {
	svc, repo := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo.bindings = append(repo.bindings, Binding{ID: 1, Keycode: "K_1", PLUID: i64(3)})
	_, err := svc.Resolve(ctx, "K_1", "")
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, "K_1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.reads)

	ch := make(chan notify.Notification, 1)
	done := make(chan struct{})
	go func() {
		svc.Watch(ctx, ch)
		close(done)
	}()
	ch <- notify.Notification{Channel: notify.ChannelKeycaps, Payload: "K_1"}
	close(ch)
	<-done

	_, err = svc.Resolve(ctx, "K_1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.reads)
}

func TestService_Barcodes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ResolveBarcode(ctx, "5000000000000")
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	require.NoError(t, svc.SetBarcode(ctx, Barcode{Barcode: "5000000000000", StockTypeID: i64(12)}))
	tgt, err := svc.ResolveBarcode(ctx, "5000000000000")
	require.NoError(t, err)
	assert.Equal(t, &Target{Kind: TargetStockType, ID: 12, Source: "B:5000000000000"}, tgt)

	assert.True(t, tillerr.Is(svc.SetBarcode(ctx, Barcode{Barcode: "1"}), tillerr.KindUser))
}

func TestService_PLU(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	neg := decimal.NewFromInt(-1)
	_, err := svc.CreatePLU(ctx, PLU{Description: "Crisps", DeptID: 7, Price: &neg})
	assert.True(t, tillerr.Is(err, tillerr.KindUser))
	_, err = svc.CreatePLU(ctx, PLU{Description: "Crisps"})
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	price := decimal.RequireFromString("1.20")
	p, err := svc.CreatePLU(ctx, PLU{Description: " Crisps ", DeptID: 7, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Crisps", p.Description)

	got, err := svc.GetPLU(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(price))

	_, err = svc.GetPLU(ctx, 99)
	assert.True(t, tillerr.Is(err, tillerr.KindState))
}
