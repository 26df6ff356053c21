package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/modules/eventlog"
	"github.com/georgemunganga/tillcore/internal/modules/transaction"
	"github.com/georgemunganga/tillcore/internal/peripheral"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type memRepo struct {
	mu       sync.Mutex
	nextID   int64
	paytypes []PayType
	payments []*Payment
}

func (m *memRepo) ListPayTypes(context.Context) ([]PayType, error) { return m.paytypes, nil }

func (m *memRepo) GetPayType(_ context.Context, paytype string) (*PayType, error) {
	for i := range m.paytypes {
		if m.paytypes[i].PayType == paytype {
			pt := m.paytypes[i]
			return &pt, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memRepo) find(id int64) *Payment {
	for _, p := range m.payments {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func copyPayment(p *Payment) *Payment {
	c := *p
	c.Meta = nil
	if len(p.Meta) > 0 {
		c.Meta = make(map[string]string, len(p.Meta))
		for k, v := range p.Meta {
			c.Meta[k] = v
		}
	}
	return &c
}

func (m *memRepo) GetPayment(_ context.Context, id int64) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := m.find(id); p != nil {
		return copyPayment(p), nil
	}
	return nil, sql.ErrNoRows
}

func (m *memRepo) PaymentsFor(_ context.Context, transID int64) ([]Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Payment
	for _, p := range m.payments {
		if p.TransID == transID {
			out = append(out, *copyPayment(p))
		}
	}
	return out, nil
}

func (m *memRepo) InsertPayments(_ context.Context, ps []*Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range ps {
		m.nextID++
		p.ID = m.nextID
		m.payments = append(m.payments, copyPayment(p))
	}
	return nil
}

func (m *memRepo) Complete(_ context.Context, p *Payment, extra []*Payment) error {
	m.mu.Lock()
	stored := m.find(p.ID)
	if stored == nil || !stored.Pending {
		m.mu.Unlock()
		return tillerr.Concurrent("payment is no longer pending", nil)
	}
	stored.Amount, stored.Text, stored.Pending = p.Amount, p.Text, false
	for k, v := range p.Meta {
		if stored.Meta == nil {
			stored.Meta = map[string]string{}
		}
		stored.Meta[k] = v
	}
	m.mu.Unlock()
	p.Pending = false
	return m.InsertPayments(context.Background(), extra)
}

func (m *memRepo) SetMeta(_ context.Context, id int64, meta map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.find(id)
	if p.Meta == nil {
		p.Meta = map[string]string{}
	}
	for k, v := range meta {
		p.Meta[k] = v
	}
	return nil
}

func (m *memRepo) RefundedAgainst(_ context.Context, originalID int64) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, p := range m.payments {
		if p.Meta[MetaRefundOf] == strconv.FormatInt(originalID, 10) {
			total = total.Sub(p.Amount)
		}
	}
	return total, nil
}

// memTrans computes balances from the payments held in memRepo.
type memTrans struct {
	repo    *memRepo
	totals  map[int64]decimal.Decimal
	related map[int64][]int64
	closed  map[int64]bool
}

func (m *memTrans) AdoptIntoSession(ctx context.Context, id int64) (*transaction.Transaction, error) {
	if m.closed[id] {
		return nil, tillerr.State("transaction %d is closed", id)
	}
	session := int64(1)
	t := &transaction.Transaction{ID: id, SessionID: &session, Total: m.totals[id]}
	ps, _ := m.repo.PaymentsFor(ctx, id)
	for _, p := range ps {
		t.Paid = t.Paid.Add(p.Amount)
		t.Pending = t.Pending || p.Pending
	}
	return t, nil
}

func (m *memTrans) CloseIfBalanced(ctx context.Context, id int64) (bool, error) {
	t, err := m.AdoptIntoSession(ctx, id)
	if err != nil {
		return false, err
	}
	if t.Pending || !t.Balance().IsZero() {
		return false, nil
	}
	m.closed[id] = true
	return true, nil
}

func (m *memTrans) RelatedTransactions(_ context.Context, id int64) ([]int64, error) {
	if r, ok := m.related[id]; ok {
		return r, nil
	}
	return []int64{id}, nil
}

type defaults struct{}

func (defaults) Int(_ context.Context, _ string, def int) int      { return def }
func (defaults) Text(_ context.Context, _ string, def string) string { return def }

type memEvents struct{ entries []eventlog.Entry }

func (m *memEvents) Log(_ context.Context, e eventlog.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

// terminal fakes the card terminal API. Checkouts complete once the
// test sets their status.
type terminal struct {
	mu        sync.Mutex
	checkouts map[string]*Checkout
	next      int
}

func newTerminal(t *testing.T) (*terminal, *TerminalClient) {
	term := &terminal{checkouts: map[string]*Checkout{}}
	srv := httptest.NewServer(http.HandlerFunc(term.serve))
	t.Cleanup(srv.Close)
	return term, NewTerminalClient(srv.URL, "test-key")
}

func (f *terminal) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Header.Get("Authorization") != "Bearer test-key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	create := func(prefix string) {
		var body struct {
			Reference string          `json:"reference"`
			Amount    decimal.Decimal `json:"amount"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.next++
		co := &Checkout{ID: prefix + strconv.Itoa(f.next), Reference: body.Reference, Status: "PENDING", Amount: body.Amount}
		f.checkouts[co.ID] = co
		json.NewEncoder(w).Encode(co)
	}
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/checkouts":
		create("co")
	case r.Method == http.MethodPost && r.URL.Path == "/refunds":
		create("rf")
	case r.Method == http.MethodGet:
		id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/checkouts/"), "/refunds/")
		co, ok := f.checkouts[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(co)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/cancel"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/checkouts/"), "/cancel")
		f.checkouts[id].Status = "CANCELLED"
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *terminal) finish(id, status string, last4 string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	co := f.checkouts[id]
	co.Status = status
	co.Captured = co.Amount
	co.CardLast4 = last4
}

type fixture struct {
	repo    *memRepo
	trans   *memTrans
	term    *terminal
	printer *peripheral.LogPrinter
	events  *memEvents
	clock   *clock.Manual
	svc     Service
}

func newFixture(t *testing.T) *fixture {
	repo := &memRepo{paytypes: []PayType{
		{PayType: "CASH", Description: "Cash", DriverName: "cash", Mode: ModeActive, Order: 1},
		{PayType: "CARD", Description: "Card", DriverName: "card", Mode: ModeActive, Order: 2},
		{PayType: "BACS", Description: "Bank", DriverName: "cash", Mode: ModeTotalOnly, Order: 3},
	}}
	term, client := newTerminal(t)
	f := &fixture{
		repo:    repo,
		trans:   &memTrans{repo: repo, totals: map[int64]decimal.Decimal{}, related: map[int64][]int64{}, closed: map[int64]bool{}},
		term:    term,
		printer: peripheral.NewLogPrinter(zap.NewNop(), 40),
		events:  &memEvents{},
		clock:   clock.NewManual(time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)),
	}
	drivers := DriverRegistry{"cash": NewCashDriver(), "card": NewCardDriver(client)}
	f.svc = NewService(repo, drivers, f.trans, defaults{}, f.printer, f.events, f.clock, zap.NewNop())
	return f
}

func TestListPayTypes_SkipsDisabled(t *testing.T) {
	f := newFixture(t)
	f.repo.paytypes = append(f.repo.paytypes, PayType{PayType: "OLD", DriverName: "cash", Mode: ModeDisabled})
	list, err := f.svc.ListPayTypes(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestCash_ExactAmountClosesTransaction(t *testing.T) {
	f := newFixture(t)
	f.trans.totals[1] = d("7.80")

	res, err := f.svc.StartPayment(context.Background(), Request{TransID: 1, UserID: 3, PayType: "CASH", Amount: d("7.80")})
	require.NoError(t, err)
	assert.True(t, res.Closed)
	require.Len(t, res.Payments, 1)
	assert.True(t, res.Payments[0].Amount.Equal(d("7.80")))
	assert.Empty(t, res.Change)
	assert.Equal(t, 1, f.printer.Kicks())
	assert.Len(t, f.events.entries, 1)
}

func TestCash_OverpaymentRecordsChange(t *testing.T) {
	f := newFixture(t)
	f.trans.totals[1] = d("7.80")

	res, err := f.svc.StartPayment(context.Background(), Request{TransID: 1, UserID: 3, PayType: "CASH", Amount: d("10.00")})
	require.NoError(t, err)
	require.Len(t, res.Payments, 2)
	assert.True(t, res.Payments[1].Amount.Equal(d("-2.20")))
	assert.Equal(t, "Change", res.Payments[1].Text)
	assert.Equal(t, "£2.20", res.Change)
	assert.True(t, res.Closed)
}

func TestStartPayment_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.trans.totals[1] = d("5.00")

	_, err := f.svc.StartPayment(ctx, Request{TransID: 1, PayType: "BACS", Amount: d("5.00")})
	assert.True(t, tillerr.Is(err, tillerr.KindUser), "total-only paytype")

	_, err = f.svc.StartPayment(ctx, Request{TransID: 1, PayType: "CASH", Amount: d("0")})
	assert.True(t, tillerr.Is(err, tillerr.KindUser), "zero amount")

	_, err = f.svc.StartPayment(ctx, Request{TransID: 1, PayType: "NOPE", Amount: d("1")})
	assert.True(t, tillerr.Is(err, tillerr.KindState), "unknown paytype")

	f.trans.totals[2] = decimal.Zero
	_, err = f.svc.StartPayment(ctx, Request{TransID: 2, PayType: "CASH", Amount: d("1")})
	assert.True(t, tillerr.Is(err, tillerr.KindUser), "nothing owed")
}

func TestCashRefund_LimitedToAmountOwed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.trans.totals[1] = d("-4.00")

	_, err := f.svc.StartRefund(ctx, Request{TransID: 1, PayType: "CASH", Amount: d("5.00")})
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	res, err := f.svc.StartRefund(ctx, Request{TransID: 1, UserID: 2, PayType: "CASH", Amount: d("4.00")})
	require.NoError(t, err)
	assert.True(t, res.Payments[0].Amount.Equal(d("-4.00")))
	assert.True(t, res.Closed)
}

func TestCard_PendingUntilTerminalCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.trans.totals[1] = d("12.50")

	res, err := f.svc.StartPayment(ctx, Request{TransID: 1, UserID: 3, PayType: "CARD", Amount: d("12.50")})
	require.NoError(t, err)
	require.NotNil(t, res.Pending)
	p := res.Pending
	assert.True(t, p.Pending)
	assert.True(t, p.Amount.IsZero())
	assert.NotEmpty(t, p.Meta[metaCheckoutRef])
	checkoutID := p.Meta[metaCheckoutID]
	require.NotEmpty(t, checkoutID)

	// Another payment cannot start while this one is pending.
	_, err = f.svc.StartPayment(ctx, Request{TransID: 1, PayType: "CASH", Amount: d("1")})
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	res, err = f.svc.Resume(ctx, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, res.Pending)

	f.term.finish(checkoutID, "SUCCESSFUL", "4242")
	res, err = f.svc.Wait(ctx, p.ID, time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, res.Pending)
	assert.True(t, res.Closed)
	require.Len(t, res.Payments, 1)
	assert.True(t, res.Payments[0].Amount.Equal(d("12.50")))
	assert.Equal(t, "Card ****4242", res.Payments[0].Text)
	assert.Equal(t, 0, f.printer.Kicks())
}

func TestCard_CancelLeavesZeroPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.trans.totals[1] = d("9.00")

	res, err := f.svc.StartPayment(ctx, Request{TransID: 1, UserID: 3, PayType: "CARD", Amount: d("9.00")})
	require.NoError(t, err)
	id := res.Pending.ID

	require.NoError(t, f.svc.RequestCancel(ctx, id, 3))
	p, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Meta[MetaCancelRequested])

	res, err = f.svc.Resume(ctx, id)
	require.NoError(t, err)
	assert.False(t, res.Closed)
	assert.False(t, res.Payments[0].Pending)
	assert.True(t, res.Payments[0].Amount.IsZero())
	assert.Equal(t, "Card cancelled", res.Payments[0].Text)

	err = f.svc.RequestCancel(ctx, id, 3)
	assert.True(t, tillerr.Is(err, tillerr.KindState))
}

func TestCard_CannotOverpay(t *testing.T) {
	f := newFixture(t)
	f.trans.totals[1] = d("9.00")
	_, err := f.svc.StartPayment(context.Background(), Request{TransID: 1, PayType: "CARD", Amount: d("10.00")})
	assert.True(t, tillerr.Is(err, tillerr.KindUser))
	require.Len(t, f.repo.payments, 1)
	assert.False(t, f.repo.payments[0].Pending, "the failed row must not block the transaction")
	assert.True(t, f.repo.payments[0].Amount.IsZero())
}

func (f *fixture) cardPayment(t *testing.T, transID int64, amount string) *Payment {
	f.trans.totals[transID] = d(amount)
	res, err := f.svc.StartPayment(context.Background(), Request{TransID: transID, UserID: 3, PayType: "CARD", Amount: d(amount)})
	require.NoError(t, err)
	f.term.finish(res.Pending.Meta[metaCheckoutID], "SUCCESSFUL", "1111")
	res, err = f.svc.Resume(context.Background(), res.Pending.ID)
	require.NoError(t, err)
	return &res.Payments[0]
}

func TestCardRefund_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := f.cardPayment(t, 1, "20.00")

	// Transaction 2 holds the reversal of transaction 1.
	f.trans.totals[2] = d("-20.00")
	f.trans.related[2] = []int64{1, 2}
	f.trans.totals[3] = d("-5.00")

	_, err := f.svc.StartRefund(ctx, Request{TransID: 2, PayType: "CARD", Amount: d("5.00")})
	assert.True(t, tillerr.Is(err, tillerr.KindUser), "original payment required")

	_, err = f.svc.StartRefund(ctx, Request{TransID: 3, PayType: "CARD", Amount: d("5.00"), OriginalPaymentID: original.ID})
	assert.True(t, tillerr.Is(err, tillerr.KindUser), "unrelated transaction")

	_, err = f.svc.StartRefund(ctx, Request{TransID: 2, PayType: "CARD", Amount: d("25.00"), OriginalPaymentID: original.ID})
	assert.True(t, tillerr.Is(err, tillerr.KindUser), "more than was paid")

	res, err := f.svc.StartRefund(ctx, Request{TransID: 2, UserID: 3, PayType: "CARD", Amount: d("15.00"), OriginalPaymentID: original.ID})
	require.NoError(t, err)
	require.NotNil(t, res.Pending)
	assert.Equal(t, strconv.FormatInt(original.ID, 10), res.Pending.Meta[MetaRefundOf])
	f.term.finish(res.Pending.Meta[metaRefundID], "SUCCESSFUL", "1111")
	res, err = f.svc.Resume(ctx, res.Pending.ID)
	require.NoError(t, err)
	assert.True(t, res.Payments[0].Amount.Equal(d("-15.00")))

	_, err = f.svc.StartRefund(ctx, Request{TransID: 2, PayType: "CARD", Amount: d("5.01"), OriginalPaymentID: original.ID})
	assert.True(t, tillerr.Is(err, tillerr.KindUser), "only 5.00 left")
}

func TestCardRefund_TooOld(t *testing.T) {
	f := newFixture(t)
	original := f.cardPayment(t, 1, "20.00")
	f.trans.totals[2] = d("-20.00")
	f.trans.related[2] = []int64{1, 2}

	f.clock.Advance(365 * 24 * time.Hour)
	_, err := f.svc.StartRefund(context.Background(), Request{TransID: 2, PayType: "CARD", Amount: d("1.00"), OriginalPaymentID: original.ID})
	require.Error(t, err)
	assert.Contains(t, tillerr.MessageOf(err), "days old")
}

func TestWait_StopsWithContext(t *testing.T) {
	f := newFixture(t)
	f.trans.totals[1] = d("3.00")
	res, err := f.svc.StartPayment(context.Background(), Request{TransID: 1, PayType: "CARD", Amount: d("3.00")})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res, err = f.svc.Wait(ctx, res.Pending.ID, time.Millisecond)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	require.NotNil(t, res)
	assert.NotNil(t, res.Pending)
}

func TestChangePayType(t *testing.T) {
	f := newFixture(t)
	name, err := f.svc.ChangePayType(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "CASH", name)
}

func TestNormaliseStatus(t *testing.T) {
	assert.Equal(t, StatusCompleted, NormaliseStatus("successful"))
	assert.Equal(t, StatusCancelled, NormaliseStatus("EXPIRED"))
	assert.Equal(t, StatusPending, NormaliseStatus("IN_PROGRESS"))
}
