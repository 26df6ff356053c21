package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/modules/eventlog"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type memRepo struct {
	sessions []Session
	blockers Blockers
	depts    []DeptTotal
	paytypes []PayTypeTotal
	recorded map[int64][]RecordedTotal
}

func (m *memRepo) Create(_ context.Context, s *Session) error {
	s.ID = int64(len(m.sessions) + 1)
	m.sessions = append(m.sessions, *s)
	return nil
}

func (m *memRepo) Current(context.Context) (*Session, error) {
	for _, s := range m.sessions {
		if s.IsOpen() {
			c := s
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (*Session, error) {
	if id < 1 || int(id) > len(m.sessions) {
		return nil, sql.ErrNoRows
	}
	c := m.sessions[id-1]
	return &c, nil
}

func (m *memRepo) List(context.Context, int) ([]Session, error) { return m.sessions, nil }

func (m *memRepo) Blockers(context.Context, int64) (Blockers, error) { return m.blockers, nil }

func (m *memRepo) Close(_ context.Context, s *Session) error {
	m.sessions[s.ID-1].EndTime = s.EndTime
	return nil
}

func (m *memRepo) DeptTotals(context.Context, int64) ([]DeptTotal, error) { return m.depts, nil }

func (m *memRepo) UserTotals(context.Context, int64) ([]UserTotal, error) { return nil, nil }

func (m *memRepo) PayTypeTotals(_ context.Context, id int64) ([]PayTypeTotal, error) {
	out := append([]PayTypeTotal(nil), m.paytypes...)
	for i := range out {
		for _, r := range m.recorded[id] {
			if r.PayType == out[i].PayType {
				out[i].Recorded = decimal.NewNullDecimal(r.Amount)
				out[i].Fees = r.Fees
			}
		}
	}
	return out, nil
}

func (m *memRepo) RecordTotals(_ context.Context, id int64, totals []RecordedTotal) error {
	m.recorded[id] = totals
	return nil
}

type fixedSettings map[string]int

func (f fixedSettings) Int(_ context.Context, key string, def int) int {
	if v, ok := f[key]; ok {
		return v
	}
	return def
}

type memEvents struct{ entries []eventlog.Entry }

func (e *memEvents) Log(_ context.Context, entry eventlog.Entry) error {
	e.entries = append(e.entries, entry)
	return nil
}

func newTestService(at time.Time) (Service, *memRepo, *memEvents) {
	repo := &memRepo{recorded: map[int64][]RecordedTotal{}}
	events := &memEvents{}
	return NewService(repo, fixedSettings{}, events, clock.NewManual(at), zap.NewNop()), repo, events
}

func TestTradingDate(t *testing.T) {
	late := time.Date(2026, 3, 7, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), TradingDate(late, 4))

	noon := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), TradingDate(noon, 4))
}

func TestOpenAndClose(t *testing.T) {
	svc, repo, events := newTestService(time.Date(2026, 3, 7, 2, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.Current(ctx)
	assert.True(t, tillerr.Is(err, tillerr.KindState))

	sess, err := svc.Open(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, sess.Date.Day())
	require.Len(t, events.entries, 1)

	_, err = svc.Open(ctx, nil, 1)
	assert.True(t, tillerr.Is(err, tillerr.KindState))

	repo.blockers = Blockers{PendingPayments: 1, OpenTransactions: 1}
	_, err = svc.Close(ctx, 1)
	assert.True(t, tillerr.Is(err, tillerr.KindState))
	cur, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, cur.ID)

	repo.blockers = Blockers{}
	closed, err := svc.Close(ctx, 1)
	require.NoError(t, err)
	assert.False(t, closed.IsOpen())
}

func TestTotals(t *testing.T) {
	svc, repo, _ := newTestService(time.Date(2026, 3, 6, 18, 0, 0, 0, time.UTC))
	ctx := context.Background()
	sess, err := svc.Open(ctx, nil, 1)
	require.NoError(t, err)

	repo.depts = []DeptTotal{{DeptID: 1, Description: "Real Ale", Total: d("70.00")}, {DeptID: 2, Description: "Wine", Total: d("30.00")}}
	repo.paytypes = []PayTypeTotal{{PayType: "CASH", Till: d("40.00")}, {PayType: "CARD", Till: d("60.00")}}

	_, err = svc.RecordTotals(ctx, sess.ID, []RecordedTotal{{PayType: "CASH", Amount: d("38.50")}}, 1)
	assert.True(t, tillerr.Is(err, tillerr.KindState))

	_, err = svc.Close(ctx, 1)
	require.NoError(t, err)

	tot, err := svc.Totals(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, tot.Till.Equal(d("100.00")))
	assert.False(t, tot.Complete)

	_, err = svc.RecordTotals(ctx, sess.ID, []RecordedTotal{{PayType: "CASH"}, {PayType: "CASH"}}, 1)
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	tot, err = svc.RecordTotals(ctx, sess.ID, []RecordedTotal{
		{PayType: "CASH", Amount: d("38.50")},
		{PayType: "CARD", Amount: d("60.00"), Fees: d("1.20")},
	}, 1)
	require.NoError(t, err)
	assert.True(t, tot.Complete)
	assert.True(t, tot.Recorded.Equal(d("98.50")))
	assert.True(t, tot.Error.Equal(d("-1.50")))
	assert.True(t, tot.PayTypes[0].Error().Decimal.Equal(d("-1.50")))
}

func TestTotals_ErrorAgainstTill(t *testing.T) {
	svc, repo, _ := newTestService(time.Date(2026, 3, 6, 18, 0, 0, 0, time.UTC))
	ctx := context.Background()
	sess, err := svc.Open(ctx, nil, 1)
	require.NoError(t, err)
	_, err = svc.Close(ctx, 1)
	require.NoError(t, err)

	// 5.00 was rung up but never paid for.
	repo.depts = []DeptTotal{{DeptID: 1, Description: "Real Ale", Total: d("100.00")}}
	repo.paytypes = []PayTypeTotal{{PayType: "CASH", Till: d("95.00")}}

	tot, err := svc.RecordTotals(ctx, sess.ID, []RecordedTotal{{PayType: "CASH", Amount: d("95.00")}}, 1)
	require.NoError(t, err)
	assert.True(t, tot.Paid.Equal(d("95.00")))
	assert.True(t, tot.Error.Equal(d("-5.00")), "error is %s", tot.Error)
	assert.True(t, tot.PayTypes[0].Error().Decimal.IsZero())
}
