package vat

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceMaths(t *testing.T) {
	twenty := decimal.NewFromInt(20)

	assert.Equal(t, "10", IncToExc(decimal.RequireFromString("12.00"), twenty).String())
	assert.Equal(t, "2", IncToVat(decimal.RequireFromString("12.00"), twenty).String())
	assert.Equal(t, "4.2", ExcToInc(decimal.RequireFromString("3.50"), twenty).String())
}

func TestIncExcRoundTrip(t *testing.T) {
	rates := []string{"0", "5", "17.5", "20", "12.5"}
	for _, rs := range rates {
		rate := Rate{Rate: decimal.RequireFromString(rs)}
		for pence := int64(-500); pence <= 5000; pence += 7 {
			x := decimal.New(pence, -2)
			assert.True(t, rate.IncToExc(x).Add(rate.IncToVat(x)).Equal(x),
				"rate %s, price %s", rs, x)
		}
	}
}

type memRepo struct {
	bands []Band
	rates []Rate
}

func (m *memRepo) CreateBand(_ context.Context, b *Band) error {
	m.bands = append(m.bands, *b)
	return nil
}

func (m *memRepo) ListBands(context.Context) ([]Band, error) { return m.bands, nil }

func (m *memRepo) AddRate(_ context.Context, r *Rate) error {
	m.rates = append(m.rates, *r)
	return nil
}

func (m *memRepo) RateAt(_ context.Context, band string, date time.Time) (*Rate, error) {
	var best *Rate
	for i := range m.rates {
		r := &m.rates[i]
		if r.Band == band && !r.Active.After(date) && (best == nil || r.Active.After(best.Active)) {
			best = r
		}
	}
	if best == nil {
		return nil, sql.ErrNoRows
	}
	return best, nil
}

func TestService_RateAt(t *testing.T) {
	svc := NewService(&memRepo{})
	ctx := context.Background()

	_, err := svc.CreateBand(ctx, "ab", "bad")
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	_, err = svc.CreateBand(ctx, "a", "Standard")
	require.NoError(t, err)

	day := func(s string) time.Time {
		d, err := time.Parse("2006-01-02", s)
		require.NoError(t, err)
		return d
	}
	_, err = svc.SetRate(ctx, "A", day("2008-12-01"), decimal.NewFromInt(15), 1)
	require.NoError(t, err)
	_, err = svc.SetRate(ctx, "A", day("2011-01-04"), decimal.NewFromInt(20), 1)
	require.NoError(t, err)

	r, err := svc.RateAt(ctx, "a", day("2010-06-30").Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "15", r.Rate.String())

	r, err = svc.RateAt(ctx, "A", day("2026-10-14"))
	require.NoError(t, err)
	assert.Equal(t, "20", r.Rate.String())

	_, err = svc.RateAt(ctx, "A", day("2000-01-01"))
	assert.True(t, tillerr.Is(err, tillerr.KindState))

	_, err = svc.SetRate(ctx, "A", day("2026-01-01"), decimal.NewFromInt(-1), 1)
	assert.True(t, tillerr.Is(err, tillerr.KindUser))
}
