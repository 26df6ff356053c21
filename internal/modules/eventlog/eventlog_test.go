package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	entries []Entry
	last    Filter
}

func (m *memRepo) Insert(_ context.Context, e *Entry) error {
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memRepo) List(_ context.Context, f Filter) ([]Entry, error) {
	m.last = f
	return m.entries, nil
}

func TestService_Log(t *testing.T) {
	repo := &memRepo{}
	at := time.Date(2026, 3, 6, 21, 30, 0, 0, time.UTC)
	svc := NewService(repo, clock.NewManual(at), zap.NewNop())
	ctx := context.Background()

	trans := int64(42)
	require.NoError(t, svc.Log(ctx, Entry{Description: "Deferred transaction 42", TransID: &trans}))
	require.Len(t, repo.entries, 1)
	assert.Equal(t, at, repo.entries[0].Time)
	assert.Equal(t, int64(42), *repo.entries[0].TransID)

	assert.Error(t, svc.Log(ctx, Entry{}))

	_, err := svc.Recent(ctx, Filter{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, defaultLimit, repo.last.Limit)
}
