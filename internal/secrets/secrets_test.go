package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo map[string][]byte

func (m memRepo) Put(_ context.Context, keyName, secretName string, token []byte) error {
	m[keyName+"/"+secretName] = token
	return nil
}

func (m memRepo) Get(_ context.Context, keyName, secretName string) ([]byte, error) {
	tok, ok := m[keyName+"/"+secretName]
	if !ok {
		return nil, ErrNotFound
	}
	return tok, nil
}

func TestStore_RoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	repo := memRepo{}
	store, err := NewStore(repo, "card", key)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "api-key", "sk_live_123"))
	assert.NotContains(t, string(repo["card/api-key"]), "sk_live_123")

	got, err := store.Get(ctx, "api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk_live_123", got)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_WrongKey(t *testing.T) {
	k1, err := GenerateKey()
	require.NoError(t, err)
	k2, err := GenerateKey()
	require.NoError(t, err)

	repo := memRepo{}
	s1, err := NewStore(repo, "card", k1)
	require.NoError(t, err)
	s2, err := NewStore(repo, "card", k2)
	require.NoError(t, err)

	require.NoError(t, s1.Put(context.Background(), "api-key", "secret"))
	_, err = s2.Get(context.Background(), "api-key")
	assert.Error(t, err)

	_, err = NewStore(repo, "card", "not-a-key")
	assert.Error(t, err)
}
