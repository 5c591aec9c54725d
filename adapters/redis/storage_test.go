package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient spins up a miniredis server and returns a client plus the server.
func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestStore_GetSetDelete(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewWithClient(client, "sk:")
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "record_reaction")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "record_reaction", "250"))
	v, ok, err := store.Get(ctx, "record_reaction")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "250", v)

	// stored under the namespace
	raw, err := mr.Get("sk:record_reaction")
	require.NoError(t, err)
	assert.Equal(t, "250", raw)

	require.NoError(t, store.Delete(ctx, "record_reaction"))
	_, ok, err = store.Get(ctx, "record_reaction")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_KeysScansPrefix(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewWithClient(client, "sk:")
	ctx := context.Background()

	for i := 0; i < 450; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("gameHistory_number_puzzle_%dx%d", i, i), "[]"))
	}
	require.NoError(t, store.Set(ctx, "bestScores_mouse_default", "[]"))
	// foreign key outside the namespace is ignored
	require.NoError(t, mr.Set("gameHistory_other", "x"))

	keys, err := store.Keys(ctx, "gameHistory_")
	require.NoError(t, err)
	assert.Len(t, keys, 450)
	for _, k := range keys {
		assert.NotContains(t, k, "sk:")
	}

	all, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 451)
}

func TestStore_GlobCharactersAreLiteral(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewWithClient(client, "")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a*b", "1"))
	require.NoError(t, store.Set(ctx, "axb", "2"))

	keys, err := store.Keys(ctx, "a*")
	require.NoError(t, err)
	assert.Equal(t, []string{"a*b"}, keys)
}

func TestIsOutOfMemory(t *testing.T) {
	assert.True(t, isOutOfMemory(errors.New("OOM command not allowed when used memory > 'maxmemory'.")))
	assert.False(t, isOutOfMemory(errors.New("connection refused")))
	assert.False(t, isOutOfMemory(nil))
}

func TestStore_ConnectionError(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewWithClient(client, "")
	mr.Close()

	_, _, err := store.Get(context.Background(), "k")
	assert.Error(t, err)
}
