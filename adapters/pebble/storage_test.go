package pebble

import (
	"context"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := OpenWithOptions("scores", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "record_mouse")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "record_mouse", "31.5"))
	v, ok, err := s.Get(ctx, "record_mouse")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "31.5", v)

	require.NoError(t, s.Set(ctx, "record_mouse", "30"))
	v, _, _ = s.Get(ctx, "record_mouse")
	assert.Equal(t, "30", v)

	require.NoError(t, s.Delete(ctx, "record_mouse"))
	_, ok, err = s.Get(ctx, "record_mouse")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_KeysByPrefix(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()

	for _, k := range []string{
		"gameHistory_reaction_default",
		"gameHistory_mouse_default",
		"bestScores_mouse_default",
		"gameStats",
	} {
		require.NoError(t, s.Set(ctx, k, "[]"))
	}

	keys, err := s.Keys(ctx, "gameHistory_")
	require.NoError(t, err)
	assert.Equal(t, []string{"gameHistory_mouse_default", "gameHistory_reaction_default"}, keys)

	all, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestStore_DeletePrefix(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "bestScores_a_default", "[]"))
	require.NoError(t, s.Set(ctx, "bestScores_b_default", "[]"))
	require.NoError(t, s.Set(ctx, "gameStats", "{}"))

	n, err := s.DeletePrefix(ctx, "bestScores_")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, _ := s.Keys(ctx, "")
	assert.Equal(t, []string{"gameStats"}, all)
}

func TestUpperBound(t *testing.T) {
	assert.Equal(t, []byte("ab"), upperBound([]byte("aa")))
	assert.Equal(t, []byte("b"), upperBound([]byte{'a', 0xff}))
	assert.Nil(t, upperBound([]byte{0xff, 0xff}))
}
