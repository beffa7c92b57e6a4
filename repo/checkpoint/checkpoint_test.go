package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPoint_SetGetEvict(t *testing.T) {
	ctx := context.Background()
	store, err := NewCheckPoint(2)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "a", []byte("1")))
	require.NoError(t, store.Set(ctx, "b", []byte("2")))

	data, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), data)

	// a 刚被访问过，写入 c 时淘汰 b
	require.NoError(t, store.Set(ctx, "c", []byte("3")))
	_, ok, _ = store.Get(ctx, "b")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "a")
	assert.True(t, ok)
}

func TestNewCheckPoint_InvalidCapacity(t *testing.T) {
	_, err := NewCheckPoint(0)
	assert.Error(t, err)
}
