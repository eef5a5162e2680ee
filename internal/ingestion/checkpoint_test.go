package ingestion

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCheckpointStore(t *testing.T) *RedisCheckpointStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisCheckpointStore(client)
}

func TestRedisCheckpointStore_LoadMissingReturnsNotFound(t *testing.T) {
	store := newTestCheckpointStore(t)
	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCheckpointStore_SaveThenLoadRoundTrips(t *testing.T) {
	store := newTestCheckpointStore(t)
	cp := Checkpoint{Offset: 500, DeadLetter: []string{"00001", "00002"}}
	require.NoError(t, store.Save(context.Background(), cp))

	loaded, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 500, loaded.Offset)
	assert.Equal(t, []string{"00001", "00002"}, loaded.DeadLetter)
}
