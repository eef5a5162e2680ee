package indication

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"fdbsearch/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client)
}

func TestStore_UpsertThenGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, domain.IndicationRecord{
		Key:         "brand:CRESTOR",
		Indications: []string{"high cholesterol", "cardiovascular risk reduction"},
	})
	require.NoError(t, err)

	got, found, err := s.Get(ctx, "brand:CRESTOR")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []string{"high cholesterol", "cardiovascular risk reduction"}, got)
}

func TestStore_GetMissingKeyReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, found, err := s.Get(context.Background(), "brand:NOPE")
	require.NoError(t, err)
	require.False(t, found)
}

func TestStore_UpsertReplacesWholesale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, domain.IndicationRecord{Key: "class:STATINS", Indications: []string{"a", "b"}}))
	require.NoError(t, s.Upsert(ctx, domain.IndicationRecord{Key: "class:STATINS", Indications: []string{"c"}}))

	got, _, err := s.Get(ctx, "class:STATINS")
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, got)
}

func TestStore_GetBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, domain.IndicationRecord{Key: "brand:A", Indications: []string{"x"}}))
	require.NoError(t, s.Upsert(ctx, domain.IndicationRecord{Key: "brand:B", Indications: []string{"y"}}))

	out, err := s.GetBatch(ctx, []string{"brand:A", "brand:B", "brand:MISSING"})
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, out["brand:A"])
	require.Equal(t, []string{"y"}, out["brand:B"])
	require.NotContains(t, out, "brand:MISSING")
}
