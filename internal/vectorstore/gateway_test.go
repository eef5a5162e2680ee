package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"fdbsearch/internal/domain"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client)
}

func TestGateway_UpsertThenGetRoundTrips(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	doc := domain.DrugDocument{
		NDC:          "00123456789",
		DrugName:     "CRESTOR 10MG TAB",
		BrandName:    "Crestor",
		GenericName:  "rosuvastatin calcium",
		GCNSeqno:     12345,
		DrugClass:    "STATINS",
		DosageForm:   domain.DosageFormTablet,
		StrengthValue: 10,
		StrengthUnit: "MG",
		Manufacturer: "ASTRAZENECA",
		IsBrand:      true,
		Embedding:    []float32{0.1, 0.2, 0.3},
		IndexedAt:    time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, g.Upsert(ctx, doc))

	got, found, err := g.Get(ctx, doc.NDC)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, doc.NDC, got.NDC)
	require.Equal(t, doc.DrugName, got.DrugName)
	require.True(t, got.IsBrand)
	require.False(t, got.IsGeneric)
	require.InDeltaSlice(t, doc.Embedding, got.Embedding, 1e-6)
}

func TestGateway_GetMissingReturnsNotFound(t *testing.T) {
	g := newTestGateway(t)
	_, found, err := g.Get(context.Background(), "nonexistent")
	require.NoError(t, err)
	require.False(t, found)
}
