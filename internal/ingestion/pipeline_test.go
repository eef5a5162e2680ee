package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdbsearch/internal/catalogstore"
	"fdbsearch/internal/config"
	"fdbsearch/internal/domain"
	"fdbsearch/internal/embedding"
	"fdbsearch/internal/indication"
	"fdbsearch/internal/vectorstore"
)

func testIngestCfg() config.IngestConfig {
	return config.IngestConfig{BatchSize: 10, Concurrency: 4}
}

func TestRunOne_NormalizesEmbedsAndUpserts(t *testing.T) {
	catalog := &catalogstore.Fake{Rows: []catalogstore.CatalogRow{
		{NDC: "00001", DrugNameRaw: "crestor 10mg tab", BrandName: "Crestor", Innovator: "1", DrugClass: "statins", DosageFormRaw: "TAB", StrengthValue: 10, StrengthUnitRaw: "mg"},
		{NDC: "00002", DrugNameRaw: "lipitor 20mg tab", BrandName: "Lipitor", Innovator: "1", DrugClass: "statins", DosageFormRaw: "TAB", StrengthValue: 20, StrengthUnitRaw: "mg"},
	}}
	vectors := vectorstore.NewFake()
	indications := &indication.Fake{}
	embedder := embedding.NewDeterministic(domain.EmbeddingDimension)

	p := New(catalog, embedder, vectors, indications, nil, testIngestCfg())
	result, err := p.RunOne(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.OK)
	assert.Zero(t, result.Failed)
	assert.Equal(t, 2, result.NextOffset)
	assert.False(t, result.Done)

	hits, err := vectors.HybridQuery(context.Background(), vectorstore.QuerySpec{Filters: domain.Filters{NDC: "00001"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.NotEmpty(t, hits[0].Doc.Embedding)
}

func TestRunOne_EmptyScanReturnsDone(t *testing.T) {
	catalog := &catalogstore.Fake{}
	vectors := vectorstore.NewFake()
	embedder := embedding.NewDeterministic(domain.EmbeddingDimension)

	p := New(catalog, embedder, vectors, nil, nil, testIngestCfg())
	result, err := p.RunOne(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, result.Done)
}

func TestRunOne_EmbeddingFailureDeadLettersRowAndContinues(t *testing.T) {
	catalog := &catalogstore.Fake{Rows: []catalogstore.CatalogRow{
		{NDC: "00001", DrugNameRaw: "fail me", Innovator: "1", DrugClass: "x"},
		{NDC: "00002", DrugNameRaw: "ok drug", Innovator: "1", DrugClass: "x"},
	}}
	vectors := vectorstore.NewFake()
	embedder := &failingEmbedder{failOn: "FAIL ME  "} // embeddingInput of the normalized row

	p := New(catalog, embedder, vectors, nil, nil, testIngestCfg())
	result, err := p.RunOne(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.OK)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.DeadLetter, 1)
	assert.Equal(t, "00001", result.DeadLetter[0])
}

func TestRunOne_UpsertsIndicationsForUnseenKeys(t *testing.T) {
	catalog := &catalogstore.Fake{
		Rows: []catalogstore.CatalogRow{
			{NDC: "00001", DrugNameRaw: "crestor 10mg tab", BrandName: "Crestor", Innovator: "1", DrugClass: "statins"},
		},
		Indications: map[string][]string{"brand:Crestor": {"high cholesterol"}},
	}
	vectors := vectorstore.NewFake()
	indications := &indication.Fake{}
	embedder := embedding.NewDeterministic(domain.EmbeddingDimension)

	p := New(catalog, embedder, vectors, indications, nil, testIngestCfg())
	_, err := p.RunOne(context.Background(), 0)
	require.NoError(t, err)

	stored, err := indications.GetBatch(context.Background(), []string{"brand:Crestor"})
	require.NoError(t, err)
	assert.Equal(t, []string{"high cholesterol"}, stored["brand:Crestor"])
}

func TestRunOne_ScanFailureAbortsBatch(t *testing.T) {
	catalog := &erroringCatalog{}
	vectors := vectorstore.NewFake()
	embedder := embedding.NewDeterministic(domain.EmbeddingDimension)

	p := New(catalog, embedder, vectors, nil, nil, testIngestCfg())
	_, err := p.RunOne(context.Background(), 0)
	require.Error(t, err)
}

func TestRun_PagesUntilScanIsEmpty(t *testing.T) {
	rows := make([]catalogstore.CatalogRow, 25)
	for i := range rows {
		rows[i] = catalogstore.CatalogRow{NDC: string(rune('A' + i)), DrugNameRaw: "drug", Innovator: "1", DrugClass: "x"}
	}
	catalog := &catalogstore.Fake{Rows: rows}
	vectors := vectorstore.NewFake()
	embedder := embedding.NewDeterministic(domain.EmbeddingDimension)

	cfg := config.IngestConfig{BatchSize: 10, Concurrency: 4}
	p := New(catalog, embedder, vectors, nil, nil, cfg)
	results, err := p.Run(context.Background(), 0, 0, time.Time{})
	require.NoError(t, err)

	total := 0
	for _, r := range results {
		total += r.OK
	}
	assert.Equal(t, 25, total)
	assert.True(t, results[len(results)-1].Done)
}

type failingEmbedder struct {
	failOn string
}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == f.failOn {
		return nil, domain.Internal("embedding failed", nil)
	}
	return embedding.NewDeterministic(domain.EmbeddingDimension).Embed(ctx, text)
}

type erroringCatalog struct{}

func (e *erroringCatalog) ScanActive(ctx context.Context, offset, limit int) ([]catalogstore.CatalogRow, error) {
	return nil, domain.Unavailable("catalog down", nil)
}

func (e *erroringCatalog) EnrichByNDC(ctx context.Context, ndcs []string) (map[string]domain.EnrichedRow, error) {
	return nil, nil
}

func (e *erroringCatalog) LookupIndicationsByClass(ctx context.Context, classKeys []string) (map[string][]string, error) {
	return nil, nil
}

func (e *erroringCatalog) LookupByGCNSeqno(ctx context.Context, gcnSeqno int64) ([]domain.DrugDocument, error) {
	return nil, nil
}
