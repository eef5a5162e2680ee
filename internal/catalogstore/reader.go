package catalogstore

import (
	"context"

	"fdbsearch/internal/domain"
)

// Reader is the subset of Gateway the Search Orchestrator, Ingestion
// Pipeline, and HTTP API depend on, so all three can be exercised against an
// in-memory Fake in tests without a live Postgres instance.
type Reader interface {
	ScanActive(ctx context.Context, offset, limit int) ([]CatalogRow, error)
	EnrichByNDC(ctx context.Context, ndcs []string) (map[string]domain.EnrichedRow, error)
	LookupIndicationsByClass(ctx context.Context, classKeys []string) (map[string][]string, error)
	LookupByGCNSeqno(ctx context.Context, gcnSeqno int64) ([]domain.DrugDocument, error)
}

var _ Reader = (*Gateway)(nil)
