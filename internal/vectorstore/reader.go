package vectorstore

import (
	"context"

	"fdbsearch/internal/domain"
)

// Reader is the subset of Gateway the Search Orchestrator depends on, so it
// can run against an in-memory Fake in tests.
type Reader interface {
	HybridQuery(ctx context.Context, spec QuerySpec) ([]Hit, error)
}

// Writer is the subset Ingestion depends on for upserts.
type Writer interface {
	Upsert(ctx context.Context, doc domain.DrugDocument) error
}

var _ Reader = (*Gateway)(nil)
var _ Writer = (*Gateway)(nil)
