package indication

import (
	"context"

	"fdbsearch/internal/domain"
)

// Reader is the subset of Store the Search Orchestrator depends on.
type Reader interface {
	GetBatch(ctx context.Context, indicationKeys []string) (map[string][]string, error)
}

// Writer is the subset of Store the Ingestion Pipeline depends on.
type Writer interface {
	Upsert(ctx context.Context, record domain.IndicationRecord) error
}

var _ Reader = (*Store)(nil)
var _ Writer = (*Store)(nil)

// Fake is an in-memory Reader+Writer for tests.
type Fake struct {
	Data map[string][]string
}

func (f *Fake) GetBatch(ctx context.Context, indicationKeys []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, k := range indicationKeys {
		if v, ok := f.Data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *Fake) Upsert(ctx context.Context, record domain.IndicationRecord) error {
	if f.Data == nil {
		f.Data = map[string][]string{}
	}
	f.Data[record.Key] = record.Indications
	return nil
}
