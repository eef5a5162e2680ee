package catalogstore

import (
	"context"

	"fdbsearch/internal/domain"
)

// Fake is an in-memory Reader for tests, grounded on the corpus's
// in-memory-fake pattern for external dependencies.
type Fake struct {
	Rows        []CatalogRow
	Indications map[string][]string
}

func (f *Fake) ScanActive(ctx context.Context, offset, limit int) ([]CatalogRow, error) {
	if offset >= len(f.Rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.Rows) {
		end = len(f.Rows)
	}
	return f.Rows[offset:end], nil
}

func (f *Fake) EnrichByNDC(ctx context.Context, ndcs []string) (map[string]domain.EnrichedRow, error) {
	want := make(map[string]bool, len(ndcs))
	for _, n := range ndcs {
		want[n] = true
	}
	out := map[string]domain.EnrichedRow{}
	for _, r := range f.Rows {
		if want[r.NDC] {
			out[r.NDC] = domain.EnrichedRow{DrugDocument: Normalize(r)}
		}
	}
	return out, nil
}

func (f *Fake) LookupIndicationsByClass(ctx context.Context, classKeys []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, k := range classKeys {
		if v, ok := f.Indications[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *Fake) LookupByGCNSeqno(ctx context.Context, gcnSeqno int64) ([]domain.DrugDocument, error) {
	var out []domain.DrugDocument
	for _, r := range f.Rows {
		if r.GCNSeqno == gcnSeqno {
			out = append(out, Normalize(r))
		}
	}
	return out, nil
}
