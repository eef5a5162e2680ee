package search

import (
	"context"

	"fdbsearch/internal/domain"
	"fdbsearch/internal/telemetry"
)

// enrich implements §4.6 Step 8: collect every representative and variant
// NDC across all results, call EnrichByNDC exactly once, then attach
// indications via a single batched Indication Store lookup.
func (o *Orchestrator) enrich(ctx context.Context, results []domain.SearchResult) error {
	ctx, span := telemetry.StartSpan(ctx, "search.enrich")
	defer span.End()

	if len(results) == 0 {
		return nil
	}

	ndcSet := map[string]bool{}
	for _, r := range results {
		ndcSet[r.Representative.NDC] = true
		for _, v := range r.Variants {
			ndcSet[v.NDC] = true
		}
	}
	ndcs := make([]string, 0, len(ndcSet))
	for ndc := range ndcSet {
		ndcs = append(ndcs, ndc)
	}

	enriched, err := o.catalog.EnrichByNDC(ctx, ndcs)
	if err != nil {
		return telemetry.RecordError(span, err)
	}

	indicationKeySet := map[string]bool{}
	for i := range results {
		applyEnrichment(&results[i].Representative, enriched)
		for j := range results[i].Variants {
			applyEnrichment(&results[i].Variants[j], enriched)
		}
		if results[i].Representative.IndicationKey != "" {
			indicationKeySet[results[i].Representative.IndicationKey] = true
		}
	}
	keys := make([]string, 0, len(indicationKeySet))
	for k := range indicationKeySet {
		keys = append(keys, k)
	}

	indications, err := o.indications.GetBatch(ctx, keys)
	if err != nil {
		return telemetry.RecordError(span, err)
	}
	for i := range results {
		results[i].Indications = indications[results[i].Representative.IndicationKey]
	}
	return nil
}

func applyEnrichment(doc *domain.DrugDocument, enriched map[string]domain.EnrichedRow) {
	row, ok := enriched[doc.NDC]
	if !ok {
		return
	}
	embedding := doc.Embedding
	indexedAt := doc.IndexedAt
	*doc = row.DrugDocument
	doc.Embedding = embedding
	doc.IndexedAt = indexedAt
}
