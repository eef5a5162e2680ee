package search

import (
	"sort"

	"fdbsearch/internal/domain"
)

// family accumulates classified hits that share a family_key before they
// collapse into variants.
type family struct {
	key      string
	variants map[domain.VariantKey]classifiedHit
}

// groupAndOrder implements §4.6 Steps 6 and 7: family grouping with variant
// collapse, representative selection, then the three-level sort.
func groupAndOrder(hits []classifiedHit) []domain.SearchResult {
	families := map[string]*family{}
	var order []string

	for _, h := range hits {
		key := domain.FamilyKey(h.doc)
		f, ok := families[key]
		if !ok {
			f = &family{key: key, variants: map[domain.VariantKey]classifiedHit{}}
			families[key] = f
			order = append(order, key)
		}

		vk := domain.VariantKeyOf(h.doc)
		existing, ok := f.variants[vk]
		if !ok || h.matchType.Priority() > existing.matchType.Priority() ||
			(h.matchType.Priority() == existing.matchType.Priority() && h.doc.NDC < existing.doc.NDC) {
			f.variants[vk] = h
		}
	}

	results := make([]domain.SearchResult, 0, len(order))
	for _, key := range order {
		f := families[key]
		results = append(results, buildSearchResult(f))
	}

	sortResults(results)
	return results
}

func buildSearchResult(f *family) domain.SearchResult {
	variants := make([]classifiedHit, 0, len(f.variants))
	for _, v := range f.variants {
		variants = append(variants, v)
	}

	bestPriority := -1
	var rep classifiedHit
	for _, v := range variants {
		if v.matchType.Priority() > bestPriority ||
			(v.matchType.Priority() == bestPriority && v.doc.NDC < rep.doc.NDC) {
			bestPriority = v.matchType.Priority()
			rep = v
		}
	}

	docs := make([]domain.DrugDocument, 0, len(variants))
	for _, v := range variants {
		docs = append(docs, v.doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].NDC < docs[j].NDC })

	return domain.SearchResult{
		FamilyKey:      f.key,
		Representative: rep.doc,
		Variants:       docs,
		MatchType:      rep.matchType,
		Similarity:     rep.similarity,
	}
}

// sortResults implements §4.6 Step 7's three-level ordering.
func sortResults(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.MatchType.Priority() != b.MatchType.Priority() {
			return a.MatchType.Priority() > b.MatchType.Priority()
		}
		if a.MatchType == domain.MatchTypeVector {
			return a.Similarity > b.Similarity
		}
		return a.Representative.DrugName < b.Representative.DrugName
	})
}
