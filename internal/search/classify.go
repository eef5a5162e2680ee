package search

import "fdbsearch/internal/domain"

// classifiedHit is one candidate NDC after Step 4 classification: exactly
// one match_type, the stored similarity for vector hits only.
type classifiedHit struct {
	doc        domain.DrugDocument
	matchType  domain.MatchType
	similarity float64
}

// classify implements §4.6 Step 4: priority vector > pharmacological >
// therapeutic, each ndc appears exactly once carrying the higher-priority
// match_type on conflict.
func classify(vectorHits, pharmaHits, therapeuticHits map[string]hitRef) []classifiedHit {
	out := make([]classifiedHit, 0, len(vectorHits)+len(pharmaHits)+len(therapeuticHits))
	seen := map[string]bool{}

	for ndc, h := range vectorHits {
		out = append(out, classifiedHit{doc: h.doc, matchType: domain.MatchTypeVector, similarity: h.similarity})
		seen[ndc] = true
	}
	for ndc, h := range pharmaHits {
		if seen[ndc] {
			continue
		}
		out = append(out, classifiedHit{doc: h.doc, matchType: domain.MatchTypePharmacological})
		seen[ndc] = true
	}
	for ndc, h := range therapeuticHits {
		if seen[ndc] {
			continue
		}
		out = append(out, classifiedHit{doc: h.doc, matchType: domain.MatchTypeTherapeutic})
		seen[ndc] = true
	}
	return out
}
