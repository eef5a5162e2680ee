package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fdbsearch/internal/domain"
)

func TestClassify_VectorWinsOverOthers(t *testing.T) {
	vector := map[string]hitRef{"1": {doc: domain.DrugDocument{NDC: "1"}, similarity: 0.9}}
	pharma := map[string]hitRef{"1": {doc: domain.DrugDocument{NDC: "1"}}, "2": {doc: domain.DrugDocument{NDC: "2"}}}
	therapeutic := map[string]hitRef{"2": {doc: domain.DrugDocument{NDC: "2"}}, "3": {doc: domain.DrugDocument{NDC: "3"}}}

	out := classify(vector, pharma, therapeutic)
	byNDC := map[string]classifiedHit{}
	for _, h := range out {
		byNDC[h.doc.NDC] = h
	}
	assert.Equal(t, domain.MatchTypeVector, byNDC["1"].matchType)
	assert.Equal(t, domain.MatchTypePharmacological, byNDC["2"].matchType)
	assert.Equal(t, domain.MatchTypeTherapeutic, byNDC["3"].matchType)
}

func TestClassify_EmptyInputsYieldsEmptyOutput(t *testing.T) {
	out := classify(nil, nil, nil)
	assert.Empty(t, out)
}
