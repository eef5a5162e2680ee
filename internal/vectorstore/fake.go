package vectorstore

import (
	"context"
	"math"
	"strings"

	"fdbsearch/internal/domain"
)

// Fake is an in-memory Reader+Writer for tests: it applies the same
// filter-then-KNN semantics as the real gateway (TAG equality, NUMERIC
// range, TEXT prefix) over a plain slice, without needing a live Redis +
// RediSearch instance.
type Fake struct {
	docs []domain.DrugDocument
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) Upsert(ctx context.Context, doc domain.DrugDocument) error {
	for i, existing := range f.docs {
		if existing.NDC == doc.NDC {
			f.docs[i] = doc
			return nil
		}
	}
	f.docs = append(f.docs, doc)
	return nil
}

func (f *Fake) HybridQuery(ctx context.Context, spec QuerySpec) ([]Hit, error) {
	var hits []Hit
	for _, doc := range f.docs {
		if !matchesFilters(doc, spec) {
			continue
		}
		sim := 0.0
		if len(spec.Vector) > 0 {
			sim = cosineSimilarity(spec.Vector, doc.Embedding)
		}
		hits = append(hits, Hit{Doc: doc, Similarity: sim})
	}

	if len(spec.Vector) > 0 {
		sortHitsBySimilarityDesc(hits)
		k := spec.K
		if k > 0 && len(hits) > k {
			hits = hits[:k]
		}
	} else {
		limit := spec.Limit
		if limit > 0 && len(hits) > limit {
			hits = hits[:limit]
		}
	}
	return hits, nil
}

func matchesFilters(doc domain.DrugDocument, spec QuerySpec) bool {
	f := spec.Filters
	if f.DosageForm != "" && doc.DosageForm != f.DosageForm {
		return false
	}
	if f.NDC != "" && doc.NDC != f.NDC {
		return false
	}
	if f.GCNSeqno != 0 && doc.GCNSeqno != f.GCNSeqno {
		return false
	}
	if f.DEASchedule != "" && doc.DEASchedule != f.DEASchedule {
		return false
	}
	if f.IsGeneric != nil && doc.IsGeneric != *f.IsGeneric {
		return false
	}
	if f.Strength != nil && f.Strength.Value > 0 {
		lo := f.Strength.Value * (1 - f.Strength.Tolerance)
		hi := f.Strength.Value * (1 + f.Strength.Tolerance)
		if doc.StrengthValue < lo || doc.StrengthValue > hi {
			return false
		}
	}
	if spec.ClassField != "" && len(spec.ClassValues) > 0 {
		var val string
		switch spec.ClassField {
		case "drug_class":
			val = doc.DrugClass
		case "therapeutic_class":
			val = doc.TherapeuticClass
		}
		if !containsFold(spec.ClassValues, val) {
			return false
		}
	}
	if trimmed := strings.TrimSpace(spec.SearchText); len(trimmed) >= minTextPrefixLen {
		if !hasPrefixFold(doc.DrugName, trimmed) && !hasPrefixFold(doc.BrandName, trimmed) && !hasPrefixFold(doc.GenericName, trimmed) {
			return false
		}
	}
	return true
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sortHitsBySimilarityDesc(hits []Hit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Similarity > hits[j-1].Similarity; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}
