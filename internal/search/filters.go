package search

import (
	"strings"

	"fdbsearch/internal/domain"
)

// applyPostExpansionFilters implements §4.6 Step 5. Strength is applied
// here, not pre-expansion, so class recall isn't over-pruned before the
// expansion pass sees the full candidate set.
func applyPostExpansionFilters(hits []classifiedHit, filters domain.Filters, synonyms map[string][]string) []classifiedHit {
	out := hits[:0:0]
	for _, h := range hits {
		if filters.Strength != nil && filters.Strength.Value > 0 {
			lo := filters.Strength.Value * (1 - filters.Strength.Tolerance)
			hi := filters.Strength.Value * (1 + filters.Strength.Tolerance)
			if h.doc.StrengthValue < lo || h.doc.StrengthValue > hi {
				continue
			}
			if filters.Strength.Unit != "" && !strings.EqualFold(h.doc.StrengthUnit, filters.Strength.Unit) {
				continue
			}
		}
		if filters.DosageForm != "" {
			allowed := expandDosageFormSynonyms(filters.DosageForm, synonyms)
			if !containsString(allowed, h.doc.DosageForm) {
				continue
			}
		}
		out = append(out, h)
	}
	return out
}

func expandDosageFormSynonyms(form string, synonyms map[string][]string) []string {
	if set, ok := synonyms[form]; ok {
		return set
	}
	return []string{form}
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
