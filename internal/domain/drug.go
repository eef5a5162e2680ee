// Package domain holds the entities, typed errors, and retry primitives shared
// across every component of the search engine.
package domain

import "time"

// Dosage form tags. Closed vocabulary; any value outside this set is not a
// valid DrugDocument.dosage_form.
const (
	DosageFormTablet      = "TABLET"
	DosageFormCapsule     = "CAPSULE"
	DosageFormCream       = "CREAM"
	DosageFormGel         = "GEL"
	DosageFormOintment    = "OINTMENT"
	DosageFormSolution    = "SOLUTION"
	DosageFormSuspension  = "SUSPENSION"
	DosageFormInjection   = "INJECTION"
	DosageFormVial        = "VIAL"
	DosageFormSyringe     = "SYRINGE"
	DosageFormPowder      = "POWDER"
	DosageFormPatch       = "PATCH"
	DosageFormSpray       = "SPRAY"
	DosageFormInhaler     = "INHALER"
	DosageFormDrops       = "DROPS"
	DosageFormSuppository = "SUPPOSITORY"
	DosageFormOther       = "OTHER"
)

// DosageForms is the closed vocabulary, in declaration order.
var DosageForms = []string{
	DosageFormTablet, DosageFormCapsule, DosageFormCream, DosageFormGel,
	DosageFormOintment, DosageFormSolution, DosageFormSuspension,
	DosageFormInjection, DosageFormVial, DosageFormSyringe, DosageFormPowder,
	DosageFormPatch, DosageFormSpray, DosageFormInhaler, DosageFormDrops,
	DosageFormSuppository, DosageFormOther,
}

// IsValidDosageForm reports whether form belongs to the closed vocabulary.
func IsValidDosageForm(form string) bool {
	for _, f := range DosageForms {
		if f == form {
			return true
		}
	}
	return false
}

// DEA schedule tags recognized by the catalog.
const (
	DEAScheduleNone = ""
	DEASchedule2    = "2"
	DEASchedule3    = "3"
	DEASchedule4    = "4"
	DEASchedule5    = "5"
)

// EmbeddingDimension is the fixed width of every stored and query vector.
const EmbeddingDimension = 1024

// DrugDocument is one record per NDC, the unit stored by the Vector Store
// Gateway and sourced from the Catalog Store Gateway at ingest time.
type DrugDocument struct {
	NDC              string    `json:"ndc"`
	DrugName         string    `json:"drug_name"`
	BrandName        string    `json:"brand_name"`
	GenericName      string    `json:"generic_name"`
	GCNSeqno         int64     `json:"gcn_seqno"`
	DrugClass        string    `json:"drug_class"`
	TherapeuticClass string    `json:"therapeutic_class"`
	DosageForm       string    `json:"dosage_form"`
	StrengthValue    float64   `json:"strength_value"`
	StrengthUnit     string    `json:"strength_unit"`
	Manufacturer     string    `json:"manufacturer"`
	IsBrand          bool      `json:"is_brand"`
	IsGeneric        bool      `json:"is_generic"`
	DEASchedule      string    `json:"dea_schedule"`
	IndicationKey    string    `json:"indication_key"`
	Embedding        []float32 `json:"embedding,omitempty"`
	IndexedAt        time.Time `json:"indexed_at"`
}

// BrandIndicationKey builds the indication_key for a brand-family document.
func BrandIndicationKey(brandName string) string {
	return "brand:" + brandName
}

// ClassIndicationKey builds the indication_key for a class-family document.
func ClassIndicationKey(drugClass string) string {
	return "class:" + drugClass
}

// IndicationRecord is the deduplicated per-class/per-brand indication list
// owned by the Indication Store.
type IndicationRecord struct {
	Key         string   `json:"key"`
	Indications []string `json:"indications"`
}

// MatchType is the provenance of a SearchResult, a closed tagged variant.
type MatchType string

const (
	MatchTypeVector          MatchType = "vector"
	MatchTypePharmacological MatchType = "pharmacological"
	MatchTypeTherapeutic     MatchType = "therapeutic"
)

// Priority returns the ranking weight of a match type; higher wins.
func (m MatchType) Priority() int {
	switch m {
	case MatchTypeVector:
		return 3
	case MatchTypePharmacological:
		return 2
	case MatchTypeTherapeutic:
		return 1
	default:
		return 0
	}
}

// StrengthFilter is the post-expansion numeric filter carried on ParsedQuery.
type StrengthFilter struct {
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Tolerance float64 `json:"tolerance"`
}

// Filters is the restricted, closed set of recognized filter keys. Zero value
// fields mean "not set" except where a bool pointer is required to
// distinguish "false" from "absent" (IsGeneric).
type Filters struct {
	DosageForm  string          `json:"dosage_form,omitempty"`
	Strength    *StrengthFilter `json:"strength,omitempty"`
	NDC         string          `json:"ndc,omitempty"`
	GCNSeqno    int64           `json:"gcn_seqno,omitempty"`
	DEASchedule string          `json:"dea_schedule,omitempty"`
	IsGeneric   *bool           `json:"is_generic,omitempty"`
}

// ParsedQuery is the ephemeral, per-request output of Query Understanding.
type ParsedQuery struct {
	SearchText     string   `json:"search_text"`
	DrugTerms      []string `json:"drug_terms"`
	Filters        Filters  `json:"filters"`
	Corrections    []string `json:"corrections"`
	DroppedFilters []string `json:"dropped_filters,omitempty"`
	Fallback       bool     `json:"fallback"`
}

// SearchResult is one returned drug group.
type SearchResult struct {
	FamilyKey      string         `json:"family_key"`
	Representative DrugDocument   `json:"representative"`
	Variants       []DrugDocument `json:"variants"`
	MatchType      MatchType      `json:"match_type"`
	Similarity     float64        `json:"similarity"`
	Indications    []string       `json:"indications,omitempty"`
}

// EnrichedRow is the catalog-sourced enrichment projection for a single NDC,
// returned in batch by EnrichByNDC.
type EnrichedRow struct {
	DrugDocument
}
