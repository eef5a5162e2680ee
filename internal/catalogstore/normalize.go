package catalogstore

import (
	"strings"

	"fdbsearch/internal/domain"
)

// dosageFormAliases maps raw catalog dosage-form spellings onto the closed
// vocabulary domain.DosageForms enumerates. Forms with no alias fall back to
// domain.DosageFormOther.
var dosageFormAliases = map[string]string{
	"TAB":        domain.DosageFormTablet,
	"TABLET":     domain.DosageFormTablet,
	"TABS":       domain.DosageFormTablet,
	"CAP":        domain.DosageFormCapsule,
	"CAPSULE":    domain.DosageFormCapsule,
	"CAPS":       domain.DosageFormCapsule,
	"CREAM":      domain.DosageFormCream,
	"GEL":        domain.DosageFormGel,
	"OINT":       domain.DosageFormOintment,
	"OINTMENT":   domain.DosageFormOintment,
	"SOLN":       domain.DosageFormSolution,
	"SOLUTION":   domain.DosageFormSolution,
	"SUSP":       domain.DosageFormSuspension,
	"SUSPENSION": domain.DosageFormSuspension,
	"INJ":        domain.DosageFormInjection,
	"INJECTION":  domain.DosageFormInjection,
	"VIAL":       domain.DosageFormVial,
	"SYRINGE":    domain.DosageFormSyringe,
	"SYR":        domain.DosageFormSyringe,
	"POWDER":     domain.DosageFormPowder,
	"POWD":       domain.DosageFormPowder,
	"PATCH":      domain.DosageFormPatch,
	"SPRAY":      domain.DosageFormSpray,
	"INHALER":    domain.DosageFormInhaler,
	"INHL":       domain.DosageFormInhaler,
	"DROPS":      domain.DosageFormDrops,
	"DROP":       domain.DosageFormDrops,
	"SUPP":       domain.DosageFormSuppository,
	"SUPPOSITORY": domain.DosageFormSuppository,
}

var validDEASchedules = map[string]bool{"": true, "2": true, "3": true, "4": true, "5": true}

// Normalize converts a raw catalog row into a DrugDocument using the
// deterministic rules §3.1 specifies: drug_name uppercase, generic_name
// lowercase, dosage_form mapped to a closed vocabulary, is_brand/is_generic
// derived from the innov flag, and an out-of-range dea_schedule cleared
// rather than rejected (ingest must not abort a batch on a single bad row).
func Normalize(r CatalogRow) domain.DrugDocument {
	doc := domain.DrugDocument{
		NDC:              strings.TrimSpace(r.NDC),
		DrugName:         strings.ToUpper(strings.TrimSpace(r.DrugNameRaw)),
		BrandName:        strings.TrimSpace(r.BrandName),
		GenericName:      strings.ToLower(strings.TrimSpace(r.GenericName)),
		GCNSeqno:         r.GCNSeqno,
		DrugClass:        strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(r.DrugClass), " ", "_")),
		TherapeuticClass: strings.TrimSpace(r.TherapeuticClass),
		DosageForm:       normalizeDosageForm(r.DosageFormRaw),
		StrengthValue:    r.StrengthValue,
		StrengthUnit:     normalizeStrengthUnit(r.StrengthUnitRaw),
		Manufacturer:     strings.TrimSpace(r.Manufacturer),
		IsGeneric:        r.Innovator == "0",
		IsBrand:          r.Innovator == "1",
		DEASchedule:      normalizeDEASchedule(r.DEAScheduleRaw),
	}

	if doc.IsBrand && doc.BrandName != "" {
		doc.IndicationKey = domain.BrandIndicationKey(doc.BrandName)
	} else {
		doc.IndicationKey = domain.ClassIndicationKey(doc.DrugClass)
	}
	return doc
}

func normalizeDosageForm(raw string) string {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if form, ok := dosageFormAliases[key]; ok {
		return form
	}
	if domain.IsValidDosageForm(key) {
		return key
	}
	return domain.DosageFormOther
}

func normalizeStrengthUnit(raw string) string {
	u := strings.ToUpper(strings.TrimSpace(raw))
	switch u {
	case "MG", "ML", "MCG", "G", "%", "UNIT":
		return u
	case "":
		return ""
	default:
		return u
	}
}

func normalizeDEASchedule(raw string) string {
	s := strings.TrimSpace(raw)
	if validDEASchedules[s] {
		return s
	}
	return ""
}

// IsActive reports whether a raw drug_name passes the ScanActive admission
// rule independent of SQL, used by ingestion normalization tests.
func IsActive(drugName string) bool {
	return len(strings.TrimSpace(drugName)) >= minActiveNameLen
}
