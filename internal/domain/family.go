package domain

import "strings"

// FamilyKey implements the §4.6 Step 6 grouping rule: brand_name when the
// document is a brand, drug_class otherwise (falling back to generic_name
// when the class is empty).
func FamilyKey(d DrugDocument) string {
	if d.IsBrand && strings.TrimSpace(d.BrandName) != "" {
		return d.BrandName
	}
	if strings.TrimSpace(d.DrugClass) != "" {
		return d.DrugClass
	}
	return d.GenericName
}

// VariantKey groups NDCs within a family into distinct packaging variants.
type VariantKey struct {
	Manufacturer  string
	StrengthValue float64
	StrengthUnit  string
	DosageForm    string
}

// VariantKeyOf builds the collapse key for a document within its family.
func VariantKeyOf(d DrugDocument) VariantKey {
	return VariantKey{
		Manufacturer:  d.Manufacturer,
		StrengthValue: d.StrengthValue,
		StrengthUnit:  strings.ToUpper(d.StrengthUnit),
		DosageForm:    d.DosageForm,
	}
}
