package catalogstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fdbsearch/internal/domain"
)

func TestNormalize_UppercasesDrugNameLowercasesGeneric(t *testing.T) {
	doc := Normalize(CatalogRow{
		NDC: "00123456789", DrugNameRaw: "crestor 10mg tab", GenericName: "ROSUVASTATIN CALCIUM",
		Innovator: "1", BrandName: "Crestor",
	})
	assert.Equal(t, "CRESTOR 10MG TAB", doc.DrugName)
	assert.Equal(t, "rosuvastatin calcium", doc.GenericName)
}

func TestNormalize_IsBrandXorIsGeneric(t *testing.T) {
	brand := Normalize(CatalogRow{Innovator: "1", BrandName: "Crestor"})
	assert.True(t, brand.IsBrand)
	assert.False(t, brand.IsGeneric)

	generic := Normalize(CatalogRow{Innovator: "0", DrugClass: "statins"})
	assert.True(t, generic.IsGeneric)
	assert.False(t, generic.IsBrand)
}

func TestNormalize_DosageFormAliasMapping(t *testing.T) {
	doc := Normalize(CatalogRow{DosageFormRaw: "TAB"})
	assert.Equal(t, domain.DosageFormTablet, doc.DosageForm)
}

func TestNormalize_UnknownDosageFormFallsBackToOther(t *testing.T) {
	doc := Normalize(CatalogRow{DosageFormRaw: "LOZENGE"})
	assert.Equal(t, domain.DosageFormOther, doc.DosageForm)
}

func TestNormalize_InvalidDEAScheduleCleared(t *testing.T) {
	doc := Normalize(CatalogRow{DEAScheduleRaw: "1"})
	assert.Equal(t, "", doc.DEASchedule)
}

func TestNormalize_ValidDEAScheduleKept(t *testing.T) {
	doc := Normalize(CatalogRow{DEAScheduleRaw: "2"})
	assert.Equal(t, "2", doc.DEASchedule)
}

func TestNormalize_IndicationKeyPrefersBrand(t *testing.T) {
	doc := Normalize(CatalogRow{Innovator: "1", BrandName: "Crestor", DrugClass: "statins"})
	assert.Equal(t, "brand:Crestor", doc.IndicationKey)
}

func TestNormalize_IndicationKeyFallsBackToClass(t *testing.T) {
	doc := Normalize(CatalogRow{Innovator: "0", DrugClass: "rosuvastatin calcium"})
	assert.Equal(t, "class:ROSUVASTATIN_CALCIUM", doc.IndicationKey)
}

func TestIsActive_RejectsShortNames(t *testing.T) {
	assert.False(t, IsActive("abc"))
	assert.True(t, IsActive("abcd"))
}
