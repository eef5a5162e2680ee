package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fdbsearch/internal/domain"
)

func TestBuildFilterExpression_EmptyFiltersMatchesAll(t *testing.T) {
	expr := BuildFilterExpression(domain.Filters{}, "")
	assert.Equal(t, "*", expr)
}

func TestBuildFilterExpression_DosageFormTag(t *testing.T) {
	expr := BuildFilterExpression(domain.Filters{DosageForm: domain.DosageFormTablet}, "")
	assert.Contains(t, expr, "@dosage_form:{TABLET}")
}

func TestBuildFilterExpression_StrengthRange(t *testing.T) {
	f := domain.Filters{Strength: &domain.StrengthFilter{Value: 10, Unit: "MG", Tolerance: 0.05}}
	expr := BuildFilterExpression(f, "")
	assert.Contains(t, expr, "@strength_value:[9.5 10.5]")
}

func TestBuildFilterExpression_ShortSearchTextOmitsTextPrefix(t *testing.T) {
	expr := BuildFilterExpression(domain.Filters{}, "abc")
	assert.Equal(t, "*", expr)
}

func TestBuildFilterExpression_LongSearchTextAddsTextPrefix(t *testing.T) {
	expr := BuildFilterExpression(domain.Filters{}, "crestor")
	assert.Contains(t, expr, "@drug_name|brand_name|generic_name:crestor*")
}

func TestBuildFilterExpression_IsGenericFalse(t *testing.T) {
	f := false
	expr := BuildFilterExpression(domain.Filters{IsGeneric: &f}, "")
	assert.Contains(t, expr, "@is_generic:{0}")
}

func TestTagFilterAny_JoinsWithPipe(t *testing.T) {
	expr := tagFilterAny("drug_class", []string{"STATINS", "BETA BLOCKERS"})
	assert.Equal(t, `@drug_class:{STATINS|BETA\ BLOCKERS}`, expr)
}

func TestEscapeTag_EscapesHyphenAndSpace(t *testing.T) {
	assert.Equal(t, `ABC\ CO\.\,\ LTD\-1`, escapeTag("ABC CO., LTD-1"))
}
