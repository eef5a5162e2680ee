package vectorstore

import (
	"fmt"
	"strconv"
	"strings"

	"fdbsearch/internal/domain"
)

// minTextPrefixLen is the shortest term a lexical prefix pre-filter is
// applied for; shorter terms are too unselective on a ~494K-row index and
// are dropped per §4.6 Step 2's note on one-pass expansion cost.
const minTextPrefixLen = 4

// BuildFilterExpression renders a domain.Filters into a RediSearch query
// string combining TAG, NUMERIC, and TEXT predicates. An empty Filters value
// renders as "*" (match everything), the correct FT.SEARCH wildcard.
func BuildFilterExpression(f domain.Filters, searchText string) string {
	var parts []string

	if f.DosageForm != "" {
		parts = append(parts, tagFilter("dosage_form", f.DosageForm))
	}
	if f.NDC != "" {
		parts = append(parts, tagFilter("ndc", f.NDC))
	}
	if f.GCNSeqno != 0 {
		parts = append(parts, numericEquals("gcn_seqno", f.GCNSeqno))
	}
	if f.DEASchedule != "" {
		parts = append(parts, tagFilter("dea_schedule", f.DEASchedule))
	}
	if f.IsGeneric != nil {
		val := "0"
		if *f.IsGeneric {
			val = "1"
		}
		parts = append(parts, tagFilter("is_generic", val))
	}
	if f.Strength != nil && f.Strength.Value > 0 {
		// Tolerance is a fraction of Value (§4.5), not an absolute delta.
		parts = append(parts, numericRange("strength_value", f.Strength.Value, f.Strength.Value*f.Strength.Tolerance))
	}

	if trimmed := strings.TrimSpace(searchText); len(trimmed) >= minTextPrefixLen {
		parts = append(parts, textPrefix(trimmed))
	}

	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func tagFilter(field, value string) string {
	return fmt.Sprintf("@%s:{%s}", field, escapeTag(value))
}

func tagFilterAny(field string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = escapeTag(v)
	}
	return fmt.Sprintf("@%s:{%s}", field, strings.Join(escaped, "|"))
}

func numericEquals(field string, v int64) string {
	return fmt.Sprintf("@%s:[%d %d]", field, v, v)
}

func numericRange(field string, value, tolerance float64) string {
	if tolerance <= 0 {
		tolerance = 0
	}
	lo := value - tolerance
	hi := value + tolerance
	return fmt.Sprintf("@%s:[%s %s]", field, strconv.FormatFloat(lo, 'f', -1, 64), strconv.FormatFloat(hi, 'f', -1, 64))
}

func textPrefix(term string) string {
	fields := "drug_name|brand_name|generic_name"
	return fmt.Sprintf("(@%s:%s*)", fields, escapeText(term))
}

// escapeTag escapes RediSearch TAG special characters so a manufacturer or
// NDC value containing them (spaces, hyphens, dots) matches literally.
func escapeTag(v string) string {
	replacer := strings.NewReplacer(
		" ", "\\ ",
		"-", "\\-",
		".", "\\.",
		",", "\\,",
		"{", "\\{",
		"}", "\\}",
		"|", "\\|",
		":", "\\:",
	)
	return replacer.Replace(v)
}

func escapeText(v string) string {
	replacer := strings.NewReplacer(
		"-", "\\-",
		".", "\\.",
		"(", "\\(",
		")", "\\)",
	)
	return replacer.Replace(v)
}
