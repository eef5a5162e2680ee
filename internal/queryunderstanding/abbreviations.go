package queryunderstanding

import "strings"

// abbreviations is the curated expansion table §4.5 Rule 2 requires. A term
// expands to one or more canonical drug names; a multi-entry expansion
// (e.g. a drug class abbreviation) fans out into that many drug_terms.
var abbreviations = map[string][]string{
	"asa":  {"aspirin"},
	"acei": {"lisinopril", "enalapril", "ramipril"},
	"arb":  {"losartan", "valsartan", "irbesartan"},
	"ppi":  {"omeprazole", "pantoprazole", "esomeprazole"},
	"nsaid": {"ibuprofen", "naproxen", "diclofenac"},
	"ccb":  {"amlodipine", "diltiazem", "verapamil"},
	"ssri": {"sertraline", "fluoxetine", "citalopram"},
	"bb":   {"metoprolol", "atenolol", "propranolol"},
}

// ExpandAbbreviation returns the canonical drug name(s) for a recognized
// abbreviation, case-insensitively, or (nil, false) when term isn't one.
func ExpandAbbreviation(term string) ([]string, bool) {
	names, ok := abbreviations[strings.ToLower(strings.TrimSpace(term))]
	return names, ok
}
