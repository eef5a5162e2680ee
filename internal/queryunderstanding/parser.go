// Package queryunderstanding implements the Query Understanding component
// (spec component E): LLM-assisted extraction of drug terms and filters from
// free-form text, with abbreviation expansion, dosage-form normalization,
// bounded spelling correction, and an auto-apply filter whitelist enforced
// independently of whatever the LLM returns.
package queryunderstanding

import (
	"context"
	"encoding/json"
	"strings"

	"fdbsearch/internal/config"
	"fdbsearch/internal/domain"
	"fdbsearch/internal/llm"
	"fdbsearch/internal/logging"
)

// defaultStrengthTolerance is the fraction of requested_value a candidate
// may deviate by when the LLM omits an explicit tolerance (§4.5: "5% of
// value" — the tolerance field itself is a fraction, not an absolute unit).
const defaultStrengthTolerance = 0.05

const systemPrompt = `You extract structured drug search parameters from a user's free-form query.
Return canonical drug names (lowercase, generic or brand form), never condition or symptom words —
expand a condition like "high cholesterol" into the drug class it implies, not the condition string.
Only extract filters the user explicitly asked for: dosage_form, strength (value, unit, tolerance),
ndc, gcn_seqno, dea_schedule, is_generic. Never invent a filter the text does not support.`

var extractSchema = llm.ToolSchema{
	Name:        "extract_query",
	Description: "Extract canonical drug terms and filters from the user's query",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"drug_terms": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"filters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"dosage_form": map[string]any{"type": "string"},
					"strength": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"value":     map[string]any{"type": "number"},
							"unit":      map[string]any{"type": "string"},
							"tolerance": map[string]any{"type": "number"},
						},
					},
					"ndc":          map[string]any{"type": "string"},
					"gcn_seqno":    map[string]any{"type": "integer"},
					"dea_schedule": map[string]any{"type": "string"},
					"is_generic":   map[string]any{"type": "boolean"},
				},
			},
			"corrections": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []string{"drug_terms"},
	},
}

type extractedFilters struct {
	DosageForm string `json:"dosage_form"`
	Strength   *struct {
		Value     float64 `json:"value"`
		Unit      string  `json:"unit"`
		Tolerance float64 `json:"tolerance"`
	} `json:"strength"`
	NDC         string `json:"ndc"`
	GCNSeqno    int64  `json:"gcn_seqno"`
	DEASchedule string `json:"dea_schedule"`
	IsGeneric   *bool  `json:"is_generic"`
}

type extracted struct {
	DrugTerms   []string          `json:"drug_terms"`
	Filters     extractedFilters  `json:"filters"`
	Corrections []string          `json:"corrections"`
}

// Parser turns raw user text into a domain.ParsedQuery.
type Parser struct {
	llm        llm.Client
	cfg        config.SearchConfig
	vocabulary []string // drug-name vocabulary for spelling correction, loaded once at startup
}

// New builds a Parser. vocabulary may be nil; spelling correction is then a
// no-op, which is an acceptable degradation, not a failure.
func New(client llm.Client, cfg config.SearchConfig, vocabulary []string) *Parser {
	return &Parser{llm: client, cfg: cfg, vocabulary: vocabulary}
}

// Parse runs the full LLM-assisted pipeline, falling back to a minimal parse
// on any LLM failure or schema violation per §4.5's failure clause: search
// must still proceed.
func (p *Parser) Parse(ctx context.Context, rawInput string) domain.ParsedQuery {
	raw, err := p.llm.Chat(ctx, systemPrompt, rawInput, extractSchema)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("query_understanding_llm_failed")
		return fallbackParse(rawInput)
	}

	var ex extracted
	if err := json.Unmarshal(raw, &ex); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("query_understanding_invalid_response")
		return fallbackParse(rawInput)
	}

	return p.buildParsedQuery(ex, rawInput)
}

func fallbackParse(rawInput string) domain.ParsedQuery {
	term := strings.TrimSpace(rawInput)
	return domain.ParsedQuery{
		SearchText: term,
		DrugTerms:  []string{term},
		Fallback:   true,
	}
}

func (p *Parser) buildParsedQuery(ex extracted, rawInput string) domain.ParsedQuery {
	terms := p.canonicalizeTerms(ex.DrugTerms)
	if len(terms) == 0 {
		return fallbackParse(rawInput)
	}

	filters, dropped := p.applyAutoApplyWhitelist(ex.Filters)

	return domain.ParsedQuery{
		SearchText:     strings.Join(terms, " "),
		DrugTerms:      terms,
		Filters:        filters,
		Corrections:    ex.Corrections,
		DroppedFilters: dropped,
	}
}

// canonicalizeTerms expands abbreviations, applies bounded spelling
// correction, and deduplicates while preserving first-seen order.
func (p *Parser) canonicalizeTerms(raw []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		expanded, ok := ExpandAbbreviation(t)
		if !ok {
			expanded = []string{p.maybeCorrect(t)}
		}
		for _, e := range expanded {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

func (p *Parser) maybeCorrect(term string) string {
	if len(p.vocabulary) == 0 {
		return term
	}
	for _, v := range p.vocabulary {
		if strings.EqualFold(v, term) {
			return term
		}
	}
	if corrected, ok := correctSpelling(term, p.vocabulary); ok {
		return corrected
	}
	return term
}

// applyAutoApplyWhitelist enforces §4.5's configuration-controlled whitelist
// independent of what the LLM returned: any filter key the LLM populated
// that isn't in cfg.AutoApplyFilters is dropped and its key returned in the
// dropped list, never silently applied. strength is handled separately by the Search Orchestrator
// post-expansion and always carried through here.
func (p *Parser) applyAutoApplyWhitelist(ex extractedFilters) (domain.Filters, []string) {
	allowed := map[string]bool{}
	for _, k := range p.cfg.AutoApplyFilters {
		allowed[k] = true
	}

	var out domain.Filters
	var dropped []string

	if ex.DosageForm != "" {
		if allowed["dosage_form"] {
			out.DosageForm = normalizeDosageFormTerm(ex.DosageForm, p.cfg.DosageFormSynonyms)
		} else {
			dropped = append(dropped, "dosage_form")
		}
	}
	if ex.NDC != "" {
		if allowed["ndc"] {
			out.NDC = ex.NDC
		} else {
			dropped = append(dropped, "ndc")
		}
	}
	if ex.GCNSeqno != 0 {
		if allowed["gcn_seqno"] {
			out.GCNSeqno = ex.GCNSeqno
		} else {
			dropped = append(dropped, "gcn_seqno")
		}
	}
	if ex.DEASchedule != "" {
		if allowed["dea_schedule"] {
			out.DEASchedule = ex.DEASchedule
		} else {
			dropped = append(dropped, "dea_schedule")
		}
	}
	if ex.IsGeneric != nil {
		if allowed["is_generic"] {
			out.IsGeneric = ex.IsGeneric
		} else {
			dropped = append(dropped, "is_generic")
		}
	}
	if ex.Strength != nil {
		tolerance := ex.Strength.Tolerance
		if tolerance == 0 {
			tolerance = defaultStrengthTolerance
		}
		out.Strength = &domain.StrengthFilter{
			Value:     ex.Strength.Value,
			Unit:      strings.ToUpper(ex.Strength.Unit),
			Tolerance: tolerance,
		}
	}

	return out, dropped
}

// normalizeDosageFormTerm maps a free-text dosage-form mention onto a store
// tag: a direct uppercase match of a closed-vocabulary tag is kept, and a
// loose form keyed in the configured synonym table (§4.5 Rule 4) with a
// single tag becomes that tag (GEL PACKET → GEL). Any other term, including
// a loose form with several tags, is returned uppercased as-is, whether or
// not it is in the closed vocabulary.
func normalizeDosageFormTerm(term string, synonyms map[string][]string) string {
	upper := strings.ToUpper(strings.TrimSpace(term))
	if domain.IsValidDosageForm(upper) {
		return upper
	}
	if tags, ok := synonyms[upper]; ok && len(tags) == 1 {
		return tags[0]
	}
	return upper
}
