package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fdbsearch/internal/domain"
	"fdbsearch/internal/logging"
	"fdbsearch/internal/search"
)

const defaultResultLimit = 20
const maxResultLimit = 50

type searchRequestBody struct {
	Query   string `json:"query"`
	Limit   int    `json:"limit"`
	Options struct {
		EFRuntime          int `json:"ef_runtime"`
		MultiDrugThreshold int `json:"multi_drug_threshold"`
	} `json:"options"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, domain.Invalid("malformed request body"))
		return
	}
	if body.Query == "" {
		respondError(w, domain.Invalid("query must not be empty"))
		return
	}
	limit := body.Limit
	if limit <= 0 {
		limit = defaultResultLimit
	}
	if limit > maxResultLimit {
		respondError(w, domain.Invalid("limit must not exceed 50"))
		return
	}

	start := time.Now()
	parsed := s.parser.Parse(ctx, body.Query)
	parseLatency := time.Since(start)

	cfg := s.cfg
	if body.Options.EFRuntime > 0 {
		cfg.EFRuntimeDefault = body.Options.EFRuntime
	}
	if body.Options.MultiDrugThreshold > 0 {
		cfg.MultiDrugThreshold = body.Options.MultiDrugThreshold
	}

	searchStart := time.Now()
	resp, err := s.orchestrator.SearchWithOverride(ctx, parsed, cfg)
	searchLatency := time.Since(searchStart)
	if err != nil {
		respondError(w, err)
		return
	}

	results := resp.Results
	if len(results) > limit {
		results = results[:limit]
	}

	metadata := map[string]any{
		"parsed": parsed,
		"counts": map[string]any{
			"total_hits": len(resp.Results),
			"returned":   len(results),
			"degraded":   resp.Degraded,
		},
		"latency_ms": map[string]any{
			"parse":  parseLatency.Milliseconds(),
			"search": searchLatency.Milliseconds(),
			"total":  time.Since(start).Milliseconds(),
		},
	}
	if resp.Degraded {
		metadata["status"] = string(search.StatusDegraded)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"results":  results,
		"metadata": metadata,
	})
}

func (s *Server) handleGetDrug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ndc := r.PathValue("ndc")
	if ndc == "" {
		respondError(w, domain.NotFound("ndc is required"))
		return
	}

	enriched, err := s.catalog.EnrichByNDC(ctx, []string{ndc})
	if err != nil {
		respondError(w, err)
		return
	}
	doc, ok := enriched[ndc]
	if !ok {
		respondError(w, domain.NotFound("drug not found: "+ndc))
		return
	}

	alternatives, err := s.catalog.LookupByGCNSeqno(ctx, doc.GCNSeqno)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("alternatives_count_degraded")
	}
	count := 0
	for _, alt := range alternatives {
		if alt.NDC != ndc {
			count++
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"drug":               doc.DrugDocument,
		"alternatives_count": count,
	})
}

func (s *Server) handleGetAlternatives(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ndc := r.PathValue("ndc")
	if ndc == "" {
		respondError(w, domain.NotFound("ndc is required"))
		return
	}

	enriched, err := s.catalog.EnrichByNDC(ctx, []string{ndc})
	if err != nil {
		respondError(w, err)
		return
	}
	doc, ok := enriched[ndc]
	if !ok {
		respondError(w, domain.NotFound("drug not found: "+ndc))
		return
	}

	alternatives, err := s.catalog.LookupByGCNSeqno(ctx, doc.GCNSeqno)
	if err != nil {
		respondError(w, err)
		return
	}

	var generic, brand []domain.DrugDocument
	for _, alt := range alternatives {
		if alt.NDC == ndc {
			continue
		}
		if alt.IsGeneric {
			generic = append(generic, alt)
		}
		if alt.IsBrand {
			brand = append(brand, alt)
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"generic": generic,
		"brand":   brand,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps a typed domain.Error onto an HTTP status with a
// success:false body: invalid input and invalid LLM responses get 400,
// not_found gets 404, upstream_unavailable gets 503 with Retry-After,
// internal (and any untyped error) gets 500, and every other kind gets 200.
func respondError(w http.ResponseWriter, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		derr = domain.Internal("unhandled error", err)
	}

	status := http.StatusOK
	switch derr.Kind {
	case domain.KindInvalidInput, domain.KindInvalidLLMResponse:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindUpstreamUnavailable:
		status = http.StatusServiceUnavailable
	case domain.KindInternal:
		status = http.StatusInternalServerError
	}

	body := map[string]any{
		"success": false,
		"error": map[string]any{
			"kind":    string(derr.Kind),
			"message": derr.Message,
		},
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	respondJSON(w, status, body)
}
