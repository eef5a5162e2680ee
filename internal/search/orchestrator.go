// Package search implements the Search Orchestrator (spec component F): the
// 8-step hybrid filter-then-KNN algorithm routing single- and multi-drug
// queries through vector search, one-pass class expansion, classification,
// post-expansion filtering, grouping, ordering, and batched enrichment.
package search

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"fdbsearch/internal/catalogstore"
	"fdbsearch/internal/config"
	"fdbsearch/internal/domain"
	"fdbsearch/internal/embedding"
	"fdbsearch/internal/indication"
	"fdbsearch/internal/logging"
	"fdbsearch/internal/telemetry"
	"fdbsearch/internal/vectorstore"
)

// Status is the terminal state a Response settles into, mirroring §4.6.3's
// state machine: the normal done outcome or the degraded one.
type Status string

const (
	StatusDone     Status = "done"
	StatusDegraded Status = "degraded"
)

// Response is what Search returns to the HTTP API.
type Response struct {
	Results []domain.SearchResult
	Status  Status
	Degraded bool
}

// Orchestrator ties together the Embedding Client, Vector Store Gateway,
// Catalog Store Gateway, and Indication Store behind the single Search
// entrypoint.
type Orchestrator struct {
	embedder    embedding.Embedder
	vectors     vectorstore.Reader
	catalog     catalogstore.Reader
	indications indication.Reader
	cfg         config.SearchConfig
}

// New builds an Orchestrator from its collaborators.
func New(embedder embedding.Embedder, vectors vectorstore.Reader, catalog catalogstore.Reader, indications indication.Reader, cfg config.SearchConfig) *Orchestrator {
	return &Orchestrator{embedder: embedder, vectors: vectors, catalog: catalog, indications: indications, cfg: cfg}
}

// Search runs the full pipeline for one ParsedQuery. It degrades rather than
// fails whenever Phase 1 produced at least one hit and only a later stage
// (expansion or enrichment) errors, per §4.6.3.
// Search runs pq through the full pipeline using the Orchestrator's
// construction-time config. SearchWithOverride is the variant a caller uses
// to apply a per-request override (§6.1's options.ef_runtime and
// options.multi_drug_threshold).
func (o *Orchestrator) Search(ctx context.Context, pq domain.ParsedQuery) (Response, error) {
	return o.search(ctx, pq, o.cfg)
}

// SearchWithOverride runs pq with cfg in place of the Orchestrator's
// construction-time config, for request-scoped tuning of K1/EF without
// reconstructing the Orchestrator.
func (o *Orchestrator) SearchWithOverride(ctx context.Context, pq domain.ParsedQuery, cfg config.SearchConfig) (Response, error) {
	return o.search(ctx, pq, cfg)
}

func (o *Orchestrator) search(ctx context.Context, pq domain.ParsedQuery, cfg config.SearchConfig) (Response, error) {
	ctx, span := telemetry.StartSpan(ctx, "search.Search")
	defer span.End()
	log := logging.FromContext(ctx)

	multiDrug := len(pq.DrugTerms) >= cfg.MultiDrugThreshold && !pq.Fallback
	k1 := cfg.K1Single
	if multiDrug {
		k1 = cfg.K1Multi
	}

	// auto_filters excludes strength: §4.6 Step 5 applies it post-expansion
	// only, so neither phase 1 nor phase 2 sees it.
	autoFilters := pq.Filters
	autoFilters.Strength = nil

	vectorHits, err := o.phase1(ctx, pq, k1, autoFilters, cfg)
	if err != nil {
		return Response{}, telemetry.RecordError(span, err)
	}
	if len(vectorHits) == 0 {
		return Response{Results: nil, Status: StatusDone}, nil
	}

	degraded := false

	var pharmaHits, therapeuticHits map[string]hitRef
	if !pq.Fallback {
		pharmaHits, therapeuticHits, err = o.phase2(ctx, vectorHits, autoFilters, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("search_expansion_degraded")
			degraded = true
			pharmaHits, therapeuticHits = nil, nil
		}
	}

	classified := classify(vectorHits, pharmaHits, therapeuticHits)
	classified = applyPostExpansionFilters(classified, pq.Filters, o.cfg.DosageFormSynonyms)

	results := groupAndOrder(classified)

	if err := o.enrich(ctx, results); err != nil {
		log.Warn().Err(err).Msg("search_enrichment_degraded")
		degraded = true
	}

	status := StatusDone
	if degraded {
		status = StatusDegraded
	}
	return Response{Results: results, Status: status, Degraded: degraded}, nil
}

// hitRef is a candidate NDC plus the evidence needed for classification and
// ordering, before family grouping collapses it into a SearchResult.
type hitRef struct {
	doc        domain.DrugDocument
	similarity float64
}

// phase1 runs vector-only search per drug term with bounded concurrency,
// combining hits by ndc and keeping the maximum score observed.
func (o *Orchestrator) phase1(ctx context.Context, pq domain.ParsedQuery, k1 int, autoFilters domain.Filters, cfg config.SearchConfig) (map[string]hitRef, error) {
	ctx, span := telemetry.StartSpan(ctx, "search.phase1")
	defer span.End()

	type termResult struct {
		hits []vectorstore.Hit
		err  error
	}
	results := make([]termResult, len(pq.DrugTerms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrencyLimit(cfg.ExpansionConcurrency))
	for i, term := range pq.DrugTerms {
		i, term := i, term
		g.Go(func() error {
			v, err := o.embedder.Embed(gctx, term)
			if err != nil {
				results[i] = termResult{err: err}
				return err
			}
			hits, err := o.vectors.HybridQuery(gctx, vectorstore.QuerySpec{
				Vector:     v,
				Filters:    autoFilters,
				SearchText: term,
				K:          k1,
				EFRuntime:  cfg.EFRuntimeDefault,
			})
			results[i] = termResult{hits: hits, err: err}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, telemetry.RecordError(span, domain.Transient("phase 1 vector search failed", err))
	}

	combined := map[string]hitRef{}
	for _, r := range results {
		for _, h := range r.hits {
			existing, ok := combined[h.Doc.NDC]
			if !ok || h.Similarity > existing.similarity {
				combined[h.Doc.NDC] = hitRef{doc: h.Doc, similarity: h.Similarity}
			}
		}
	}
	return combined, nil
}

// phase2 performs exactly one pass of class expansion over the combined
// Phase 1 hit set — never per drug term, the load-bearing rule of §4.6
// Step 3. Each distinct class gets its own bounded HybridQuery call (K2 per
// class, not K2 split across every class in the set), carrying autoFilters
// forward so dea_schedule/is_generic/ndc/gcn_seqno stay enforced on
// expansion hits exactly as they were on Phase 1's.
func (o *Orchestrator) phase2(ctx context.Context, vectorHits map[string]hitRef, autoFilters domain.Filters, cfg config.SearchConfig) (map[string]hitRef, map[string]hitRef, error) {
	ctx, span := telemetry.StartSpan(ctx, "search.phase2")
	defer span.End()

	blacklist := map[string]bool{}
	for _, b := range cfg.TherapeuticClassBlacklist {
		blacklist[b] = true
	}

	drugClasses := distinctValues(vectorHits, func(d domain.DrugDocument) string { return d.DrugClass }, blacklist)
	therapeuticClasses := distinctValues(vectorHits, func(d domain.DrugDocument) string { return d.TherapeuticClass }, blacklist)

	type classQuery struct {
		field string
		value string
	}
	queries := make([]classQuery, 0, len(drugClasses)+len(therapeuticClasses))
	for _, c := range drugClasses {
		queries = append(queries, classQuery{field: "drug_class", value: c})
	}
	for _, c := range therapeuticClasses {
		queries = append(queries, classQuery{field: "therapeutic_class", value: c})
	}

	results := make([]struct {
		field string
		hits  []vectorstore.Hit
	}, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrencyLimit(cfg.ExpansionConcurrency))

	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			hits, err := o.vectors.HybridQuery(gctx, vectorstore.QuerySpec{
				Filters:     autoFilters,
				ClassField:  q.field,
				ClassValues: []string{q.value},
				Limit:       cfg.K2Expansion,
			})
			if err != nil {
				return err
			}
			results[i].field = q.field
			results[i].hits = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, domain.Transient("phase 2 expansion failed", err)
	}

	var pharmaHits, therapeuticHits map[string]hitRef
	for _, r := range results {
		dest := &pharmaHits
		if r.field == "therapeutic_class" {
			dest = &therapeuticHits
		}
		if *dest == nil {
			*dest = map[string]hitRef{}
		}
		for _, h := range r.hits {
			(*dest)[h.Doc.NDC] = hitRef{doc: h.Doc}
		}
	}
	return pharmaHits, therapeuticHits, nil
}

func distinctValues(hits map[string]hitRef, extract func(domain.DrugDocument) string, blacklist map[string]bool) []string {
	seen := map[string]bool{}
	var out []string
	for _, h := range hits {
		v := extract(h.doc)
		if v == "" || blacklist[v] || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func concurrencyLimit(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
