// Package catalogstore implements the Catalog Store Gateway (spec component
// D): read-only batched joins against the relational FDB NDC catalog,
// grounded on internal/persistence/databases/postgres_search.go and pool.go.
package catalogstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"fdbsearch/internal/config"
	"fdbsearch/internal/domain"
	"fdbsearch/internal/telemetry"
)

// minActiveNameLen is the shortest drug_name ScanActive admits; shorter rows
// are almost always data artifacts (single-letter placeholders) not real
// catalog entries.
const minActiveNameLen = 4

// Gateway is the Catalog Store Gateway. It owns a small connection pool and
// never holds a connection across external I/O (LLM/embedding calls happen
// strictly outside any transaction or held connection this package opens).
type Gateway struct {
	pool *pgxpool.Pool
}

// Open builds a pgxpool.Pool from cfg and returns a Gateway wrapping it. The
// caller is responsible for calling Close.
func Open(ctx context.Context, cfg config.PostgresConfig) (*Gateway, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, domain.Invalid("invalid postgres dsn: " + err.Error())
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnIdleTimeout > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnIdleTimeout
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, domain.Unavailable("postgres pool init failed", err)
	}
	return &Gateway{pool: pool}, nil
}

// Close releases the pool.
func (g *Gateway) Close() {
	g.pool.Close()
}

// CatalogRow is one relational row as scanned from the FDB NDC catalog
// table, pre-normalization.
type CatalogRow struct {
	NDC              string
	DrugNameRaw      string
	BrandName        string
	GenericName      string
	GCNSeqno         int64
	DrugClass        string
	TherapeuticClass string
	DosageFormRaw    string
	StrengthValue    float64
	StrengthUnitRaw  string
	Manufacturer     string
	Innovator        string // "0" generic, "1" brand
	DEAScheduleRaw   string
}

const scanActiveQuery = `
SELECT ndc, drug_name, brand_name, generic_name, gcn_seqno, drug_class,
       therapeutic_class, dosage_form, strength_value, strength_unit,
       manufacturer, innov, dea_schedule
FROM fdb_ndc_catalog
WHERE obsolescence_date IS NULL
  AND length(trim(drug_name)) >= $1
ORDER BY ndc
OFFSET $2 LIMIT $3
`

// ScanActive streams the next page of active catalog rows ordered by ndc,
// the ordering that makes offset-based resume deterministic across runs.
func (g *Gateway) ScanActive(ctx context.Context, offset, limit int) ([]CatalogRow, error) {
	ctx, span := telemetry.StartSpan(ctx, "catalogstore.ScanActive")
	defer span.End()

	rows, err := g.pool.Query(ctx, scanActiveQuery, minActiveNameLen, offset, limit)
	if err != nil {
		return nil, telemetry.RecordError(span, domain.Transient("catalog scan query failed", err))
	}
	defer rows.Close()

	var out []CatalogRow
	for rows.Next() {
		var r CatalogRow
		if err := rows.Scan(&r.NDC, &r.DrugNameRaw, &r.BrandName, &r.GenericName, &r.GCNSeqno,
			&r.DrugClass, &r.TherapeuticClass, &r.DosageFormRaw, &r.StrengthValue, &r.StrengthUnitRaw,
			&r.Manufacturer, &r.Innovator, &r.DEAScheduleRaw); err != nil {
			return nil, telemetry.RecordError(span, domain.Internal("catalog row scan failed", err))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, telemetry.RecordError(span, domain.Transient("catalog scan iteration failed", err))
	}
	return out, nil
}

const enrichByNDCQuery = `
SELECT ndc, drug_name, brand_name, generic_name, gcn_seqno, drug_class,
       therapeutic_class, dosage_form, strength_value, strength_unit,
       manufacturer, innov, dea_schedule
FROM fdb_ndc_catalog
WHERE ndc = ANY($1::text[])
`

// EnrichByNDC looks up every NDC in one batched IN-clause query. Callers
// MUST NOT invoke this per item; the spec requires a single round trip
// regardless of result-set size.
func (g *Gateway) EnrichByNDC(ctx context.Context, ndcs []string) (map[string]domain.EnrichedRow, error) {
	ctx, span := telemetry.StartSpan(ctx, "catalogstore.EnrichByNDC")
	defer span.End()

	if len(ndcs) == 0 {
		return map[string]domain.EnrichedRow{}, nil
	}

	rows, err := g.pool.Query(ctx, enrichByNDCQuery, ndcs)
	if err != nil {
		return nil, telemetry.RecordError(span, domain.Transient("catalog enrich query failed", err))
	}
	defer rows.Close()

	out := make(map[string]domain.EnrichedRow, len(ndcs))
	for rows.Next() {
		var r CatalogRow
		if err := rows.Scan(&r.NDC, &r.DrugNameRaw, &r.BrandName, &r.GenericName, &r.GCNSeqno,
			&r.DrugClass, &r.TherapeuticClass, &r.DosageFormRaw, &r.StrengthValue, &r.StrengthUnitRaw,
			&r.Manufacturer, &r.Innovator, &r.DEAScheduleRaw); err != nil {
			return nil, telemetry.RecordError(span, domain.Internal("catalog enrich row scan failed", err))
		}
		doc := Normalize(r)
		out[doc.NDC] = domain.EnrichedRow{DrugDocument: doc}
	}
	if err := rows.Err(); err != nil {
		return nil, telemetry.RecordError(span, domain.Transient("catalog enrich iteration failed", err))
	}
	return out, nil
}

const lookupIndicationsByClassQuery = `
SELECT class_key, indication
FROM fdb_drug_indications
WHERE class_key = ANY($1::text[])
ORDER BY class_key, indication
`

// LookupIndicationsByClass batches an ingest-time lookup of free-text
// indications per class key, each key's list deduplicated here in the
// query's indication order.
func (g *Gateway) LookupIndicationsByClass(ctx context.Context, classKeys []string) (map[string][]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "catalogstore.LookupIndicationsByClass")
	defer span.End()

	if len(classKeys) == 0 {
		return map[string][]string{}, nil
	}

	rows, err := g.pool.Query(ctx, lookupIndicationsByClassQuery, classKeys)
	if err != nil {
		return nil, telemetry.RecordError(span, domain.Transient("indication lookup query failed", err))
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var key, indication string
		if err := rows.Scan(&key, &indication); err != nil {
			return nil, telemetry.RecordError(span, domain.Internal("indication row scan failed", err))
		}
		out[key] = appendDistinct(out[key], indication)
	}
	if err := rows.Err(); err != nil {
		return nil, telemetry.RecordError(span, domain.Transient("indication lookup iteration failed", err))
	}
	return out, nil
}

const lookupByGCNSeqnoQuery = `
SELECT ndc, drug_name, brand_name, generic_name, gcn_seqno, drug_class,
       therapeutic_class, dosage_form, strength_value, strength_unit,
       manufacturer, innov, dea_schedule
FROM fdb_ndc_catalog
WHERE gcn_seqno = $1
ORDER BY ndc
`

// LookupByGCNSeqno returns every row sharing a clinical equivalence group,
// the "same gcn_seqno set" the HTTP API's alternatives endpoint groups by
// is_generic/is_brand. Obsolete rows are not excluded.
func (g *Gateway) LookupByGCNSeqno(ctx context.Context, gcnSeqno int64) ([]domain.DrugDocument, error) {
	ctx, span := telemetry.StartSpan(ctx, "catalogstore.LookupByGCNSeqno")
	defer span.End()

	rows, err := g.pool.Query(ctx, lookupByGCNSeqnoQuery, gcnSeqno)
	if err != nil {
		return nil, telemetry.RecordError(span, domain.Transient("catalog gcn_seqno query failed", err))
	}
	defer rows.Close()

	var out []domain.DrugDocument
	for rows.Next() {
		var r CatalogRow
		if err := rows.Scan(&r.NDC, &r.DrugNameRaw, &r.BrandName, &r.GenericName, &r.GCNSeqno,
			&r.DrugClass, &r.TherapeuticClass, &r.DosageFormRaw, &r.StrengthValue, &r.StrengthUnitRaw,
			&r.Manufacturer, &r.Innovator, &r.DEAScheduleRaw); err != nil {
			return nil, telemetry.RecordError(span, domain.Internal("catalog gcn_seqno row scan failed", err))
		}
		out = append(out, Normalize(r))
	}
	if err := rows.Err(); err != nil {
		return nil, telemetry.RecordError(span, domain.Transient("catalog gcn_seqno iteration failed", err))
	}
	return out, nil
}

const loadVocabularyQuery = `
SELECT DISTINCT generic_name FROM fdb_ndc_catalog WHERE generic_name <> ''
UNION
SELECT DISTINCT brand_name FROM fdb_ndc_catalog WHERE brand_name <> ''
`

// LoadVocabulary fetches the distinct generic/brand names used to seed the
// Query Understanding component's spelling-correction vocabulary once at
// startup; it is never called per-request.
func (g *Gateway) LoadVocabulary(ctx context.Context) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "catalogstore.LoadVocabulary")
	defer span.End()

	rows, err := g.pool.Query(ctx, loadVocabularyQuery)
	if err != nil {
		return nil, telemetry.RecordError(span, domain.Transient("vocabulary query failed", err))
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, telemetry.RecordError(span, domain.Internal("vocabulary row scan failed", err))
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, telemetry.RecordError(span, domain.Transient("vocabulary iteration failed", err))
	}
	return out, nil
}

func appendDistinct(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
