package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"fdbsearch/internal/domain"
	"fdbsearch/internal/telemetry"
)

// Hit is a single FT.SEARCH result: the document plus its cosine similarity
// (1 - distance) when a KNN clause was present, or 0 for a filter-only scan.
type Hit struct {
	Doc        domain.DrugDocument
	Similarity float64
}

// QuerySpec parameterizes one HybridQuery call.
type QuerySpec struct {
	Vector     []float32 // nil for a filter-only scan
	Filters    domain.Filters
	SearchText string
	K          int // KNN result count; ignored for filter-only scans
	EFRuntime  int
	Limit      int // result cap for filter-only scans
	ClassField string   // "drug_class" or "therapeutic_class", for expansion queries
	ClassValues []string
}

// HybridQuery issues a single FT.SEARCH combining the filter expression with
// an optional KNN vector clause, the "filter-then-KNN" contract of §4.3:
// RediSearch applies the TAG/NUMERIC/TEXT predicates first and runs HNSW
// search only over the surviving subset.
func (g *Gateway) HybridQuery(ctx context.Context, spec QuerySpec) ([]Hit, error) {
	ctx, span := telemetry.StartSpan(ctx, "vectorstore.HybridQuery")
	defer span.End()

	filterExpr := BuildFilterExpression(spec.Filters, spec.SearchText)
	if spec.ClassField != "" && len(spec.ClassValues) > 0 {
		classExpr := tagFilterAny(spec.ClassField, spec.ClassValues)
		if filterExpr == "*" {
			filterExpr = classExpr
		} else {
			filterExpr = filterExpr + " " + classExpr
		}
	}

	var args []any
	if len(spec.Vector) > 0 {
		k := spec.K
		if k <= 0 {
			k = 20
		}
		ef := spec.EFRuntime
		if ef <= 0 {
			ef = hnswEFRuntime
		}
		query := fmt.Sprintf("(%s)=>[KNN %d @embedding $BLOB EF_RUNTIME %d AS score]", filterExpr, k, ef)
		args = []any{
			"FT.SEARCH", IndexName, query,
			"PARAMS", "2", "BLOB", encodeVector(spec.Vector),
			"SORTBY", "score",
			"DIALECT", "2",
			"LIMIT", "0", strconv.Itoa(k),
		}
	} else {
		limit := spec.Limit
		if limit <= 0 {
			limit = 100
		}
		args = []any{
			"FT.SEARCH", IndexName, filterExpr,
			"DIALECT", "2",
			"LIMIT", "0", strconv.Itoa(limit),
		}
	}

	var res any
	err := domain.Retry(ctx, domain.DefaultRetryPolicy, func(attempt int) error {
		var doErr error
		res, doErr = g.redis.Do(ctx, args...).Result()
		if doErr != nil {
			return domain.Transient("vector store hybrid query failed", doErr)
		}
		return nil
	})
	if err != nil {
		return nil, telemetry.RecordError(span, err)
	}

	hits, err := parseSearchReply(res, len(spec.Vector) > 0)
	if err != nil {
		return nil, telemetry.RecordError(span, domain.Internal("vector store reply parse failed", err))
	}
	return hits, nil
}

// parseSearchReply decodes the FT.SEARCH reply shape: [total, key1, fields1,
// key2, fields2, ...] where fieldsN is a flat [name, value, name, value...]
// slice. hasScore indicates whether a "score" field (from the KNN AS clause)
// is present and should populate Hit.Similarity as 1-distance.
func parseSearchReply(res any, hasScore bool) ([]Hit, error) {
	items, ok := res.([]any)
	if !ok || len(items) == 0 {
		return nil, nil
	}

	var hits []Hit
	for i := 1; i+1 < len(items); i += 2 {
		fieldsRaw, ok := items[i+1].([]any)
		if !ok {
			continue
		}
		vals := map[string]string{}
		for j := 0; j+1 < len(fieldsRaw); j += 2 {
			name, _ := fieldsRaw[j].(string)
			switch v := fieldsRaw[j+1].(type) {
			case string:
				vals[name] = v
			}
		}
		doc := decodeDocument(vals)
		hit := Hit{Doc: doc}
		if hasScore {
			if raw, ok := vals["score"]; ok {
				if dist, err := strconv.ParseFloat(raw, 64); err == nil {
					hit.Similarity = 1 - dist
				}
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
