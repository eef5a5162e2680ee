package vectorstore

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"fdbsearch/internal/domain"
	"fdbsearch/internal/logging"
	"fdbsearch/internal/telemetry"
)

// Gateway is the Vector Store Gateway: CreateIndex, Upsert, HybridQuery over
// a Redis/RediSearch-backed drug catalog, grounded on the teacher's
// redis.UniversalClient usage in internal/workspaces/redis_cache.go.
type Gateway struct {
	redis redis.UniversalClient
}

// New wraps an existing Redis client. The caller owns the client's lifecycle
// (Close) since it may be shared with the Indication Store on a different
// logical DB.
func New(client redis.UniversalClient) *Gateway {
	return &Gateway{redis: client}
}

// Upsert writes one document as a Redis hash under drug:{ndc}, last-writer-
// wins. It never holds the Redis connection across external I/O; the
// embedding must already be computed by the caller.
func (g *Gateway) Upsert(ctx context.Context, doc domain.DrugDocument) error {
	ctx, span := telemetry.StartSpan(ctx, "vectorstore.Upsert")
	defer span.End()

	fields := map[string]any{
		"ndc":                doc.NDC,
		"drug_name":          doc.DrugName,
		"brand_name":         doc.BrandName,
		"generic_name":       doc.GenericName,
		"gcn_seqno":          doc.GCNSeqno,
		"drug_class":         doc.DrugClass,
		"therapeutic_class":  doc.TherapeuticClass,
		"dosage_form":        doc.DosageForm,
		"strength_value":     doc.StrengthValue,
		"strength_unit":      doc.StrengthUnit,
		"manufacturer":       doc.Manufacturer,
		"is_brand":           tagBool(doc.IsBrand),
		"is_generic":         tagBool(doc.IsGeneric),
		"dea_schedule":       doc.DEASchedule,
		"indication_key":     doc.IndicationKey,
		"embedding":          encodeVector(doc.Embedding),
		"embedding_quantized_size": strconv.Itoa(len(packLeanVec4x8(doc.Embedding))),
		"indexed_at":         doc.IndexedAt.Format(time.RFC3339),
	}

	key := KeyPrefix + doc.NDC
	err := domain.Retry(ctx, domain.DefaultRetryPolicy, func(attempt int) error {
		if err := g.redis.HSet(ctx, key, fields).Err(); err != nil {
			return domain.Transient("vector store upsert failed", err)
		}
		return nil
	})
	if err != nil {
		return telemetry.RecordError(span, err)
	}
	logging.FromContext(ctx).Debug().Str("ndc", doc.NDC).Msg("vectorstore_upsert_ok")
	return nil
}

// Get fetches a single document by NDC; the boolean reports whether a hash
// exists under that NDC's key.
func (g *Gateway) Get(ctx context.Context, ndc string) (domain.DrugDocument, bool, error) {
	key := KeyPrefix + ndc
	vals, err := g.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.DrugDocument{}, false, domain.Transient("vector store get failed", err)
	}
	if len(vals) == 0 {
		return domain.DrugDocument{}, false, nil
	}
	return decodeDocument(vals), true, nil
}

func tagBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func decodeDocument(vals map[string]string) domain.DrugDocument {
	d := domain.DrugDocument{
		NDC:              vals["ndc"],
		DrugName:         vals["drug_name"],
		BrandName:        vals["brand_name"],
		GenericName:      vals["generic_name"],
		DrugClass:        vals["drug_class"],
		TherapeuticClass: vals["therapeutic_class"],
		DosageForm:       vals["dosage_form"],
		StrengthUnit:     vals["strength_unit"],
		Manufacturer:     vals["manufacturer"],
		DEASchedule:      vals["dea_schedule"],
		IndicationKey:    vals["indication_key"],
		IsBrand:          vals["is_brand"] == "1",
		IsGeneric:        vals["is_generic"] == "1",
	}
	if v, err := strconv.ParseInt(vals["gcn_seqno"], 10, 64); err == nil {
		d.GCNSeqno = v
	}
	if v, err := strconv.ParseFloat(vals["strength_value"], 64); err == nil {
		d.StrengthValue = v
	}
	if t, err := time.Parse(time.RFC3339, vals["indexed_at"]); err == nil {
		d.IndexedAt = t
	}
	if raw, ok := vals["embedding"]; ok {
		d.Embedding = decodeVector([]byte(raw))
	}
	return d
}
