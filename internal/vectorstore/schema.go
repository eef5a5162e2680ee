package vectorstore

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"fdbsearch/internal/domain"
)

const (
	// IndexName is the RediSearch index name the gateway creates and queries.
	IndexName = "idx:drugs"
	// KeyPrefix is the hash key prefix every document is stored under.
	KeyPrefix = "drug:"

	hnswM             = 40
	hnswEFConstruction = 200
	hnswEFRuntime      = 10
)

// CreateIndex issues FT.CREATE against the configured prefix with the
// TAG/TEXT/NUMERIC/VECTOR schema §4.3 names. It is idempotent: an
// already-exists error from Redis is treated as success, since RediSearch has
// no CREATE IF NOT EXISTS and the ingest pipeline may call this on every run.
func (g *Gateway) CreateIndex(ctx context.Context) error {
	args := []any{
		"FT.CREATE", IndexName,
		"ON", "HASH",
		"PREFIX", "1", KeyPrefix,
		"SCHEMA",
		"ndc", "TAG",
		"drug_class", "TAG",
		"dosage_form", "TAG",
		"strength_unit", "TAG",
		"dea_schedule", "TAG",
		"is_brand", "TAG",
		"is_generic", "TAG",
		"indication_key", "TAG",
		"manufacturer", "TAG",
		"drug_name", "TEXT",
		"brand_name", "TEXT",
		"generic_name", "TEXT",
		"therapeutic_class", "TEXT",
		"gcn_seqno", "NUMERIC",
		"strength_value", "NUMERIC",
		"embedding", "VECTOR", "HNSW", "12",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(domain.EmbeddingDimension),
		"DISTANCE_METRIC", "COSINE",
		"M", strconv.Itoa(hnswM),
		"EF_CONSTRUCTION", strconv.Itoa(hnswEFConstruction),
		"EF_RUNTIME", strconv.Itoa(hnswEFRuntime),
	}

	err := g.redis.Do(ctx, args...).Err()
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "Index already exists") {
		return nil
	}
	return domain.Unavailable("vector store index creation failed", err)
}

// DropIndex removes the index without deleting the underlying hashes. A
// missing index is not an error.
func (g *Gateway) DropIndex(ctx context.Context) error {
	err := g.redis.Do(ctx, "FT.DROPINDEX", IndexName).Err()
	if err != nil && err != redis.Nil && !strings.Contains(err.Error(), "Unknown index name") {
		return domain.Unavailable("vector store index drop failed", err)
	}
	return nil
}
