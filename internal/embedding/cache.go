package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"fdbsearch/internal/config"
	"fdbsearch/internal/domain"
	"fdbsearch/internal/telemetry"
)

// Embedder is the contract both CachedClient and Client satisfy, letting the
// Search Orchestrator and Ingestion Pipeline depend on an interface rather
// than a concrete type.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CachedClient wraps Client with a Redis-backed cache keyed by
// model_id + normalized_text, 30-day TTL, deterministic semantics: a cache
// hit and a cache miss return byte-equal vectors. Mandatory in the ingest
// path, optional (config-gated) in the query path.
type CachedClient struct {
	inner *Client
	redis redis.UniversalClient
	model string
	ttl   int64 // seconds
}

// NewCached wraps inner with a Redis cache. redisClient must not be nil.
func NewCached(inner *Client, redisClient redis.UniversalClient, cfg config.EmbeddingConfig) *CachedClient {
	return &CachedClient{
		inner: inner,
		redis: redisClient,
		model: cfg.Model,
		ttl:   int64(cfg.CacheTTL.Seconds()),
	}
}

func (c *CachedClient) cacheKey(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return "embcache:" + c.model + ":" + hex.EncodeToString(sum[:])
}

// Embed returns a cached vector when present, else embeds via inner and
// populates the cache. Cache errors are counted as cache misses, never
// surfaced to the caller: the cache is an optimization, not a dependency.
func (c *CachedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	normalized := strings.TrimSpace(text)
	if normalized == "" {
		return nil, domain.Invalid("embedding input must be non-empty")
	}
	key := c.cacheKey(normalized)

	if raw, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var vec []float32
		if jsonErr := json.Unmarshal(raw, &vec); jsonErr == nil {
			telemetry.Global.RecordEmbeddingCacheHit()
			return vec, nil
		}
	}
	telemetry.Global.RecordEmbeddingCacheMiss()

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(vec); err == nil {
		ttl := time.Duration(c.ttl) * time.Second
		_ = c.redis.Set(ctx, key, raw, ttl).Err()
	}
	return vec, nil
}
