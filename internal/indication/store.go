// Package indication implements the Indication Store (spec component H):
// deduplicated indication text keyed by indication_key, stored as Redis
// hashes so many DrugDocuments can share one record (5-10x memory savings
// per §4.8), grounded on internal/workspaces/redis_cache.go's
// redis.UniversalClient wiring.
package indication

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"fdbsearch/internal/domain"
	"fdbsearch/internal/telemetry"
)

const keyPrefix = "indication:"
const listField = "indications"

// listSep separates joined indication strings within the single Redis hash
// field; \x1f (ASCII unit separator) is used because free-text indication
// descriptions may themselves contain commas or pipes.
const listSep = "\x1f"

// Store is the Indication Store. It is given its own redis.UniversalClient
// pointed at a distinct logical DB (config.RedisConfig.IndicationStoreDB) so
// it can share a Redis deployment with the Vector Store Gateway without key
// collisions.
type Store struct {
	redis redis.UniversalClient
}

// New wraps a Redis client already selected onto the indication store's
// logical DB.
func New(client redis.UniversalClient) *Store {
	return &Store{redis: client}
}

func key(indicationKey string) string {
	return keyPrefix + indicationKey
}

// Upsert replaces the indication list for a key wholesale; ingest always
// computes the full distinct set before calling this, so there is no
// incremental-append path to keep in sync.
func (s *Store) Upsert(ctx context.Context, record domain.IndicationRecord) error {
	ctx, span := telemetry.StartSpan(ctx, "indication.Upsert")
	defer span.End()

	joined := strings.Join(record.Indications, "")
	if err := s.redis.HSet(ctx, key(record.Key), listField, joined).Err(); err != nil {
		return telemetry.RecordError(span, domain.Transient("indication upsert failed", err))
	}
	return nil
}

// Get fetches indications for a single key. A missing key returns (nil,
// false, nil) rather than an error: not every family has indications.
func (s *Store) Get(ctx context.Context, indicationKey string) ([]string, bool, error) {
	val, err := s.redis.HGet(ctx, key(indicationKey), listField).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.Transient("indication get failed", err)
	}
	return splitList(val), true, nil
}

// GetBatch fetches indications for several keys via a pipeline, the
// batched-lookup idiom the Search Orchestrator's single enrichment pass
// (§4.6 Step 8) depends on to avoid one round trip per family.
func (s *Store) GetBatch(ctx context.Context, indicationKeys []string) (map[string][]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "indication.GetBatch")
	defer span.End()

	if len(indicationKeys) == 0 {
		return map[string][]string{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make(map[string]*redis.StringCmd, len(indicationKeys))
	for _, k := range indicationKeys {
		cmds[k] = pipe.HGet(ctx, key(k), listField)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, telemetry.RecordError(span, domain.Transient("indication batch get failed", err))
	}

	out := make(map[string][]string, len(indicationKeys))
	for k, cmd := range cmds {
		val, err := cmd.Result()
		if err != nil {
			continue
		}
		out[k] = splitList(val)
	}
	return out, nil
}

func splitList(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, "")
}
