package ingestion

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"fdbsearch/internal/domain"
)

const checkpointKey = "ingest:checkpoint"

// RedisCheckpointStore persists the ingestion checkpoint as a single JSON
// blob under one Redis key, per §6.2's persisted format. Optional: most
// invocations are expected to be driven by an external scheduler that
// already tracks next_offset, per §4.7's checkpointing note.
type RedisCheckpointStore struct {
	redis redis.UniversalClient
}

func NewRedisCheckpointStore(client redis.UniversalClient) *RedisCheckpointStore {
	return &RedisCheckpointStore{redis: client}
}

func (s *RedisCheckpointStore) Load(ctx context.Context) (Checkpoint, bool, error) {
	val, err := s.redis.Get(ctx, checkpointKey).Result()
	if err == redis.Nil {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, domain.Transient("checkpoint load failed", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal([]byte(val), &cp); err != nil {
		return Checkpoint{}, false, domain.Internal("checkpoint decode failed", err)
	}
	return cp, true, nil
}

func (s *RedisCheckpointStore) Save(ctx context.Context, cp Checkpoint) error {
	raw, err := json.Marshal(cp)
	if err != nil {
		return domain.Internal("checkpoint encode failed", err)
	}
	if err := s.redis.Set(ctx, checkpointKey, raw, 0).Err(); err != nil {
		return domain.Transient("checkpoint save failed", err)
	}
	return nil
}
