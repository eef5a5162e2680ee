package telemetry

import "sync/atomic"

// Metrics is a small set of process-wide counters: request latency is
// carried on spans, so this only covers the counters the spec calls out
// explicitly (embedding-cache hit/miss, ingest throughput) that are cheap to
// read without standing up a metrics backend.
type Metrics struct {
	embeddingCacheHits   atomic.Int64
	embeddingCacheMisses atomic.Int64
	ingestDocsOK         atomic.Int64
	ingestDocsFailed     atomic.Int64
}

// Global is the process-wide metrics singleton, matching the client-pool
// singleton pattern used for the LLM/embedding/vector/catalog clients.
var Global = &Metrics{}

func (m *Metrics) RecordEmbeddingCacheHit()  { m.embeddingCacheHits.Add(1) }
func (m *Metrics) RecordEmbeddingCacheMiss() { m.embeddingCacheMisses.Add(1) }
func (m *Metrics) RecordIngestBatch(ok, failed int) {
	m.ingestDocsOK.Add(int64(ok))
	m.ingestDocsFailed.Add(int64(failed))
}

// Snapshot is a point-in-time read of the counters, for logging or a debug
// endpoint.
type Snapshot struct {
	EmbeddingCacheHits   int64
	EmbeddingCacheMisses int64
	IngestDocsOK         int64
	IngestDocsFailed     int64
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		EmbeddingCacheHits:   m.embeddingCacheHits.Load(),
		EmbeddingCacheMisses: m.embeddingCacheMisses.Load(),
		IngestDocsOK:         m.ingestDocsOK.Load(),
		IngestDocsFailed:     m.ingestDocsFailed.Load(),
	}
}
