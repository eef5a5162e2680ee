// Package ingestion implements the Ingestion Pipeline (spec component G): a
// resumable batch loader that pages the Catalog Store Gateway, normalizes
// rows into DrugDocuments, fans embedding calls out with bounded
// concurrency, and upserts completed documents into the Vector Store
// Gateway and Indication Store. Grounded on the teacher's
// internal/rag/ingest/index_vector.go embed-then-upsert loop, generalized
// from a sequential per-document pass to a semaphore-bounded fan-out over a
// paged relational scan.
package ingestion

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"fdbsearch/internal/catalogstore"
	"fdbsearch/internal/config"
	"fdbsearch/internal/domain"
	"fdbsearch/internal/embedding"
	"fdbsearch/internal/indication"
	"fdbsearch/internal/logging"
	"fdbsearch/internal/telemetry"
	"fdbsearch/internal/vectorstore"
)

const defaultBatchSize = 100
const defaultConcurrency = 8
const defaultSafetyMargin = 30 * time.Second

// BatchResult is the per-batch outcome §4.7 Step 6 requires the caller to
// observe: counts, timing, and where to resume.
type BatchResult struct {
	OK         int
	Failed     int
	DurationMS int64
	NextOffset int
	Done       bool
	DeadLetter []string
}

// Checkpoint is the optional persisted record of §6.2, letting a process
// restart resume ingestion via NextOffset without an external scheduler.
type Checkpoint struct {
	Offset          int       `json:"offset"`
	LastCompletedAt time.Time `json:"last_completed_at"`
	DeadLetter      []string  `json:"dead_letter"`
}

// CheckpointStore persists and loads a Checkpoint. Optional: a Pipeline with
// a nil store simply never checkpoints.
type CheckpointStore interface {
	Load(ctx context.Context) (Checkpoint, bool, error)
	Save(ctx context.Context, cp Checkpoint) error
}

// Pipeline is the Ingestion Pipeline. It holds no mutable state between
// Run calls other than what a caller-supplied CheckpointStore persists.
type Pipeline struct {
	catalog     catalogstore.Reader
	embedder    embedding.Embedder
	vectors     vectorstore.Writer
	indications indication.Writer
	checkpoint  CheckpointStore
	cfg         config.IngestConfig
}

// New builds a Pipeline from its collaborators. checkpoint and indications
// may both be nil (an ingest run with no Indication Store configured simply
// skips Step 5).
func New(catalog catalogstore.Reader, embedder embedding.Embedder, vectors vectorstore.Writer, indications indication.Writer, checkpoint CheckpointStore, cfg config.IngestConfig) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Pipeline{catalog: catalog, embedder: embedder, vectors: vectors, indications: indications, checkpoint: checkpoint, cfg: cfg}
}

// RunOne executes a single batch starting at offset, implementing §4.7's
// seven-step algorithm. It never returns an error for per-row failures;
// only loss of catalog or vector store connectivity after retries aborts
// the batch (§5's "framework errors" rule).
func (p *Pipeline) RunOne(ctx context.Context, offset int) (BatchResult, error) {
	return p.runBatch(ctx, offset, p.cfg.BatchSize)
}

func (p *Pipeline) runBatch(ctx context.Context, offset, batchSize int) (BatchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingestion.RunOne")
	defer span.End()
	log := logging.FromContext(ctx)
	start := time.Now()

	var rows []catalogstore.CatalogRow
	err := domain.Retry(ctx, domain.DefaultRetryPolicy, func(attempt int) error {
		var scanErr error
		rows, scanErr = p.catalog.ScanActive(ctx, offset, batchSize)
		return scanErr
	})
	if err != nil {
		return BatchResult{}, telemetry.RecordError(span, domain.Unavailable("catalog scan failed", err))
	}
	if len(rows) == 0 {
		return BatchResult{NextOffset: offset, Done: true, DurationMS: time.Since(start).Milliseconds()}, nil
	}

	docs := make([]domain.DrugDocument, len(rows))
	for i, row := range rows {
		docs[i] = catalogstore.Normalize(row)
	}

	embedded, deadLetter := p.embedAll(ctx, docs)

	ok := 0
	for _, doc := range embedded {
		if err := p.vectors.Upsert(ctx, doc); err != nil {
			if domain.KindOf(err) == domain.KindUpstreamUnavailable {
				return BatchResult{}, telemetry.RecordError(span, err)
			}
			log.Warn().Err(err).Str("ndc", doc.NDC).Msg("ingest_upsert_failed")
			deadLetter = append(deadLetter, doc.NDC)
			continue
		}
		ok++
	}

	if p.indications != nil {
		if err := p.upsertIndications(ctx, embedded); err != nil {
			log.Warn().Err(err).Msg("ingest_indication_upsert_degraded")
		}
	}

	result := BatchResult{
		OK:         ok,
		Failed:     len(rows) - ok,
		DurationMS: time.Since(start).Milliseconds(),
		NextOffset: offset + len(rows),
		DeadLetter: deadLetter,
	}
	telemetry.Global.RecordIngestBatch(result.OK, result.Failed)

	if p.checkpoint != nil {
		cp := Checkpoint{Offset: result.NextOffset, LastCompletedAt: time.Now(), DeadLetter: deadLetter}
		if err := p.checkpoint.Save(ctx, cp); err != nil {
			log.Warn().Err(err).Msg("ingest_checkpoint_save_failed")
		}
	}
	return result, nil
}

// Run drives RunOne from startOffset until ScanActive returns no rows,
// maxRows is reached (0 means unbounded), or the remaining wall-clock
// budget falls under the safety margin, per §4.7 Step 7.
func (p *Pipeline) Run(ctx context.Context, startOffset, maxRows int, deadline time.Time) ([]BatchResult, error) {
	var results []BatchResult
	offset := startOffset
	processed := 0
	safetyMargin := defaultSafetyMargin
	if p.cfg.SafetyMarginMS > 0 {
		safetyMargin = time.Duration(p.cfg.SafetyMarginMS) * time.Millisecond
	}

	for {
		if !deadline.IsZero() && time.Until(deadline) < safetyMargin {
			return results, nil
		}
		if maxRows > 0 && processed >= maxRows {
			return results, nil
		}

		batchSize := p.cfg.BatchSize
		if maxRows > 0 && processed+batchSize > maxRows {
			batchSize = maxRows - processed
		}
		result, err := p.runBatch(ctx, offset, batchSize)
		if err != nil {
			return results, err
		}
		results = append(results, result)
		if result.Done {
			return results, nil
		}
		processed += result.OK + result.Failed
		offset = result.NextOffset
	}
}

// embedAll fans out one embedding call per row with bounded parallelism,
// retrying transient failures up to domain.DefaultRetryPolicy's max attempts
// before recording the row in the dead-letter list and continuing (§4.7
// Step 3). Row identity survives fan-out because each goroutine writes only
// to its own index.
func (p *Pipeline) embedAll(ctx context.Context, docs []domain.DrugDocument) ([]domain.DrugDocument, []string) {
	embeddings := make([][]float32, len(docs))
	failed := make([]bool, len(docs))

	sem := semaphore.NewWeighted(int64(p.cfg.Concurrency))
	var wg sync.WaitGroup
	for i, doc := range docs {
		i, doc := i, doc
		if err := sem.Acquire(ctx, 1); err != nil {
			failed[i] = true
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			v, err := p.embedOne(ctx, doc)
			if err != nil {
				failed[i] = true
				return
			}
			embeddings[i] = v
		}()
	}
	wg.Wait()

	var out []domain.DrugDocument
	var deadLetter []string
	for i, doc := range docs {
		if failed[i] {
			deadLetter = append(deadLetter, doc.NDC)
			continue
		}
		doc.Embedding = embeddings[i]
		doc.IndexedAt = time.Now()
		out = append(out, doc)
	}
	return out, deadLetter
}

func (p *Pipeline) embedOne(ctx context.Context, doc domain.DrugDocument) ([]float32, error) {
	var v []float32
	err := domain.Retry(ctx, domain.DefaultRetryPolicy, func(attempt int) error {
		var embedErr error
		v, embedErr = p.embedder.Embed(ctx, embeddingInput(doc))
		return embedErr
	})
	return v, err
}

// embeddingInput builds the deterministic text the embedding is generated
// from; re-ingesting the same row with the same embedding model must
// reproduce the same vector, per §4.7's idempotence contract.
func embeddingInput(doc domain.DrugDocument) string {
	return doc.DrugName + " " + doc.GenericName + " " + doc.BrandName
}

// upsertIndications looks up and stores indication lists for any
// indication_key this batch introduced, deduplicated within the batch to
// avoid redundant lookups for documents sharing a brand or class (§4.7
// Step 5).
func (p *Pipeline) upsertIndications(ctx context.Context, docs []domain.DrugDocument) error {
	seen := map[string]bool{}
	var keys []string
	for _, doc := range docs {
		if doc.IndicationKey == "" || seen[doc.IndicationKey] {
			continue
		}
		seen[doc.IndicationKey] = true
		keys = append(keys, doc.IndicationKey)
	}
	if len(keys) == 0 {
		return nil
	}

	found, err := p.catalog.LookupIndicationsByClass(ctx, keys)
	if err != nil {
		return domain.Transient("indication lookup failed", err)
	}
	for key, list := range found {
		if err := p.indications.Upsert(ctx, domain.IndicationRecord{Key: key, Indications: list}); err != nil {
			return err
		}
	}
	return nil
}
