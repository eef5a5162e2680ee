package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"fdbsearch/internal/catalogstore"
	"fdbsearch/internal/config"
	"fdbsearch/internal/embedding"
	"fdbsearch/internal/indication"
	"fdbsearch/internal/ingestion"
	"fdbsearch/internal/logging"
	"fdbsearch/internal/telemetry"
	"fdbsearch/internal/vectorstore"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("ingest")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.LogPath, cfg.LogLevel)

	baseCtx := context.Background()
	ctx, cancel := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		OTLPEndpoint:   cfg.OTel.Endpoint,
		ServiceName:    cfg.OTel.ServiceName + "-ingest",
		ServiceVersion: cfg.OTel.ServiceVersion,
		Environment:    cfg.OTel.Environment,
	})
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without tracing")
		shutdown = nil
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	vectorRedis := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer vectorRedis.Close()
	indicationRedis := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.IndicationStoreDB})
	defer indicationRedis.Close()

	vectors := vectorstore.New(vectorRedis)
	if err := vectors.CreateIndex(ctx); err != nil {
		log.Warn().Err(err).Msg("vector index create skipped, assumed already present")
	}
	indications := indication.New(indicationRedis)

	catalog, err := catalogstore.Open(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open catalog store: %w", err)
	}
	defer catalog.Close()

	// Ingest always embeds through the cache: re-ingesting an unchanged NDC
	// must never pay for a fresh embedding call.
	embedder := embedding.NewCached(embedding.New(cfg.Embedding, nil), vectorRedis, cfg.Embedding)

	var checkpoint ingestion.CheckpointStore
	if cfg.Ingest.CheckpointEnabled {
		checkpoint = ingestion.NewRedisCheckpointStore(vectorRedis)
	}

	pipeline := ingestion.New(catalog, embedder, vectors, indications, checkpoint, cfg.Ingest)

	startOffset := 0
	if checkpoint != nil {
		if cp, found, err := checkpoint.Load(ctx); err != nil {
			log.Warn().Err(err).Msg("checkpoint_load_failed_starting_from_zero")
		} else if found {
			startOffset = cp.Offset
			log.Info().Int("offset", startOffset).Msg("ingest_resuming_from_checkpoint")
		}
	}

	maxRows := 0
	if v := os.Getenv("INGEST_MAX_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			maxRows = n
		}
	}

	deadline := time.Now().Add(cfg.Timeouts.IngestRequest)
	results, err := pipeline.Run(ctx, startOffset, maxRows, deadline)
	if err != nil {
		return fmt.Errorf("ingest run failed: %w", err)
	}

	var ok, failed int
	var deadLetter []string
	for _, r := range results {
		ok += r.OK
		failed += r.Failed
		deadLetter = append(deadLetter, r.DeadLetter...)
	}
	log.Info().
		Int("batches", len(results)).
		Int("ok", ok).
		Int("failed", failed).
		Strs("dead_letter", deadLetter).
		Msg("ingest_run_complete")

	return nil
}
