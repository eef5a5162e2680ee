package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"fdbsearch/internal/catalogstore"
	"fdbsearch/internal/config"
	"fdbsearch/internal/embedding"
	"fdbsearch/internal/httpapi"
	"fdbsearch/internal/indication"
	"fdbsearch/internal/llm/anthropic"
	"fdbsearch/internal/logging"
	"fdbsearch/internal/queryunderstanding"
	"fdbsearch/internal/search"
	"fdbsearch/internal/telemetry"
	"fdbsearch/internal/vectorstore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.LogPath, cfg.LogLevel)

	baseCtx := context.Background()

	shutdown, err := telemetry.Init(baseCtx, telemetry.Config{
		OTLPEndpoint:   cfg.OTel.Endpoint,
		ServiceName:    cfg.OTel.ServiceName,
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
	if err := vectors.CreateIndex(baseCtx); err != nil {
		log.Warn().Err(err).Msg("vector index create skipped, assumed already present")
	}
	indications := indication.New(indicationRedis)

	catalog, err := catalogstore.Open(baseCtx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open catalog store: %w", err)
	}
	defer catalog.Close()

	vocabulary, err := catalog.LoadVocabulary(baseCtx)
	if err != nil {
		log.Warn().Err(err).Msg("vocabulary load failed, spelling correction disabled")
	}

	llmClient := anthropic.New(cfg.Anthropic, nil)

	embedClient := embedding.New(cfg.Embedding, nil)
	var embedder embedding.Embedder = embedClient
	if cfg.Embedding.CacheEnabled {
		embedder = embedding.NewCached(embedClient, vectorRedis, cfg.Embedding)
	}

	parser := queryunderstanding.New(llmClient, cfg.Search, vocabulary)
	orchestrator := search.New(embedder, vectors, catalog, indications, cfg.Search)
	server := httpapi.NewServer(orchestrator, parser, catalog, cfg.Search)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("search_server_starting")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server terminated: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("search_server_shutting_down")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	log.Info().Msg("search_server_stopped")
	return nil
}
