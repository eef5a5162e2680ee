// Package config loads the environment-driven configuration recognized by
// every component, per §6.3 of the search engine design plus the connection
// settings the distilled option list left implicit.
package config

import "time"

// AnthropicPromptCacheConfig controls ephemeral prompt-cache scoping on the
// LLM Client's Anthropic calls.
type AnthropicPromptCacheConfig struct {
	Enabled       bool
	CacheSystem   bool
	CacheTools    bool
	CacheMessages bool
}

// AnthropicConfig configures the LLM Client.
type AnthropicConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	PromptCache AnthropicPromptCacheConfig
	Timeout     time.Duration
}

// EmbeddingConfig configures the Embedding Client.
type EmbeddingConfig struct {
	BaseURL     string
	Path        string
	Model       string
	APIKey      string
	APIHeader   string
	Headers     map[string]string
	Dimensions  int
	Timeout     time.Duration
	CacheTTL    time.Duration
	CacheEnabled bool // query path only; ingest path always caches
}

// RedisConfig configures the Vector Store Gateway, Indication Store, and the
// Embedding Client's cache.
type RedisConfig struct {
	Addr               string
	Password           string
	DB                 int
	IndicationStoreDB  int
}

// PostgresConfig configures the Catalog Store Gateway.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	ConnIdleTimeout time.Duration
}

// OTelConfig configures internal/telemetry.
type OTelConfig struct {
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// SearchConfig holds the Search Orchestrator's tunable constants (§6.3).
type SearchConfig struct {
	MultiDrugThreshold        int
	K1Single                  int
	K1Multi                   int
	K2Expansion               int
	EFRuntimeDefault          int
	ExpansionConcurrency      int
	AutoApplyFilters          []string
	TherapeuticClassBlacklist []string
	DosageFormSynonyms        map[string][]string
}

// IngestConfig holds the Ingestion Pipeline's tunable constants (§6.3/§4.7).
type IngestConfig struct {
	BatchSize         int
	Concurrency       int
	SafetyMarginMS    int
	CheckpointEnabled bool
}

// TimeoutsConfig holds the per-operation deadlines of §5.
type TimeoutsConfig struct {
	LLM           time.Duration
	Embedding     time.Duration
	VectorQuery   time.Duration
	CatalogEnrich time.Duration
	QueryRequest  time.Duration
	IngestRequest time.Duration
}

// Config is the fully resolved, process-wide configuration, read once at
// startup and injected into every component's constructor.
type Config struct {
	HTTPAddr string
	LogLevel string
	LogPath  string

	Anthropic AnthropicConfig
	Embedding EmbeddingConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	OTel      OTelConfig
	Search    SearchConfig
	Ingest    IngestConfig
	Timeouts  TimeoutsConfig
}
