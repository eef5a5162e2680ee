package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// defaultDosageFormSynonyms mirrors §4.5's example: a loose form expands to
// the set of store tags the search engine accepts as equivalent.
var defaultDosageFormSynonyms = map[string][]string{
	"INJECTION":   {"INJECTION", "VIAL", "SYRINGE", "SOLUTION"},
	"GEL PACKET":  {"GEL"},
	"CREAM GRAM":  {"CREAM"},
}

// Load reads configuration from environment variables, optionally overridden
// by a local .env file (godotenv.Overload lets repo-local config win in
// development, matching the teacher's loader).
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		HTTPAddr: firstNonEmpty(os.Getenv("HTTP_ADDR"), ":8080"),
		LogLevel: firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
		LogPath:  os.Getenv("LOG_PATH"),
	}

	cfg.Anthropic = AnthropicConfig{
		APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		BaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
		Model:   firstNonEmpty(os.Getenv("ANTHROPIC_MODEL"), "claude-3-7-sonnet-latest"),
		Timeout: durationOrDefault("LLM_TIMEOUT_MS", 10_000),
	}
	promptCacheEnabled := boolOrDefault("ANTHROPIC_PROMPT_CACHE_ENABLED", true)
	cfg.Anthropic.PromptCache = AnthropicPromptCacheConfig{
		Enabled:     promptCacheEnabled,
		CacheSystem: promptCacheEnabled,
		CacheTools:  promptCacheEnabled,
	}

	cfg.Embedding = EmbeddingConfig{
		BaseURL:      os.Getenv("EMBEDDING_BASE_URL"),
		Path:         firstNonEmpty(os.Getenv("EMBEDDING_PATH"), "/v1/embeddings"),
		Model:        firstNonEmpty(os.Getenv("EMBEDDING_MODEL"), "text-embedding-3-large"),
		APIKey:       os.Getenv("EMBEDDING_API_KEY"),
		APIHeader:    firstNonEmpty(os.Getenv("EMBEDDING_API_HEADER"), "Authorization"),
		Dimensions:   intOrDefault("EMBEDDING_DIMENSIONS", 1024),
		Timeout:      durationOrDefault("EMBEDDING_TIMEOUT_MS", 5_000),
		CacheTTL:     30 * 24 * time.Hour,
		CacheEnabled: boolOrDefault("EMBEDDING_CACHE_ENABLED", true),
	}

	cfg.Redis = RedisConfig{
		Addr:              firstNonEmpty(os.Getenv("REDIS_ADDR"), "localhost:6379"),
		Password:          os.Getenv("REDIS_PASSWORD"),
		DB:                intOrDefault("REDIS_DB", 0),
		IndicationStoreDB: intOrDefault("REDIS_INDICATION_DB", 1),
	}

	cfg.Postgres = PostgresConfig{
		DSN:             os.Getenv("POSTGRES_DSN"),
		MaxConns:        int32(intOrDefault("POSTGRES_MAX_CONNS", 10)),
		ConnIdleTimeout: durationOrDefault("POSTGRES_IDLE_TIMEOUT_MS", 300_000),
	}

	cfg.OTel = OTelConfig{
		Endpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:    firstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), "fdbsearch"),
		ServiceVersion: firstNonEmpty(os.Getenv("OTEL_SERVICE_VERSION"), "dev"),
		Environment:    firstNonEmpty(os.Getenv("OTEL_ENVIRONMENT"), "development"),
	}

	autoApply := parseCommaSeparatedList(os.Getenv("AUTO_APPLY_FILTERS"))
	if len(autoApply) == 0 {
		autoApply = []string{"dosage_form", "dea_schedule", "is_generic", "ndc", "gcn_seqno"}
	}
	blacklist := parseCommaSeparatedList(os.Getenv("THERAPEUTIC_CLASS_BLACKLIST"))
	if len(blacklist) == 0 {
		blacklist = []string{"Bulk Chemicals", "Miscellaneous", "Uncategorized", "Not Specified"}
	}

	synonyms, err := loadDosageFormSynonyms(os.Getenv("DOSAGE_FORM_SYNONYMS_FILE"))
	if err != nil {
		return Config{}, fmt.Errorf("config: load dosage form synonyms: %w", err)
	}

	cfg.Search = SearchConfig{
		MultiDrugThreshold:        intOrDefault("MULTI_DRUG_THRESHOLD", 3),
		K1Single:                  intOrDefault("K1_SINGLE", 20),
		K1Multi:                   intOrDefault("K1_MULTI", 8),
		K2Expansion:               intOrDefault("K2_EXPANSION", 100),
		EFRuntimeDefault:          intOrDefault("EF_RUNTIME_DEFAULT", 10),
		ExpansionConcurrency:      intOrDefault("EXPANSION_CONCURRENCY", 8),
		AutoApplyFilters:          autoApply,
		TherapeuticClassBlacklist: blacklist,
		DosageFormSynonyms:        synonyms,
	}

	cfg.Ingest = IngestConfig{
		BatchSize:         intOrDefault("INGEST_BATCH_SIZE", 100),
		Concurrency:       intOrDefault("INGEST_CONCURRENCY", 8),
		SafetyMarginMS:    intOrDefault("INGEST_SAFETY_MARGIN_MS", 30_000),
		CheckpointEnabled: boolOrDefault("INGEST_CHECKPOINT_ENABLED", true),
	}

	cfg.Timeouts = TimeoutsConfig{
		LLM:           durationOrDefault("LLM_TIMEOUT_MS", 10_000),
		Embedding:     durationOrDefault("EMBEDDING_TIMEOUT_MS", 5_000),
		VectorQuery:   durationOrDefault("VECTOR_QUERY_TIMEOUT_MS", 2_000),
		CatalogEnrich: durationOrDefault("CATALOG_ENRICH_TIMEOUT_MS", 3_000),
		QueryRequest:  durationOrDefault("QUERY_REQUEST_TIMEOUT_MS", 30_000),
		IngestRequest: durationOrDefault("INGEST_REQUEST_TIMEOUT_MS", 900_000),
	}

	return cfg, nil
}

// loadDosageFormSynonyms returns the built-in table, merged with an optional
// YAML override file (§6.3 DOSAGE_FORM_SYNONYMS).
func loadDosageFormSynonyms(path string) (map[string][]string, error) {
	out := make(map[string][]string, len(defaultDosageFormSynonyms))
	for k, v := range defaultDosageFormSynonyms {
		out[k] = append([]string(nil), v...)
	}
	if strings.TrimSpace(path) == "" {
		return out, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, err
	}
	var overrides map[string][]string
	if err := yaml.Unmarshal(b, &overrides); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for k, v := range overrides {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseCommaSeparatedList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func intOrDefault(envVar string, def int) int {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolOrDefault(envVar string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durationOrDefault(envVar string, defMillis int) time.Duration {
	return time.Duration(intOrDefault(envVar, defMillis)) * time.Millisecond
}
