// Package embedding converts drug terms into fixed-dimension, unit-normalized
// vectors via an OpenAI-compatible embeddings endpoint, with an optional
// Redis-backed cache (see cache.go).
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"fdbsearch/internal/config"
	"fdbsearch/internal/domain"
	"fdbsearch/internal/logging"
	"fdbsearch/internal/telemetry"
)

const (
	maxInputBytes  = 2048
	defaultTimeout = 5 * time.Second
)

// Client is the Embedding Client (spec component A): Embed(text) ->
// vector[1024], unit-normalized and deterministic for identical input under
// a fixed model id.
type Client struct {
	cfg        config.EmbeddingConfig
	httpClient *http.Client
}

// New builds an Embedding Client. httpClient may be nil to use a default,
// otelhttp-instrumented client.
func New(cfg config.EmbeddingConfig, httpClient *http.Client) *Client {
	return &Client{cfg: cfg, httpClient: telemetry.NewHTTPClient(httpClient)}
}

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the unit-normalized 1024-dim embedding for text. text must be
// non-empty and <= 2048 bytes after trim; it is the caller's responsibility
// to pass drug terms only, never condition words.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// embedBatch issues one request for multiple inputs; Embed is its only
// caller and passes a single input.
func (c *Client) embedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	normalized := make([]string, len(inputs))
	for i, in := range inputs {
		t := strings.TrimSpace(in)
		if t == "" {
			return nil, domain.Invalid("embedding input must be non-empty")
		}
		if len(t) > maxInputBytes {
			return nil, domain.Invalid(fmt.Sprintf("embedding input exceeds %d bytes", maxInputBytes))
		}
		normalized[i] = t
	}

	ctx, span := telemetry.StartSpan(ctx, "embedding.Embed",
		attribute.Int("embedding.batch_size", len(normalized)),
		attribute.String("embedding.model", c.cfg.Model),
	)
	defer span.End()

	var out [][]float32
	err := domain.Retry(ctx, domain.DefaultRetryPolicy, func(attempt int) error {
		vecs, rerr := c.doRequest(ctx, normalized)
		if rerr != nil {
			return rerr
		}
		out = vecs
		return nil
	})
	if err != nil {
		return nil, telemetry.RecordError(span, err)
	}
	return out, nil
}

func (c *Client) doRequest(ctx context.Context, inputs []string) ([][]float32, error) {
	reqBody, err := json.Marshal(embedReq{Model: c.cfg.Model, Input: inputs})
	if err != nil {
		return nil, domain.Internal("marshal embedding request", err)
	}

	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := c.cfg.BaseURL + c.cfg.Path
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, domain.Internal("build embedding request", err)
	}
	applyAuth(req, c.cfg)
	req.Header.Set("Content-Type", "application/json")

	log := logging.FromContext(ctx)
	log.Debug().RawJSON("request", telemetry.RedactJSON(reqBody)).Msg("embedding_request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.Transient("embedding request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Transient("read embedding response", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, domain.Transient(fmt.Sprintf("embedding endpoint status %s", resp.Status), nil)
	}
	if resp.StatusCode/100 != 2 {
		return nil, domain.Internal(fmt.Sprintf("embedding endpoint error %s: %s", resp.Status, truncate(body, 200)), nil)
	}
	log.Debug().RawJSON("response", telemetry.RedactJSON(body)).Msg("embedding_response")

	var er embedResp
	if err := json.Unmarshal(body, &er); err != nil {
		return nil, domain.Internal("parse embedding response", err)
	}
	if len(er.Data) != len(inputs) {
		return nil, domain.Internal(fmt.Sprintf("unexpected embedding count: got %d, want %d", len(er.Data), len(inputs)), nil)
	}

	out := make([][]float32, len(er.Data))
	for i := range er.Data {
		out[i] = normalizeUnitLength(er.Data[i].Embedding)
	}
	return out, nil
}

// normalizeUnitLength rescales v to unit L2 norm. Most embedding endpoints
// already return unit vectors; this guards the invariant regardless of
// upstream behavior.
func normalizeUnitLength(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func applyAuth(req *http.Request, cfg config.EmbeddingConfig) {
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if cfg.APIKey == "" {
		return
	}
	if req.Header.Get(cfg.APIHeader) != "" {
		return
	}
	if cfg.APIHeader == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	} else if cfg.APIHeader != "" {
		req.Header.Set(cfg.APIHeader, cfg.APIKey)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
