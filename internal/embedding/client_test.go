package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdbsearch/internal/config"
	"fdbsearch/internal/domain"
)

func fakeServer(t *testing.T, dims [][]float32, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		type datum struct {
			Embedding []float32 `json:"embedding"`
		}
		data := make([]datum, len(dims))
		for i, d := range dims {
			data[i] = datum{Embedding: d}
		}
		resp := map[string]any{"data": data}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
}

func TestEmbed_HeadersAuthorizationBearer(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		resp := map[string]any{"data": []map[string]any{{"embedding": []float32{0.6, 0.8}}}}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
	defer ts.Close()

	cfg := config.EmbeddingConfig{BaseURL: ts.URL, Path: "/", Model: "m", APIHeader: "Authorization", APIKey: "secret"}
	c := New(cfg, nil)
	_, err := c.Embed(context.Background(), "atorvastatin")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestEmbed_CustomHeader(t *testing.T) {
	var gotKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		resp := map[string]any{"data": []map[string]any{{"embedding": []float32{0.6, 0.8}}}}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
	defer ts.Close()

	cfg := config.EmbeddingConfig{BaseURL: ts.URL, Path: "/", Model: "m", APIHeader: "x-api-key", APIKey: "abc"}
	c := New(cfg, nil)
	_, err := c.Embed(context.Background(), "lisinopril")
	require.NoError(t, err)
	assert.Equal(t, "abc", gotKey)
}

func TestEmbed_NormalizesToUnitLength(t *testing.T) {
	ts := fakeServer(t, [][]float32{{3, 4}}, 0)
	defer ts.Close()

	cfg := config.EmbeddingConfig{BaseURL: ts.URL, Path: "/", Model: "m"}
	c := New(cfg, nil)
	vec, err := c.Embed(context.Background(), "rosuvastatin")
	require.NoError(t, err)
	var sumSq float64
	for _, x := range vec {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sumSq, 1e-6)
}

func TestEmbed_RejectsEmptyInput(t *testing.T) {
	c := New(config.EmbeddingConfig{BaseURL: "http://unused", Path: "/"}, nil)
	_, err := c.Embed(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestEmbed_RejectsOversizedInput(t *testing.T) {
	c := New(config.EmbeddingConfig{BaseURL: "http://unused", Path: "/"}, nil)
	big := make([]byte, maxInputBytes+1)
	for i := range big {
		big[i] = 'a'
	}
	_, err := c.Embed(context.Background(), string(big))
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestEmbed_ServerErrorIsTransientAndRetried(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		resp := map[string]any{"data": []map[string]any{{"embedding": []float32{1, 0}}}}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
	defer ts.Close()

	cfg := config.EmbeddingConfig{BaseURL: ts.URL, Path: "/", Model: "m"}
	c := New(cfg, nil)
	_, err := c.Embed(context.Background(), "metformin")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestEmbed_CountMismatchIsInternal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"data": []map[string]any{}}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
	defer ts.Close()

	cfg := config.EmbeddingConfig{BaseURL: ts.URL, Path: "/", Model: "m"}
	c := New(cfg, nil)
	_, err := c.Embed(context.Background(), "testosterone")
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}

func TestDeterministic_SameInputSameVector(t *testing.T) {
	d := NewDeterministic(1024)
	a, err := d.Embed(context.Background(), "atorvastatin")
	require.NoError(t, err)
	b, err := d.Embed(context.Background(), "atorvastatin")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := d.Embed(context.Background(), "rosuvastatin")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
