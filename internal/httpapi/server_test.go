package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdbsearch/internal/catalogstore"
	"fdbsearch/internal/config"
	"fdbsearch/internal/domain"
	"fdbsearch/internal/embedding"
	"fdbsearch/internal/indication"
	"fdbsearch/internal/llm"
	"fdbsearch/internal/queryunderstanding"
	"fdbsearch/internal/search"
	"fdbsearch/internal/vectorstore"
)

func testSearchCfg() config.SearchConfig {
	return config.SearchConfig{
		MultiDrugThreshold: 3, K1Single: 20, K1Multi: 8, K2Expansion: 100,
		EFRuntimeDefault: 10, ExpansionConcurrency: 4,
	}
}

func newTestServer(t *testing.T, rows []catalogstore.CatalogRow, seedTerm string, seedDoc domain.DrugDocument) *Server {
	t.Helper()
	embedder := embedding.NewDeterministic(domain.EmbeddingDimension)
	vectors := vectorstore.NewFake()
	if seedTerm != "" {
		v, err := embedder.Embed(context.Background(), seedTerm)
		require.NoError(t, err)
		seedDoc.Embedding = v
		require.NoError(t, vectors.Upsert(context.Background(), seedDoc))
	}
	catalog := &catalogstore.Fake{Rows: rows}
	indications := &indication.Fake{}
	orchestrator := search.New(embedder, vectors, catalog, indications, testSearchCfg())
	parser := queryunderstanding.New(&llm.Fake{Err: assertLLMUnused{}}, testSearchCfg(), nil)
	return NewServer(orchestrator, parser, catalog, testSearchCfg())
}

type assertLLMUnused struct{}

func (assertLLMUnused) Error() string { return "llm not configured in this test, falls back" }

func TestHandleSearch_FallsBackAndReturnsResults(t *testing.T) {
	s := newTestServer(t, nil, "crestor", domain.DrugDocument{
		NDC: "00001", BrandName: "Crestor", IsBrand: true, DrugClass: "STATINS",
		IndexedAt: time.Now(),
	})

	body, _ := json.Marshal(map[string]any{"query": "crestor"})
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
}

func TestHandleSearch_EmptyQueryReturns400(t *testing.T) {
	s := newTestServer(t, nil, "", domain.DrugDocument{})
	body, _ := json.Marshal(map[string]any{"query": ""})
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearch_LimitOver50Returns400(t *testing.T) {
	s := newTestServer(t, nil, "", domain.DrugDocument{})
	body, _ := json.Marshal(map[string]any{"query": "aspirin", "limit": 100})
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetDrug_NotFoundReturns404(t *testing.T) {
	s := newTestServer(t, nil, "", domain.DrugDocument{})
	req := httptest.NewRequest(http.MethodGet, "/drugs/99999", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetDrug_FoundReturnsEnrichedDoc(t *testing.T) {
	rows := []catalogstore.CatalogRow{
		{NDC: "00001", DrugNameRaw: "crestor 10mg tab", BrandName: "Crestor", Innovator: "1", DrugClass: "statins", GCNSeqno: 42},
	}
	s := newTestServer(t, rows, "", domain.DrugDocument{})
	req := httptest.NewRequest(http.MethodGet, "/drugs/00001", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["alternatives_count"])
}

func TestHandleGetAlternatives_GroupsByGenericAndBrand(t *testing.T) {
	rows := []catalogstore.CatalogRow{
		{NDC: "00001", DrugNameRaw: "crestor 10mg tab", BrandName: "Crestor", Innovator: "1", DrugClass: "statins", GCNSeqno: 42},
		{NDC: "00002", DrugNameRaw: "rosuvastatin 10mg tab", GenericName: "rosuvastatin", Innovator: "0", DrugClass: "statins", GCNSeqno: 42},
	}
	s := newTestServer(t, rows, "", domain.DrugDocument{})
	req := httptest.NewRequest(http.MethodGet, "/drugs/00001/alternatives", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Generic []domain.DrugDocument `json:"generic"`
		Brand   []domain.DrugDocument `json:"brand"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Generic, 1)
	assert.Equal(t, "00002", resp.Generic[0].NDC)
	assert.Empty(t, resp.Brand)
}

func TestCORSPreflight_ReturnsNoContent(t *testing.T) {
	s := newTestServer(t, nil, "", domain.DrugDocument{})
	req := httptest.NewRequest(http.MethodOptions, "/search", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
