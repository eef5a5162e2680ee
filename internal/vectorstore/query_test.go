package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearchReply_NoResults(t *testing.T) {
	hits, err := parseSearchReply([]any{int64(0)}, true)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestParseSearchReply_WithScore(t *testing.T) {
	reply := []any{
		int64(1),
		"drug:12345",
		[]any{"ndc", "12345", "drug_name", "Crestor", "score", "0.1"},
	}
	hits, err := parseSearchReply(reply, true)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "12345", hits[0].Doc.NDC)
	assert.Equal(t, "Crestor", hits[0].Doc.DrugName)
	assert.InDelta(t, 0.9, hits[0].Similarity, 1e-9)
}

func TestParseSearchReply_WithoutScoreLeavesSimilarityZero(t *testing.T) {
	reply := []any{
		int64(1),
		"drug:12345",
		[]any{"ndc", "12345"},
	}
	hits, err := parseSearchReply(reply, false)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Zero(t, hits[0].Similarity)
}

func TestParseSearchReply_MultipleDocuments(t *testing.T) {
	reply := []any{
		int64(2),
		"drug:1", []any{"ndc", "1"},
		"drug:2", []any{"ndc", "2"},
	}
	hits, err := parseSearchReply(reply, false)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}
