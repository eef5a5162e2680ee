package queryunderstanding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance_IdenticalIsZero(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("crestor", "crestor"))
}

func TestLevenshteinDistance_SingleEdit(t *testing.T) {
	assert.Equal(t, 1, levenshteinDistance("crestor", "crestar"))
}

func TestCorrectSpelling_ReturnsClosestWithinBound(t *testing.T) {
	got, ok := correctSpelling("crestr", []string{"crestor", "atorvastatin"})
	assert.True(t, ok)
	assert.Equal(t, "crestor", got)
}

func TestCorrectSpelling_RejectsBeyondBound(t *testing.T) {
	_, ok := correctSpelling("zzzzzzzzzz", []string{"crestor"})
	assert.False(t, ok)
}

func TestCorrectSpelling_AmbiguousReturnsFalse(t *testing.T) {
	_, ok := correctSpelling("cat", []string{"bat", "cap"})
	assert.False(t, ok)
}
