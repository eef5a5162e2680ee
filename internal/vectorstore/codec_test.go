package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeVector_RoundTrips(t *testing.T) {
	v := []float32{0.1, -0.2, 0.3, 0.4, -0.5}
	got := decodeVector(encodeVector(v))
	assert.InDeltaSlice(t, v, got, 1e-6)
}

func TestEncodeVector_Empty(t *testing.T) {
	assert.Empty(t, encodeVector(nil))
}

func TestPackLeanVec4x8_SizeIsSmallerThanFloat32(t *testing.T) {
	v := make([]float32, 1024)
	for i := range v {
		v[i] = float32(i%7) - 3
	}
	packed := packLeanVec4x8(v)
	raw := encodeVector(v)
	assert.Less(t, len(packed), len(raw))
}

func TestPackLeanVec4x8_HandlesNonMultipleOfFour(t *testing.T) {
	v := []float32{1, 2, 3, 4, 5}
	packed := packLeanVec4x8(v)
	assert.NotEmpty(t, packed)
}

func TestPackLeanVec4x8_AllZeroBlockDoesNotPanic(t *testing.T) {
	v := []float32{0, 0, 0, 0}
	packed := packLeanVec4x8(v)
	assert.Len(t, packed, 8)
}
