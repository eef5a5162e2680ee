package vectorstore

import (
	"encoding/binary"
	"math"
)

// encodeVector packs a float32 vector into little-endian binary, the layout
// §6.2 specifies for the stored embedding field.
func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// decodeVector is the inverse of encodeVector.
func decodeVector(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// packLeanVec4x8 is a documented size-accounting stand-in for the store's
// LeanVec4x8 quantization scheme: one shared float32 scale per 4-float
// block plus a signed int8 value per element, 8 bytes per block instead of
// 16, half the size of raw float32. It is recorded alongside the document
// purely so ingest-time size metrics reflect the post-quantization
// footprint; KNN search always uses the unquantized vector (see DESIGN.md's
// Open Question note).
func packLeanVec4x8(v []float32) []byte {
	out := make([]byte, 0, (len(v)/4+1)*5)
	for i := 0; i < len(v); i += 4 {
		end := i + 4
		if end > len(v) {
			end = len(v)
		}
		block := v[i:end]
		maxAbs := float32(0)
		for _, x := range block {
			if abs32(x) > maxAbs {
				maxAbs = abs32(x)
			}
		}
		scale := maxAbs / 127
		var exp [4]byte
		binary.LittleEndian.PutUint32(exp[:], math.Float32bits(scale))
		out = append(out, exp[:]...)
		for _, x := range block {
			var q int8
			if scale > 0 {
				q = int8(x / scale)
			}
			out = append(out, byte(q))
		}
	}
	return out
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
