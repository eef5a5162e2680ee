package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// Deterministic is a hash-based, L2-normalized embedder for tests and
// fixtures: identical text always maps to the identical vector, with no
// network dependency.
type Deterministic struct {
	Dim int
}

// NewDeterministic builds a Deterministic embedder at the standard 1024-dim
// width unless dim is overridden.
func NewDeterministic(dim int) *Deterministic {
	if dim <= 0 {
		dim = 1024
	}
	return &Deterministic{Dim: dim}
}

func (d *Deterministic) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, d.Dim)
	b := []byte(text)
	if len(b) < 3 {
		addGram(b, v)
	} else {
		for i := 0; i <= len(b)-3; i++ {
			addGram(b[i:i+3], v)
		}
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum > 0 {
		inv := float32(1.0 / math.Sqrt(sum))
		for i := range v {
			v[i] *= inv
		}
	}
	return v, nil
}

func addGram(gram []byte, v []float32) {
	h := fnv.New64a()
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}
