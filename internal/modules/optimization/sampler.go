package optimization

import (
	"math/rand"
)

// Sampler draws weight vectors over n assets.
//
// Long-only draws sample one uniform value per asset and normalize the
// vector to sum to 1, which keeps every weight non-negative by
// construction. Note this is not a uniform draw over the simplex (a true
// Dirichlet(1,...,1) draw would use exponential variates), so corner
// allocations are under-sampled for more than two assets. The bias is
// acceptable for approximate search.
type Sampler struct {
	longOnly bool
}

// NewSampler creates a sampler. With longOnly false, draws may contain
// negative (short) weights while still summing to 1.
func NewSampler(longOnly bool) *Sampler {
	return &Sampler{longOnly: longOnly}
}

// LongOnly reports whether draws are constrained to non-negative weights.
func (s *Sampler) LongOnly() bool {
	return s.longOnly
}

// Draw fills dst with one weight vector summing to 1.
func (s *Sampler) Draw(rng *rand.Rand, dst []float64) {
	if len(dst) == 0 {
		return
	}

	if s.longOnly {
		for {
			sum := 0.0
			for i := range dst {
				dst[i] = rng.Float64()
				sum += dst[i]
			}
			if sum > 0 {
				for i := range dst {
					dst[i] /= sum
				}
				return
			}
		}
	}

	// Short-enabled: sample from [-0.5, 1.0) and reject vectors whose sum
	// is too small to normalize stably
	for {
		sum := 0.0
		for i := range dst {
			dst[i] = rng.Float64()*1.5 - 0.5
			sum += dst[i]
		}
		if sum >= 0.1 {
			for i := range dst {
				dst[i] /= sum
			}
			return
		}
	}
}
