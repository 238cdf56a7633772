package optimization

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerLongOnlyDraws(t *testing.T) {
	sampler := NewSampler(true)
	rng := rand.New(rand.NewSource(42)) //nolint:gosec // G404: test randomness

	dst := make([]float64, 5)
	for i := 0; i < 500; i++ {
		sampler.Draw(rng, dst)

		sum := 0.0
		for _, w := range dst {
			assert.GreaterOrEqual(t, w, 0.0, "long-only draw produced a negative weight")
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "weights must sum to 1")
	}
}

func TestSamplerShortEnabledDraws(t *testing.T) {
	sampler := NewSampler(false)
	rng := rand.New(rand.NewSource(7)) //nolint:gosec // G404: test randomness

	dst := make([]float64, 3)
	sawNegative := false
	for i := 0; i < 500; i++ {
		sampler.Draw(rng, dst)

		sum := 0.0
		for _, w := range dst {
			if w < 0 {
				sawNegative = true
			}
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "weights must sum to 1")
	}

	assert.True(t, sawNegative, "short-enabled sampling should produce some negative weights")
}

func TestSamplerSingleAsset(t *testing.T) {
	sampler := NewSampler(true)
	rng := rand.New(rand.NewSource(1)) //nolint:gosec // G404: test randomness

	dst := make([]float64, 1)
	for i := 0; i < 20; i++ {
		sampler.Draw(rng, dst)
		require.Equal(t, 1.0, dst[0], "single-asset draws always allocate everything")
	}
}

func TestSamplerEmptyDst(t *testing.T) {
	sampler := NewSampler(true)
	rng := rand.New(rand.NewSource(1)) //nolint:gosec // G404: test randomness

	assert.NotPanics(t, func() {
		sampler.Draw(rng, nil)
		sampler.Draw(rng, []float64{})
	})
}

func TestSamplerLongOnlyFlag(t *testing.T) {
	assert.True(t, NewSampler(true).LongOnly())
	assert.False(t, NewSampler(false).LongOnly())
}
