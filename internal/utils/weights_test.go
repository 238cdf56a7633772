package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumWeights(t *testing.T) {
	assert.Equal(t, 0.0, SumWeights(nil))
	assert.Equal(t, 0.0, SumWeights([]float64{}))
	assert.InDelta(t, 1.0, SumWeights([]float64{0.5, 0.3, 0.2}), 1e-12)
	assert.InDelta(t, 0.4, SumWeights([]float64{0.7, -0.3}), 1e-12)
}

func TestSumWeightMap(t *testing.T) {
	assert.Equal(t, 0.0, SumWeightMap(nil))
	assert.InDelta(t, 1.0, SumWeightMap(map[string]float64{"AAPL": 0.6, "MSFT": 0.4}), 1e-12)
}

func TestNormalizeWeights(t *testing.T) {
	w := []float64{2, 3, 5}
	ok := NormalizeWeights(w)
	assert.True(t, ok)
	assert.InDelta(t, 0.2, w[0], 1e-12)
	assert.InDelta(t, 0.3, w[1], 1e-12)
	assert.InDelta(t, 0.5, w[2], 1e-12)
	assert.InDelta(t, 1.0, SumWeights(w), 1e-12)
}

func TestNormalizeWeights_ZeroSum(t *testing.T) {
	w := []float64{0, 0}
	assert.False(t, NormalizeWeights(w))

	assert.False(t, NormalizeWeights(nil))
}
