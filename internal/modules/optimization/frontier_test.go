package optimization

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stavrou/ballast/internal/modules/forecast"
	"github.com/stavrou/ballast/internal/modules/metrics"
	"github.com/stavrou/ballast/internal/workers"
)

func newTestFrontier(numWorkers int) *FrontierGenerator {
	calc := metrics.NewCalculator(nil)
	return NewFrontierGenerator(calc, NewSampler(true), workers.NewWorkerPool(numWorkers), zerolog.Nop())
}

func TestFrontierShape(t *testing.T) {
	forecasts := sampleForecasts()
	seed := int64(21)

	points := newTestFrontier(4).Generate(forecasts, 0.02, 50, 2000, &seed, false)

	require.NotEmpty(t, points)
	assert.LessOrEqual(t, len(points), 50)
	for i := 1; i < len(points); i++ {
		assert.Greater(t, points[i].Volatility, points[i-1].Volatility,
			"volatility must be strictly ascending with no duplicates")
		assert.Greater(t, points[i].Return, points[i-1].Return,
			"return must increase along the frontier")
	}
}

func TestFrontierDeterministicForSeed(t *testing.T) {
	forecasts := sampleForecasts()
	seed := int64(77)

	first := newTestFrontier(1).Generate(forecasts, 0.02, 50, 2000, &seed, true)
	for _, numWorkers := range []int{1, 2, 8} {
		points := newTestFrontier(numWorkers).Generate(forecasts, 0.02, 50, 2000, &seed, true)
		assert.Equal(t, first, points, "frontier must not depend on worker count")
	}
}

func TestFrontierSingleAsset(t *testing.T) {
	forecasts := []forecast.AssetForecast{
		{Symbol: "VTI", CurrentPrice: 250, ExpectedReturn: 0.07, Volatility: 0.15, Available: true, Source: forecast.SourceModel},
	}
	seed := int64(4)

	points := newTestFrontier(2).Generate(forecasts, 0.03, 50, 500, &seed, false)

	require.Len(t, points, 1, "a single asset collapses every draw to the same point")
	assert.InDelta(t, 0.07, points[0].Return, 1e-12)
	assert.InDelta(t, 0.15, points[0].Volatility, 1e-12)
}

func TestFrontierNoAssets(t *testing.T) {
	seed := int64(1)
	points := newTestFrontier(2).Generate(nil, 0.05, 50, 1000, &seed, false)
	assert.Empty(t, points)
}

func TestFrontierPointsCap(t *testing.T) {
	forecasts := sampleForecasts()
	seed := int64(13)

	points := newTestFrontier(4).Generate(forecasts, 0.02, 3, 2000, &seed, false)

	require.NotEmpty(t, points)
	assert.LessOrEqual(t, len(points), 3)
	for i := 1; i < len(points); i++ {
		assert.Greater(t, points[i].Volatility, points[i-1].Volatility)
		assert.Greater(t, points[i].Return, points[i-1].Return)
	}
}

func TestFrontierIncludeWeights(t *testing.T) {
	forecasts := sampleForecasts()
	seed := int64(6)

	withWeights := newTestFrontier(2).Generate(forecasts, 0.02, 50, 1000, &seed, true)
	require.NotEmpty(t, withWeights)
	for _, p := range withWeights {
		require.Len(t, p.Weights, len(forecasts))
		sum := 0.0
		for _, w := range p.Weights {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}

	withoutWeights := newTestFrontier(2).Generate(forecasts, 0.02, 50, 1000, &seed, false)
	require.NotEmpty(t, withoutWeights)
	for _, p := range withoutWeights {
		assert.Nil(t, p.Weights)
	}
}

func TestFrontierDefaultParameters(t *testing.T) {
	forecasts := sampleForecasts()
	seed := int64(30)

	points := newTestFrontier(4).Generate(forecasts, 0.02, 0, 0, &seed, false)

	require.NotEmpty(t, points)
	assert.LessOrEqual(t, len(points), DefaultFrontierPoints)
}
