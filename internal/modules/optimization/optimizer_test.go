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

func sampleForecasts() []forecast.AssetForecast {
	return []forecast.AssetForecast{
		{Symbol: "AAPL", CurrentPrice: 100, ExpectedReturn: 0.10, Volatility: 0.2, Available: true, Source: forecast.SourceModel},
		{Symbol: "MSFT", CurrentPrice: 50, ExpectedReturn: 0.04, Volatility: 0.1, Available: true, Source: forecast.SourceModel},
		{Symbol: "VTI", CurrentPrice: 200, ExpectedReturn: 0.06, Volatility: 0.3, Available: true, Source: forecast.SourceModel},
	}
}

func newTestOptimizer(numWorkers int) *Optimizer {
	calc := metrics.NewCalculator(nil)
	return NewOptimizer(calc, NewSampler(true), workers.NewWorkerPool(numWorkers), zerolog.Nop())
}

func TestOptimizeNeverWorseThanBestSingleAsset(t *testing.T) {
	// With rf=0.05 the best single asset is AAPL: (0.10-0.05)/0.2 = 0.25
	forecasts := sampleForecasts()

	for _, seed := range []int64{1, 7, 42, 99, 1234} {
		s := seed
		res := newTestOptimizer(4).Optimize(forecasts, 0.05, 1000, &s, nil)
		assert.GreaterOrEqual(t, res.Metrics.SharpeRatio, 0.25,
			"seed %d produced a result worse than holding AAPL alone", seed)
	}
}

func TestOptimizeDeterministicForSeed(t *testing.T) {
	forecasts := sampleForecasts()
	seed := int64(12345)

	first := newTestOptimizer(1).Optimize(forecasts, 0.02, 2000, &seed, nil)
	for _, numWorkers := range []int{1, 2, 8} {
		res := newTestOptimizer(numWorkers).Optimize(forecasts, 0.02, 2000, &seed, nil)
		assert.Equal(t, first, res, "results must not depend on worker count")
	}
}

func TestOptimizeMoreIterationsNeverWorse(t *testing.T) {
	forecasts := sampleForecasts()
	seed := int64(99)
	opt := newTestOptimizer(4)

	short := opt.Optimize(forecasts, 0.05, 1000, &seed, nil)
	long := opt.Optimize(forecasts, 0.05, 5000, &seed, nil)

	assert.GreaterOrEqual(t, long.Metrics.SharpeRatio, short.Metrics.SharpeRatio,
		"a longer run evaluates a superset of the same candidates")
}

func TestOptimizeWeightsSumToOne(t *testing.T) {
	forecasts := sampleForecasts()
	seed := int64(8)

	res := newTestOptimizer(4).Optimize(forecasts, 0.05, 1000, &seed, nil)

	require.Len(t, res.Weights, len(forecasts))
	sum := 0.0
	for _, w := range res.Weights {
		assert.GreaterOrEqual(t, w, 0.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestOptimizeSingleAsset(t *testing.T) {
	forecasts := []forecast.AssetForecast{
		{Symbol: "VTI", CurrentPrice: 250, ExpectedReturn: 0.07, Volatility: 0.15, Available: true, Source: forecast.SourceModel},
	}
	seed := int64(3)

	res := newTestOptimizer(2).Optimize(forecasts, 0.03, 500, &seed, nil)

	require.Len(t, res.Weights, 1)
	assert.Equal(t, 1.0, res.Weights[0])
	assert.InDelta(t, 0.07, res.Metrics.ExpectedReturn, 1e-12)
	assert.InDelta(t, 0.15, res.Metrics.Volatility, 1e-12)
}

func TestOptimizeNoAssets(t *testing.T) {
	res := newTestOptimizer(2).Optimize(nil, 0.05, 1000, nil, nil)
	assert.Equal(t, SearchResult{}, res)
}

func TestOptimizeDefaultIterations(t *testing.T) {
	forecasts := sampleForecasts()
	seed := int64(3)

	res := newTestOptimizer(4).Optimize(forecasts, 0.05, 0, &seed, nil)

	assert.Equal(t, len(forecasts)+DefaultIterations, res.Samples)
}

func TestOptimizeReportsProgress(t *testing.T) {
	forecasts := sampleForecasts()
	seed := int64(5)

	var calls [][2]int
	newTestOptimizer(2).Optimize(forecasts, 0.05, 3000, &seed, func(completed, total int) {
		calls = append(calls, [2]int{completed, total})
	})

	require.NotEmpty(t, calls)
	last := calls[len(calls)-1]
	assert.Equal(t, last[1], last[0], "final progress call reports full completion")
	assert.Len(t, calls, last[1])
}
