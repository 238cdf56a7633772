package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stavrou/ballast/internal/modules/forecast"
)

func twoAssetForecasts() []forecast.AssetForecast {
	return []forecast.AssetForecast{
		{Symbol: "A", CurrentPrice: 100, ExpectedReturn: 0.10, Volatility: 0.2, Available: true},
		{Symbol: "B", CurrentPrice: 50, ExpectedReturn: -0.10, Volatility: 0.1, Available: true},
	}
}

func TestCompute_TwoAssetPortfolio(t *testing.T) {
	// Asset A: 100 -> 110 (return +10%, vol 0.2)
	// Asset B: 50 -> 45 (return -10%, vol 0.1)
	// Equal weights, risk-free 5%, correlation 0.3
	calc := NewCalculator(NewScalarCorrelation(0.3))

	m := calc.Compute(twoAssetForecasts(), []float64{0.5, 0.5}, 0.05)

	assert.InDelta(t, 0.0, m.ExpectedReturn, 1e-12)

	// variance = 0.25*0.04 + 0.25*0.01 + 2*0.5*0.5*0.2*0.1*0.3 = 0.0155
	assert.InDelta(t, 0.124499, m.Volatility, 1e-6)
	assert.InDelta(t, -0.40161, m.SharpeRatio, 1e-5)
}

func TestCompute_SingleAsset(t *testing.T) {
	calc := NewCalculator(nil)

	f := []forecast.AssetForecast{
		{Symbol: "A", ExpectedReturn: 0.10, Volatility: 0.2, Available: true},
	}

	m := calc.Compute(f, []float64{1.0}, 0.05)

	// Cross terms vanish for a single asset
	assert.InDelta(t, 0.10, m.ExpectedReturn, 1e-12)
	assert.InDelta(t, 0.2, m.Volatility, 1e-12)
	assert.InDelta(t, 0.25, m.SharpeRatio, 1e-12)
}

func TestCompute_EmptyInputs(t *testing.T) {
	calc := NewCalculator(nil)

	assert.Equal(t, PortfolioMetrics{}, calc.Compute(nil, nil, 0.05))
	assert.Equal(t, PortfolioMetrics{}, calc.Compute(twoAssetForecasts(), nil, 0.05))
	assert.Equal(t, PortfolioMetrics{}, calc.Compute(nil, []float64{1.0}, 0.05))
}

func TestCompute_ZeroVolatilityGuard(t *testing.T) {
	calc := NewCalculator(nil)

	f := []forecast.AssetForecast{
		{Symbol: "CASH", ExpectedReturn: 0.30, Volatility: 0, Available: true},
	}

	// Sharpe is 0 whenever volatility is 0, regardless of return sign
	m := calc.Compute(f, []float64{1.0}, 0.05)
	assert.Equal(t, 0.0, m.Volatility)
	assert.Equal(t, 0.0, m.SharpeRatio)

	f[0].ExpectedReturn = -0.30
	m = calc.Compute(f, []float64{1.0}, 0.05)
	assert.Equal(t, 0.0, m.SharpeRatio)
}

func TestCompute_NegativeVarianceClamped(t *testing.T) {
	// Strongly negative correlation can push the two-asset cross term below
	// the diagonal sum only past rho=-1; use rho=-1 with equal vols so the
	// variance lands exactly on zero within floating-point error
	calc := NewCalculator(NewScalarCorrelation(-1.0))

	f := []forecast.AssetForecast{
		{Symbol: "A", ExpectedReturn: 0.05, Volatility: 0.2, Available: true},
		{Symbol: "B", ExpectedReturn: 0.05, Volatility: 0.2, Available: true},
	}

	m := calc.Compute(f, []float64{0.5, 0.5}, 0.0)

	assert.GreaterOrEqual(t, m.Volatility, 0.0)
	assert.InDelta(t, 0.0, m.Volatility, 1e-9)
	assert.Equal(t, 0.0, m.SharpeRatio)
}

func TestCompute_Idempotent(t *testing.T) {
	calc := NewCalculator(NewScalarCorrelation(0.3))

	f := twoAssetForecasts()
	w := []float64{0.7, 0.3}

	first := calc.Compute(f, w, 0.05)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, calc.Compute(f, w, 0.05))
	}
}

func TestCompute_WeightOrderMatters(t *testing.T) {
	calc := NewCalculator(NewScalarCorrelation(0.3))

	f := twoAssetForecasts()

	heavy := calc.Compute(f, []float64{0.9, 0.1}, 0.05)
	light := calc.Compute(f, []float64{0.1, 0.9}, 0.05)

	assert.Greater(t, heavy.ExpectedReturn, light.ExpectedReturn)
}

func TestNewCalculator_NilRiskModelUsesDefault(t *testing.T) {
	calc := NewCalculator(nil)

	require.NotNil(t, calc.RiskModel())
	scalar, ok := calc.RiskModel().(*ScalarCorrelation)
	require.True(t, ok)
	assert.Equal(t, DefaultCorrelation, scalar.Correlation())
}
