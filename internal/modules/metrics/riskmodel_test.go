package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stavrou/ballast/internal/modules/forecast"
)

func TestScalarCorrelation_Variance(t *testing.T) {
	model := NewScalarCorrelation(0.3)

	f := []forecast.AssetForecast{
		{Symbol: "A", Volatility: 0.2},
		{Symbol: "B", Volatility: 0.1},
	}

	v := model.Variance(f, []float64{0.5, 0.5})

	// 0.25*0.04 + 0.25*0.01 + 2*0.5*0.5*0.2*0.1*0.3
	assert.InDelta(t, 0.0155, v, 1e-12)
}

func TestScalarCorrelation_SingleAssetHasNoCrossTerm(t *testing.T) {
	model := NewScalarCorrelation(0.9)

	f := []forecast.AssetForecast{{Symbol: "A", Volatility: 0.2}}

	v := model.Variance(f, []float64{1.0})
	assert.InDelta(t, 0.04, v, 1e-12)
}

func TestScalarCorrelation_ZeroCorrelationIsDiagonal(t *testing.T) {
	model := NewScalarCorrelation(0.0)

	f := []forecast.AssetForecast{
		{Symbol: "A", Volatility: 0.2},
		{Symbol: "B", Volatility: 0.1},
	}

	v := model.Variance(f, []float64{0.5, 0.5})
	assert.InDelta(t, 0.0125, v, 1e-12)
}

func TestNewCovarianceModel_Validation(t *testing.T) {
	_, err := NewCovarianceModel(nil, nil)
	assert.Error(t, err)

	_, err = NewCovarianceModel([]string{"A"}, map[string][]float64{})
	assert.Error(t, err)

	_, err = NewCovarianceModel([]string{"A", "B"}, map[string][]float64{
		"A": {0.01, -0.01, 0.02},
		"B": {0.01, -0.01},
	})
	assert.Error(t, err)

	_, err = NewCovarianceModel([]string{"A"}, map[string][]float64{
		"A": {0.01},
	})
	assert.Error(t, err)
}

func TestCovarianceModel_SingleSeries(t *testing.T) {
	// Mean-zero alternating series: sample variance = sum(x^2)/(n-1)
	series := []float64{0.01, -0.01, 0.01, -0.01}

	model, err := NewCovarianceModel([]string{"A"}, map[string][]float64{"A": series})
	require.NoError(t, err)
	assert.Equal(t, "sample_covariance", model.Name())

	f := []forecast.AssetForecast{{Symbol: "A", Volatility: 0.2}}

	v := model.Variance(f, []float64{1.0})

	expectedDaily := 4 * 0.0001 / 3
	assert.InDelta(t, expectedDaily*252, v, 1e-12)
}

func TestCovarianceModel_IdenticalSeriesActLikeFullCorrelation(t *testing.T) {
	series := []float64{0.02, -0.01, 0.015, -0.005, 0.01}
	returns := map[string][]float64{
		"A": series,
		"B": series,
	}

	model, err := NewCovarianceModel([]string{"A", "B"}, returns)
	require.NoError(t, err)

	f := []forecast.AssetForecast{
		{Symbol: "A", Volatility: 0.2},
		{Symbol: "B", Volatility: 0.2},
	}

	// Identical series make every covariance entry equal, so the portfolio
	// variance equals the single-asset variance for any weights summing to 1
	single := model.Variance(f[:1], []float64{1.0})
	split := model.Variance(f, []float64{0.5, 0.5})

	assert.InDelta(t, single, split, 1e-12)
}

func TestCovarianceModel_UnknownSymbolFallsBackToForecastVol(t *testing.T) {
	series := []float64{0.01, -0.01, 0.01, -0.01}

	model, err := NewCovarianceModel([]string{"A"}, map[string][]float64{"A": series})
	require.NoError(t, err)

	f := []forecast.AssetForecast{
		{Symbol: "A", Volatility: 0.2},
		{Symbol: "ZZZ", Volatility: 0.1},
	}

	v := model.Variance(f, []float64{0.5, 0.5})

	// Known symbol uses the matrix, unknown contributes only its diagonal
	covA := 4 * 0.0001 / 3 * 252
	expected := 0.25*covA + 0.25*0.01
	assert.InDelta(t, expected, v, 1e-12)
}
