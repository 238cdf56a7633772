package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/stavrou/ballast/internal/modules/forecast"
	"github.com/stavrou/ballast/pkg/formulas"
)

// RiskModel computes the portfolio variance implied by a weight vector over
// a forecast set. Implementations must be stateless after construction and
// safe for concurrent use: the optimizer calls Variance from many workers.
type RiskModel interface {
	// Variance returns the portfolio variance for the given weights.
	// Weights and forecasts are index-aligned.
	Variance(forecasts []forecast.AssetForecast, weights []float64) float64

	// Name identifies the model in logs and audit records.
	Name() string
}

// ScalarCorrelation approximates the covariance structure with one average
// pairwise correlation applied to every asset pair:
//
//	variance = Σ wᵢ²σᵢ² + Σ_{i≠j} wᵢwⱼσᵢσⱼρ
//
// This is the engine's documented simplification, not a real covariance
// matrix. It keeps variance computation allocation-free inside the sampling
// loop.
type ScalarCorrelation struct {
	correlation float64
}

// NewScalarCorrelation creates a scalar-correlation risk model.
func NewScalarCorrelation(correlation float64) *ScalarCorrelation {
	return &ScalarCorrelation{correlation: correlation}
}

// Name identifies the model in logs and audit records.
func (m *ScalarCorrelation) Name() string {
	return "scalar_correlation"
}

// Correlation returns the configured pairwise correlation.
func (m *ScalarCorrelation) Correlation() float64 {
	return m.correlation
}

// Variance returns the portfolio variance for the given weights.
func (m *ScalarCorrelation) Variance(forecasts []forecast.AssetForecast, weights []float64) float64 {
	n := len(forecasts)
	if len(weights) < n {
		n = len(weights)
	}

	var variance float64
	for i := 0; i < n; i++ {
		variance += weights[i] * weights[i] * forecasts[i].Volatility * forecasts[i].Volatility
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			variance += weights[i] * weights[j] *
				forecasts[i].Volatility * forecasts[j].Volatility * m.correlation
		}
	}

	return variance
}

// CovarianceModel computes portfolio variance from a sample covariance
// matrix built out of historical daily return series. Symbols absent from
// the matrix fall back to their forecast volatility on the diagonal and
// zero cross-covariance, so a partially covered universe still prices.
type CovarianceModel struct {
	cov   *mat.SymDense
	index map[string]int
}

// NewCovarianceModel builds an annualized sample covariance matrix from
// daily return series. Every series must have the same length and at least
// two observations.
func NewCovarianceModel(symbols []string, dailyReturns map[string][]float64) (*CovarianceModel, error) {
	n := len(symbols)
	if n == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}

	observations := -1
	for _, symbol := range symbols {
		series, ok := dailyReturns[symbol]
		if !ok {
			return nil, fmt.Errorf("missing return series for %s", symbol)
		}
		if observations == -1 {
			observations = len(series)
		} else if len(series) != observations {
			return nil, fmt.Errorf("return series for %s has %d observations, expected %d",
				symbol, len(series), observations)
		}
	}
	if observations < 2 {
		return nil, fmt.Errorf("insufficient data: need at least 2 observations, got %d", observations)
	}

	cov := mat.NewSymDense(n, nil)
	index := make(map[string]int, n)
	for i, symbol := range symbols {
		index[symbol] = i
	}

	// Sample covariance per pair, annualized from daily returns
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := stat.Covariance(dailyReturns[symbols[i]], dailyReturns[symbols[j]], nil)
			cov.SetSym(i, j, c*formulas.TradingDaysPerYear)
		}
	}

	return &CovarianceModel{cov: cov, index: index}, nil
}

// Name identifies the model in logs and audit records.
func (m *CovarianceModel) Name() string {
	return "sample_covariance"
}

// Variance returns the portfolio variance for the given weights.
func (m *CovarianceModel) Variance(forecasts []forecast.AssetForecast, weights []float64) float64 {
	n := len(forecasts)
	if len(weights) < n {
		n = len(weights)
	}

	var variance float64
	for i := 0; i < n; i++ {
		ii, iKnown := m.index[forecasts[i].Symbol]
		for j := 0; j < n; j++ {
			jj, jKnown := m.index[forecasts[j].Symbol]

			var cov float64
			switch {
			case iKnown && jKnown:
				cov = m.cov.At(ii, jj)
			case i == j:
				cov = forecasts[i].Volatility * forecasts[i].Volatility
			default:
				cov = 0
			}

			variance += weights[i] * weights[j] * cov
		}
	}

	return variance
}
