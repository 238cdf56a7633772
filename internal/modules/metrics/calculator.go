package metrics

import (
	"math"

	"github.com/stavrou/ballast/internal/modules/forecast"
)

// Calculator computes portfolio metrics through a pluggable risk model.
// Compute is pure and deterministic: identical inputs always produce
// bit-identical output.
type Calculator struct {
	risk RiskModel
}

// NewCalculator creates a metrics calculator. A nil risk model falls back
// to scalar correlation with the canonical default.
func NewCalculator(risk RiskModel) *Calculator {
	if risk == nil {
		risk = NewScalarCorrelation(DefaultCorrelation)
	}
	return &Calculator{risk: risk}
}

// RiskModel returns the calculator's risk model.
func (c *Calculator) RiskModel() RiskModel {
	return c.risk
}

// Compute derives the portfolio metrics for a weight vector.
//
// expectedReturn is the weight-sum of forecast returns; variance comes from
// the risk model and is clamped at zero before the square root; the Sharpe
// ratio is 0 whenever volatility is 0, regardless of return sign, so
// degenerate portfolios never produce NaN or Inf.
//
// Empty forecasts or weights yield all-zero metrics.
func (c *Calculator) Compute(forecasts []forecast.AssetForecast, weights []float64, riskFreeRate float64) PortfolioMetrics {
	if len(forecasts) == 0 || len(weights) == 0 {
		return PortfolioMetrics{}
	}

	n := len(forecasts)
	if len(weights) < n {
		n = len(weights)
	}

	var expectedReturn float64
	for i := 0; i < n; i++ {
		expectedReturn += weights[i] * forecasts[i].ExpectedReturn
	}

	variance := c.risk.Variance(forecasts[:n], weights[:n])
	volatility := math.Sqrt(math.Max(variance, 0))

	sharpeRatio := 0.0
	if volatility != 0 {
		sharpeRatio = (expectedReturn - riskFreeRate) / volatility
	}

	return PortfolioMetrics{
		ExpectedReturn: expectedReturn,
		Volatility:     volatility,
		SharpeRatio:    sharpeRatio,
	}
}
