// Package metrics computes portfolio risk/return metrics from asset
// forecasts and weight vectors.
package metrics

// DefaultCorrelation is the canonical average pairwise correlation assumed
// between assets when no risk model is configured.
const DefaultCorrelation = 0.3

// PortfolioMetrics describes the risk/return profile of one weight vector.
// It is a pure derived value, never stored apart from the weights that
// produced it.
type PortfolioMetrics struct {
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
}
