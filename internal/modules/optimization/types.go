// Package optimization searches the weight simplex for max-Sharpe
// allocations and efficient-frontier approximations by seeded Monte Carlo
// sampling.
package optimization

import (
	"time"

	"github.com/stavrou/ballast/internal/modules/metrics"
)

// Defaults for sampling runs.
const (
	DefaultIterations      = 10000
	DefaultFrontierPoints  = 50
	DefaultFrontierSamples = 5000
)

// OptimizationResult is the audit record produced by one optimizer run.
// Append-only once persisted, never mutated.
type OptimizationResult struct {
	PortfolioID    string             `json:"portfolio_id"`
	Weights        map[string]float64 `json:"weights"`
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	SharpeRatio    float64            `json:"sharpe_ratio"`
	Source         string             `json:"source,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// FrontierPoint is one (volatility, return) pair on the approximated
// efficient frontier. Weights are included only on request.
type FrontierPoint struct {
	Volatility  float64            `json:"volatility"`
	Return      float64            `json:"return"`
	SharpeRatio float64            `json:"sharpe_ratio"`
	Weights     map[string]float64 `json:"weights,omitempty"`
}

// SearchResult is the raw outcome of a sampling search, index-aligned with
// the forecast set it ran over.
type SearchResult struct {
	Weights []float64
	Metrics metrics.PortfolioMetrics
	Samples int
}
