// Package rebalancing applies target weight vectors to portfolio holdings,
// enforcing the sum-to-one invariant before any state changes.
package rebalancing

import (
	"time"

	"github.com/stavrou/ballast/internal/modules/metrics"
)

// WeightSumTolerance is the acceptable deviation of a target weight vector's
// sum from 1.0. Vectors outside this band are rejected before any plan is
// computed.
const WeightSumTolerance = 0.01

// Holding is one (symbol, weight) pair in a portfolio or a target vector.
type Holding struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}

// Allocation is one per-holding outcome of a rebalance plan: the target
// weight applied to the portfolio value.
type Allocation struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
	Value  float64 `json:"value"`
}

// PlanRequest describes one rebalance computation.
//
// Target weights resolve in order: explicit TargetWeights, then a stored
// TargetSet by name, then equal weighting across the current holdings.
type PlanRequest struct {
	Holdings       []Holding `json:"holdings"`
	TargetWeights  []Holding `json:"target_weights,omitempty"`
	TargetSet      string    `json:"target_set,omitempty"`
	PortfolioValue float64   `json:"portfolio_value"`

	// Metrics optionally pairs the plan with a metrics snapshot for the
	// audit trail.
	Metrics *metrics.PortfolioMetrics `json:"metrics,omitempty"`
}

// RebalancePlan is the computed allocation set for one request.
type RebalancePlan struct {
	PlanID         string       `json:"plan_id"`
	PortfolioValue float64      `json:"portfolio_value"`
	Allocations    []Allocation `json:"allocations"`

	// ResultID references the audit record written when the request
	// carried a metrics snapshot. Empty otherwise.
	ResultID  string    `json:"result_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
