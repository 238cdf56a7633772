package rebalancing

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/events"
	"github.com/stavrou/ballast/internal/modules/optimization"
)

// TargetSource resolves a stored target weight set by name. Implemented by
// the allocation repository; nil when stored sets are not available.
type TargetSource interface {
	// GetSet returns the weights of a named set, or nil when no such set
	// exists.
	GetSet(name string) (map[string]float64, error)
}

// AuditWriter records optimization results for the audit trail. Implemented
// by the optimization repository.
type AuditWriter interface {
	Save(result optimization.OptimizationResult) error
}

// Service computes rebalance plans.
type Service struct {
	planRepo *Repository
	audit    AuditWriter
	targets  TargetSource
	bus      *events.Bus
	log      zerolog.Logger
}

// NewService creates a rebalancing service. planRepo, audit, targets and bus
// may each be nil; the corresponding side effect is then skipped.
func NewService(
	planRepo *Repository,
	audit AuditWriter,
	targets TargetSource,
	bus *events.Bus,
	log zerolog.Logger,
) *Service {
	return &Service{
		planRepo: planRepo,
		audit:    audit,
		targets:  targets,
		bus:      bus,
		log:      log.With().Str("service", "rebalancing").Logger(),
	}
}

// ValidateWeights checks a target vector against the sum-to-one invariant
// and the long-only constraint. It returns the vector's imbalance (sum minus
// one) alongside any violation.
func ValidateWeights(weights []Holding) (float64, error) {
	sum := 0.0
	for _, h := range weights {
		if h.Weight < 0 {
			return 0, fmt.Errorf("negative weight %.4f for %s", h.Weight, h.Symbol)
		}
		sum += h.Weight
	}

	imbalance := sum - 1.0
	if math.Abs(imbalance) > WeightSumTolerance {
		return imbalance, fmt.Errorf("target weights sum to %.4f, outside tolerance of ±%.2f", sum, WeightSumTolerance)
	}

	return imbalance, nil
}

// Plan computes the allocation set for one request.
//
// Validation fails closed: an invalid target vector rejects the request
// before anything is computed or written. Persistence of the plan and of the
// optional audit record is best-effort; a failed write is logged and the
// computed plan is still returned.
func (s *Service) Plan(req PlanRequest) (*RebalancePlan, error) {
	if req.PortfolioValue < 0 {
		return nil, fmt.Errorf("portfolio value must not be negative, got %.2f", req.PortfolioValue)
	}

	targets, err := s.resolveTargets(req)
	if err != nil {
		return nil, err
	}

	if _, err := ValidateWeights(targets); err != nil {
		return nil, err
	}

	allocations := make([]Allocation, 0, len(targets))
	for _, t := range targets {
		allocations = append(allocations, Allocation{
			Symbol: t.Symbol,
			Weight: t.Weight,
			Value:  req.PortfolioValue * t.Weight,
		})
	}

	plan := RebalancePlan{
		PlanID:         uuid.New().String(),
		PortfolioValue: req.PortfolioValue,
		Allocations:    allocations,
		CreatedAt:      time.Now().UTC(),
	}

	if req.Metrics != nil && s.audit != nil {
		result := optimization.OptimizationResult{
			PortfolioID:    uuid.New().String(),
			Weights:        allocationWeights(allocations),
			ExpectedReturn: req.Metrics.ExpectedReturn,
			Volatility:     req.Metrics.Volatility,
			SharpeRatio:    req.Metrics.SharpeRatio,
			Source:         optimization.SourceRebalance,
			CreatedAt:      plan.CreatedAt,
		}
		if err := s.audit.Save(result); err != nil {
			s.log.Warn().Err(err).Str("plan_id", plan.PlanID).Msg("Failed to persist rebalance audit record")
		} else {
			plan.ResultID = result.PortfolioID
		}
	}

	if s.planRepo != nil {
		if err := s.planRepo.Save(plan); err != nil {
			s.log.Warn().Err(err).Str("plan_id", plan.PlanID).Msg("Failed to persist rebalance plan")
		}
	}

	if s.bus != nil {
		s.bus.EmitTyped("rebalancing", &events.RebalancePlannedData{
			PlanID:         plan.PlanID,
			PortfolioValue: plan.PortfolioValue,
			Positions:      len(plan.Allocations),
		})
	}

	s.log.Info().
		Str("plan_id", plan.PlanID).
		Int("positions", len(plan.Allocations)).
		Float64("portfolio_value", plan.PortfolioValue).
		Msg("Rebalance plan computed")

	return &plan, nil
}

// Recent returns the latest persisted plans, newest first.
func (s *Service) Recent(limit int) ([]RebalancePlan, error) {
	if s.planRepo == nil {
		return nil, nil
	}
	return s.planRepo.GetRecent(limit)
}

// resolveTargets picks the target vector for a request: explicit weights,
// then a stored set, then equal weighting across the holdings.
func (s *Service) resolveTargets(req PlanRequest) ([]Holding, error) {
	if len(req.TargetWeights) > 0 {
		return req.TargetWeights, nil
	}

	if req.TargetSet != "" {
		if s.targets == nil {
			return nil, fmt.Errorf("no target source configured, cannot resolve set %q", req.TargetSet)
		}
		weights, err := s.targets.GetSet(req.TargetSet)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve target set %q: %w", req.TargetSet, err)
		}
		if weights == nil {
			return nil, fmt.Errorf("unknown target set %q", req.TargetSet)
		}

		targets := make([]Holding, 0, len(weights))
		for symbol, weight := range weights {
			targets = append(targets, Holding{Symbol: symbol, Weight: weight})
		}
		sort.Slice(targets, func(i, j int) bool { return targets[i].Symbol < targets[j].Symbol })
		return targets, nil
	}

	if len(req.Holdings) == 0 {
		return nil, fmt.Errorf("no holdings and no target weights given")
	}

	equal := 1.0 / float64(len(req.Holdings))
	targets := make([]Holding, 0, len(req.Holdings))
	for _, h := range req.Holdings {
		targets = append(targets, Holding{Symbol: h.Symbol, Weight: equal})
	}
	return targets, nil
}

func allocationWeights(allocations []Allocation) map[string]float64 {
	weights := make(map[string]float64, len(allocations))
	for _, a := range allocations {
		weights[a.Symbol] = a.Weight
	}
	return weights
}
