package optimization

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/events"
	"github.com/stavrou/ballast/internal/modules/forecast"
	"github.com/stavrou/ballast/internal/modules/metrics"
	"github.com/stavrou/ballast/internal/utils"
	"github.com/stavrou/ballast/internal/workers"
)

// Result sources.
const (
	SourceManual    = "manual"
	SourceScheduled = "scheduled"
	SourceRebalance = "rebalance"
)

// ForecastProvider supplies validated forecasts for sampling runs.
// Defined here to avoid a dependency on the forecast service itself.
type ForecastProvider interface {
	// AvailableForecasts returns usable forecasts for the given symbols, or
	// for every known symbol when symbols is empty.
	AvailableForecasts(symbols []string) ([]forecast.AssetForecast, error)
}

// Defaults are the run parameters applied when a request leaves them unset.
type Defaults struct {
	RiskFreeRate    float64
	Iterations      int
	FrontierPoints  int
	FrontierSamples int
}

// RunRequest describes one optimizer run.
type RunRequest struct {
	Symbols      []string `json:"symbols,omitempty"`
	Iterations   int      `json:"iterations,omitempty"`
	Seed         *int64   `json:"seed,omitempty"`
	RiskFreeRate *float64 `json:"risk_free_rate,omitempty"`
	Correlation  *float64 `json:"correlation,omitempty"`
	Source       string   `json:"source,omitempty"`

	// Progress is invoked as sampling chunks complete. Set by in-process
	// callers only, never part of the API payload.
	Progress workers.ProgressFunc `json:"-"`
}

// FrontierRequest describes one frontier generation run.
type FrontierRequest struct {
	Symbols        []string `json:"symbols,omitempty"`
	Points         int      `json:"points,omitempty"`
	Samples        int      `json:"samples,omitempty"`
	Seed           *int64   `json:"seed,omitempty"`
	IncludeWeights bool     `json:"include_weights,omitempty"`
}

// Service orchestrates optimizer and frontier runs: it resolves forecasts,
// applies request overrides over configured defaults, persists the audit
// record and publishes completion events.
type Service struct {
	calc      *metrics.Calculator
	sampler   *Sampler
	pool      *workers.WorkerPool
	repo      *Repository
	forecasts ForecastProvider
	bus       *events.Bus
	defaults  Defaults
	log       zerolog.Logger
}

// NewService creates an optimization service.
func NewService(
	calc *metrics.Calculator,
	sampler *Sampler,
	pool *workers.WorkerPool,
	repo *Repository,
	forecasts ForecastProvider,
	bus *events.Bus,
	defaults Defaults,
	log zerolog.Logger,
) *Service {
	return &Service{
		calc:      calc,
		sampler:   sampler,
		pool:      pool,
		repo:      repo,
		forecasts: forecasts,
		bus:       bus,
		defaults:  defaults,
		log:       log.With().Str("service", "optimization").Logger(),
	}
}

// Run executes one optimizer run and returns the resulting audit record.
//
// The record is persisted best-effort: a failed write is logged and the
// computed result is still returned. An empty forecast universe yields a
// zero-valued result with no weights; nothing is persisted for it.
func (s *Service) Run(req RunRequest) (*OptimizationResult, error) {
	defer utils.OperationTimer("optimization_run", s.log)()

	forecasts, err := s.forecasts.AvailableForecasts(req.Symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve forecasts: %w", err)
	}

	calc := s.calc
	if req.Correlation != nil {
		calc = metrics.NewCalculator(metrics.NewScalarCorrelation(*req.Correlation))
	}

	riskFreeRate := s.defaults.RiskFreeRate
	if req.RiskFreeRate != nil {
		riskFreeRate = *req.RiskFreeRate
	}

	iterations := req.Iterations
	if iterations <= 0 {
		iterations = s.defaults.Iterations
	}

	optimizer := NewOptimizer(calc, s.sampler, s.pool, s.log)
	search := optimizer.Optimize(forecasts, riskFreeRate, iterations, req.Seed, req.Progress)

	source := req.Source
	if source == "" {
		source = SourceManual
	}

	result := OptimizationResult{
		PortfolioID:    uuid.New().String(),
		Weights:        weightsToMap(forecasts, search.Weights),
		ExpectedReturn: search.Metrics.ExpectedReturn,
		Volatility:     search.Metrics.Volatility,
		SharpeRatio:    search.Metrics.SharpeRatio,
		Source:         source,
		CreatedAt:      time.Now().UTC(),
	}

	if len(forecasts) == 0 {
		s.log.Warn().Msg("No usable forecasts, returning zero-valued result")
		return &result, nil
	}

	if err := s.repo.Save(result); err != nil {
		s.log.Warn().
			Err(err).
			Str("id", result.PortfolioID).
			Msg("Failed to persist optimization result")
	}

	if s.bus != nil {
		s.bus.EmitTyped("optimization", &events.OptimizationCompletedData{
			ResultID:       result.PortfolioID,
			Assets:         len(forecasts),
			Iterations:     iterations,
			ExpectedReturn: result.ExpectedReturn,
			Volatility:     result.Volatility,
			SharpeRatio:    result.SharpeRatio,
			Source:         source,
		})
	}

	return &result, nil
}

// Frontier generates an efficient-frontier approximation over the resolved
// forecasts using the configured defaults for unset parameters.
func (s *Service) Frontier(req FrontierRequest) ([]FrontierPoint, error) {
	forecasts, err := s.forecasts.AvailableForecasts(req.Symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve forecasts: %w", err)
	}

	points := req.Points
	if points <= 0 {
		points = s.defaults.FrontierPoints
	}
	samples := req.Samples
	if samples <= 0 {
		samples = s.defaults.FrontierSamples
	}

	generator := NewFrontierGenerator(s.calc, s.sampler, s.pool, s.log)
	return generator.Generate(forecasts, s.defaults.RiskFreeRate, points, samples, req.Seed, req.IncludeWeights), nil
}

// Recent returns the latest persisted results, newest first.
func (s *Service) Recent(limit int) ([]OptimizationResult, error) {
	return s.repo.GetRecent(limit)
}

// Get returns one persisted result, or nil when the id is unknown.
func (s *Service) Get(id string) (*OptimizationResult, error) {
	return s.repo.GetByID(id)
}
