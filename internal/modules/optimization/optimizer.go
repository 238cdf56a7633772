package optimization

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/modules/forecast"
	"github.com/stavrou/ballast/internal/modules/metrics"
	"github.com/stavrou/ballast/internal/workers"
)

// sampleChunkSize is the fixed number of random draws per chunk. Chunk c of
// a run is seeded with seed+c, so results are reproducible for a given seed
// regardless of how many workers process the chunks.
const sampleChunkSize = 1024

// Optimizer searches the weight simplex for the max-Sharpe vector.
//
// Every run first evaluates the n single-asset baseline vectors in index
// order, then the seeded random draws. The baselines guarantee the result
// is never worse than holding any single asset outright, and because they
// occupy the earliest candidate indexes the first-seen tie rule favors
// them over later random duplicates.
type Optimizer struct {
	calc    *metrics.Calculator
	sampler *Sampler
	pool    *workers.WorkerPool
	log     zerolog.Logger
}

// NewOptimizer creates an optimizer.
func NewOptimizer(calc *metrics.Calculator, sampler *Sampler, pool *workers.WorkerPool, log zerolog.Logger) *Optimizer {
	return &Optimizer{
		calc:    calc,
		sampler: sampler,
		pool:    pool,
		log:     log.With().Str("component", "optimizer").Logger(),
	}
}

// chunkBest is the best candidate found within one sampling chunk.
type chunkBest struct {
	weights []float64
	metrics metrics.PortfolioMetrics
	valid   bool
}

// Optimize runs a sampling search over the given forecasts and returns the
// best weight vector found, index-aligned with the forecasts.
//
// iterations <= 0 falls back to the default. A nil seed gives a stochastic
// run; with a seed the result is reproducible for identical inputs. More
// iterations can only improve or match the best Sharpe found, because a
// longer run evaluates a strict superset of the same deterministic
// candidate sequence.
//
// Zero forecasts return a zero-valued result, not an error.
func (o *Optimizer) Optimize(
	forecasts []forecast.AssetForecast,
	riskFreeRate float64,
	iterations int,
	seed *int64,
	progress workers.ProgressFunc,
) SearchResult {
	n := len(forecasts)
	if n == 0 {
		return SearchResult{}
	}

	if iterations <= 0 {
		iterations = DefaultIterations
	}

	runSeed := time.Now().UnixNano()
	if seed != nil {
		runSeed = *seed
	}

	start := time.Now()

	// Phase 1: single-asset baselines, candidate indexes 0..n-1
	best := chunkBest{}
	baseline := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := range baseline {
			baseline[j] = 0
		}
		baseline[i] = 1

		m := o.calc.Compute(forecasts, baseline, riskFreeRate)
		if !best.valid || m.SharpeRatio > best.metrics.SharpeRatio {
			best = chunkBest{
				weights: append([]float64(nil), baseline...),
				metrics: m,
				valid:   true,
			}
		}
	}

	// Phase 2: seeded random draws in fixed-size chunks
	numChunks := workers.ChunkCount(iterations, sampleChunkSize)
	chunkResults := make([]chunkBest, numChunks)

	o.pool.RunChunks(numChunks, func(chunk int) {
		//nolint:gosec // G404: Monte Carlo sampling doesn't require crypto-grade randomness
		rng := rand.New(rand.NewSource(runSeed + int64(chunk)))

		draws := sampleChunkSize
		if remaining := iterations - chunk*sampleChunkSize; remaining < draws {
			draws = remaining
		}

		scratch := make([]float64, n)
		local := chunkBest{}
		for d := 0; d < draws; d++ {
			o.sampler.Draw(rng, scratch)
			m := o.calc.Compute(forecasts, scratch, riskFreeRate)
			if !local.valid || m.SharpeRatio > local.metrics.SharpeRatio {
				local = chunkBest{
					weights: append([]float64(nil), scratch...),
					metrics: m,
					valid:   true,
				}
			}
		}
		chunkResults[chunk] = local
	}, progress)

	// Merge in chunk order; strict comparisons keep the first-seen winner
	for _, cr := range chunkResults {
		if cr.valid && cr.metrics.SharpeRatio > best.metrics.SharpeRatio {
			best = cr
		}
	}

	o.log.Debug().
		Int("assets", n).
		Int("iterations", iterations).
		Int64("seed", runSeed).
		Float64("sharpe_ratio", best.metrics.SharpeRatio).
		Dur("duration_ms", time.Since(start)).
		Msg("Optimization run complete")

	return SearchResult{
		Weights: best.weights,
		Metrics: best.metrics,
		Samples: n + iterations,
	}
}
