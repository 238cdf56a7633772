package optimization

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/modules/forecast"
	"github.com/stavrou/ballast/internal/modules/metrics"
	"github.com/stavrou/ballast/internal/workers"
)

// FrontierGenerator approximates the efficient frontier by sampling random
// weight vectors and keeping the upper envelope of the (volatility, return)
// cloud.
type FrontierGenerator struct {
	calc    *metrics.Calculator
	sampler *Sampler
	pool    *workers.WorkerPool
	log     zerolog.Logger
}

// frontierSample is one evaluated draw.
type frontierSample struct {
	volatility  float64
	ret         float64
	sharpeRatio float64
	weights     []float64
}

// NewFrontierGenerator creates a frontier generator.
func NewFrontierGenerator(calc *metrics.Calculator, sampler *Sampler, pool *workers.WorkerPool, log zerolog.Logger) *FrontierGenerator {
	return &FrontierGenerator{
		calc:    calc,
		sampler: sampler,
		pool:    pool,
		log:     log.With().Str("component", "frontier").Logger(),
	}
}

// Generate samples the simplex and returns the efficient-frontier
// approximation, sorted by strictly ascending volatility with strictly
// increasing return (a true upper envelope, no duplicate volatilities).
//
// At most points entries are returned; fewer are normal for small or
// degenerate universes (a single asset yields exactly one point). Weights
// are attached only when includeWeights is set.
func (g *FrontierGenerator) Generate(
	forecasts []forecast.AssetForecast,
	riskFreeRate float64,
	points int,
	samples int,
	seed *int64,
	includeWeights bool,
) []FrontierPoint {
	n := len(forecasts)
	if n == 0 {
		return []FrontierPoint{}
	}

	if points <= 0 {
		points = DefaultFrontierPoints
	}
	if samples <= 0 {
		samples = DefaultFrontierSamples
	}

	runSeed := time.Now().UnixNano()
	if seed != nil {
		runSeed = *seed
	}

	start := time.Now()

	// Sample in fixed-size chunks, chunk c seeded with seed+c, exactly like
	// the optimizer, so a shared seed reproduces the same cloud
	numChunks := workers.ChunkCount(samples, sampleChunkSize)
	chunkSamples := make([][]frontierSample, numChunks)

	g.pool.RunChunks(numChunks, func(chunk int) {
		//nolint:gosec // G404: Monte Carlo sampling doesn't require crypto-grade randomness
		rng := rand.New(rand.NewSource(runSeed + int64(chunk)))

		draws := sampleChunkSize
		if remaining := samples - chunk*sampleChunkSize; remaining < draws {
			draws = remaining
		}

		local := make([]frontierSample, 0, draws)
		scratch := make([]float64, n)
		for d := 0; d < draws; d++ {
			g.sampler.Draw(rng, scratch)
			m := g.calc.Compute(forecasts, scratch, riskFreeRate)

			s := frontierSample{
				volatility:  m.Volatility,
				ret:         m.ExpectedReturn,
				sharpeRatio: m.SharpeRatio,
			}
			if includeWeights {
				s.weights = append([]float64(nil), scratch...)
			}
			local = append(local, s)
		}
		chunkSamples[chunk] = local
	}, nil)

	// Flatten in chunk order so the sort input is deterministic
	all := make([]frontierSample, 0, samples)
	for _, cs := range chunkSamples {
		all = append(all, cs...)
	}

	// Ascending volatility; on equal volatility the higher return first, so
	// the envelope walk below keeps the better point of a tie
	sort.Slice(all, func(i, j int) bool {
		if all[i].volatility != all[j].volatility {
			return all[i].volatility < all[j].volatility
		}
		return all[i].ret > all[j].ret
	})

	// Upper-envelope walk: a point survives only if it adds volatility and
	// improves on every return already kept
	envelope := make([]frontierSample, 0, len(all))
	lastVolatility := math.Inf(-1)
	maxReturn := math.Inf(-1)
	for _, s := range all {
		if s.volatility <= lastVolatility || s.ret <= maxReturn {
			continue
		}
		envelope = append(envelope, s)
		lastVolatility = s.volatility
		maxReturn = s.ret
	}

	// Down-select by even stride when more points survive than requested
	selected := envelope
	if len(envelope) > points {
		step := (len(envelope) + points - 1) / points
		selected = make([]frontierSample, 0, points)
		for i := 0; i < len(envelope); i += step {
			selected = append(selected, envelope[i])
		}
	}

	result := make([]FrontierPoint, 0, len(selected))
	for _, s := range selected {
		p := FrontierPoint{
			Volatility:  s.volatility,
			Return:      s.ret,
			SharpeRatio: s.sharpeRatio,
		}
		if includeWeights {
			p.Weights = weightsToMap(forecasts, s.weights)
		}
		result = append(result, p)
	}

	g.log.Debug().
		Int("assets", n).
		Int("samples", samples).
		Int("envelope", len(envelope)).
		Int("points", len(result)).
		Int64("seed", runSeed).
		Dur("duration_ms", time.Since(start)).
		Msg("Frontier generation complete")

	return result
}

// weightsToMap converts an index-aligned weight vector to a symbol-keyed map.
func weightsToMap(forecasts []forecast.AssetForecast, weights []float64) map[string]float64 {
	if weights == nil {
		return nil
	}
	m := make(map[string]float64, len(weights))
	for i, w := range weights {
		if i < len(forecasts) {
			m[forecasts[i].Symbol] = w
		}
	}
	return m
}
