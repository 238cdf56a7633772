package forecast

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/stavrou/ballast/internal/clients/mlapi"
	"github.com/stavrou/ballast/internal/events"
)

const (
	// batchChunkSize is the number of symbols sent per ML API batch call.
	// Smaller chunks keep one slow model run from stalling the whole
	// refresh and bound the request payload size.
	batchChunkSize = 8

	// maxConcurrentBatches bounds the fan-out against the ML API.
	maxConcurrentBatches = 4
)

// MLClient is the slice of the ML API client the service uses.
type MLClient interface {
	PredictBatch(stocks []mlapi.StockHistory, maxWorkers int) (map[string]mlapi.Prediction, mlapi.BatchSummary, error)
	VolatilityBatch(stocks []mlapi.StockHistory, maxWorkers int) (map[string]mlapi.Volatility, mlapi.BatchSummary, error)
}

// ServiceConfig holds the forecast service's tunables.
type ServiceConfig struct {
	// TTL is the snapshot cache lifetime.
	TTL time.Duration

	// MaxWorkers is forwarded to the ML API's batch endpoints.
	MaxWorkers int

	// HistoryFallback derives a forecast from the close series when the
	// forecasting service has no usable answer for a symbol.
	HistoryFallback bool
}

// RefreshRequest asks for fresh forecasts for a set of symbols. Closes may
// carry the daily close series per symbol; symbols without supplied closes
// reuse the series cached from their last refresh.
type RefreshRequest struct {
	Symbols []string             `json:"symbols"`
	Closes  map[string][]float64 `json:"closes,omitempty"`
}

// RefreshSummary is the derived batch bookkeeping.
type RefreshSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// RefreshResult is the outcome of one refresh: validated forecasts, the
// per-symbol failures, and summary counts.
type RefreshResult struct {
	Forecasts []AssetForecast   `json:"forecasts"`
	Errors    map[string]string `json:"errors,omitempty"`
	Summary   RefreshSummary    `json:"summary"`
}

// Service fetches forecasts from the ML API, validates them, and maintains
// the snapshot cache. It is the engine's implementation of the optimizer's
// ForecastProvider.
type Service struct {
	ml   MLClient
	repo *Repository
	bus  *events.Bus
	cfg  ServiceConfig

	// flight collapses concurrent refreshes of the same symbol set into
	// one ML API round-trip.
	flight singleflight.Group

	log zerolog.Logger
}

// NewService creates a forecast service.
func NewService(ml MLClient, repo *Repository, bus *events.Bus, cfg ServiceConfig, log zerolog.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Service{
		ml:   ml,
		repo: repo,
		bus:  bus,
		cfg:  cfg,
		log:  log.With().Str("service", "forecast").Logger(),
	}
}

// Refresh fetches forecasts for the requested symbols and caches the
// results. Per-symbol failures are reported in the result, never as an
// error; the returned error covers invalid requests only.
//
// Concurrent calls for the same symbol set share one round-trip.
func (s *Service) Refresh(req RefreshRequest) (*RefreshResult, error) {
	symbols := dedupeSymbols(req.Symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols requested")
	}

	key := strings.Join(symbols, ",")
	result, err, shared := s.flight.Do(key, func() (interface{}, error) {
		return s.refresh(symbols, req.Closes), nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debug().Str("symbols", key).Msg("Refresh deduplicated against concurrent call")
	}

	return result.(*RefreshResult), nil
}

func (s *Service) refresh(symbols []string, closes map[string][]float64) *RefreshResult {
	errs := make(map[string]string)

	// Resolve a close series per symbol: caller-supplied first, then the
	// series cached from the last refresh.
	histories := make([]mlapi.StockHistory, 0, len(symbols))
	seriesBySymbol := make(map[string][]float64, len(symbols))
	for _, symbol := range symbols {
		series := closes[symbol]
		if len(series) == 0 {
			snapshot, err := s.repo.Get(symbol)
			if err != nil {
				s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read cached snapshot")
			} else if snapshot != nil {
				series = snapshot.Closes
			}
		}
		if len(series) == 0 {
			errs[symbol] = "no price history available"
			continue
		}

		seriesBySymbol[symbol] = series
		histories = append(histories, mlapi.StockHistory{Symbol: symbol, Closes: series})
	}

	predictions, volatilities := s.fetchBatches(histories)

	rawResults := make(map[string]RawForecast, len(histories))
	currentPrices := make(map[string]float64, len(histories))
	for _, h := range histories {
		raw := RawForecast{Symbol: h.Symbol}
		currentPrices[h.Symbol] = h.Closes[len(h.Closes)-1]

		if p, ok := predictions[h.Symbol]; ok {
			raw.PredictedPrice = p.PredictedPrice
			raw.PredictionError = p.Err
			if p.CurrentPrice != nil && *p.CurrentPrice > 0 {
				currentPrices[h.Symbol] = *p.CurrentPrice
			}
		}
		if v, ok := volatilities[h.Symbol]; ok {
			raw.AnnualizedVolatility = v.Annualized
			raw.VolatilityError = v.Err
		}

		raw.CurrentPrice = currentPrices[h.Symbol]
		rawResults[h.Symbol] = raw
	}

	forecasts, aggErrs := Aggregate(rawResults, currentPrices)
	for symbol, reason := range aggErrs {
		errs[symbol] = reason
	}

	if s.cfg.HistoryFallback {
		for symbol := range aggErrs {
			series := seriesBySymbol[symbol]
			estimated, ok := EstimateFromHistory(symbol, series)
			if !ok {
				continue
			}
			s.log.Info().Str("symbol", symbol).Msg("Using history-based forecast estimate")
			forecasts = append(forecasts, estimated)
			delete(errs, symbol)
		}
		sort.Slice(forecasts, func(i, j int) bool { return forecasts[i].Symbol < forecasts[j].Symbol })
	}

	for _, f := range forecasts {
		if err := s.repo.Store(f, seriesBySymbol[f.Symbol], s.cfg.TTL); err != nil {
			s.log.Warn().Err(err).Str("symbol", f.Symbol).Msg("Failed to cache forecast snapshot")
		}
	}

	if s.bus != nil {
		s.bus.EmitTyped("forecast", &events.ForecastsRefreshedData{
			Requested: len(symbols),
			Fetched:   len(forecasts),
			Failed:    len(errs),
			Symbols:   symbols,
		})
	}

	if len(errs) == 0 {
		errs = nil
	}

	return &RefreshResult{
		Forecasts: forecasts,
		Errors:    errs,
		Summary: RefreshSummary{
			Total:      len(symbols),
			Successful: len(forecasts),
			Failed:     len(symbols) - len(forecasts),
		},
	}
}

// fetchBatches fans the histories out to the ML API in bounded concurrent
// chunks. A failed chunk marks only its own symbols as failed; other chunks
// proceed independently.
func (s *Service) fetchBatches(histories []mlapi.StockHistory) (map[string]mlapi.Prediction, map[string]mlapi.Volatility) {
	predictions := make(map[string]mlapi.Prediction, len(histories))
	volatilities := make(map[string]mlapi.Volatility, len(histories))
	if len(histories) == 0 {
		return predictions, volatilities
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(maxConcurrentBatches)

	for start := 0; start < len(histories); start += batchChunkSize {
		end := start + batchChunkSize
		if end > len(histories) {
			end = len(histories)
		}
		chunk := histories[start:end]

		g.Go(func() error {
			preds, _, predErr := s.ml.PredictBatch(chunk, s.cfg.MaxWorkers)
			vols, _, volErr := s.ml.VolatilityBatch(chunk, s.cfg.MaxWorkers)

			mu.Lock()
			defer mu.Unlock()

			for _, h := range chunk {
				if predErr != nil {
					msg := fmt.Sprintf("prediction request failed: %v", predErr)
					predictions[h.Symbol] = mlapi.Prediction{Symbol: h.Symbol, Err: &msg}
				} else if p, ok := preds[h.Symbol]; ok {
					predictions[h.Symbol] = p
				}
				if volErr != nil {
					msg := fmt.Sprintf("volatility request failed: %v", volErr)
					volatilities[h.Symbol] = mlapi.Volatility{Symbol: h.Symbol, Err: &msg}
				} else if v, ok := vols[h.Symbol]; ok {
					volatilities[h.Symbol] = v
				}
			}

			// Chunk failures are per-symbol data, never a group error.
			return nil
		})
	}

	_ = g.Wait()
	return predictions, volatilities
}

// AvailableForecasts returns usable cached forecasts for the given symbols,
// or for every cached symbol when symbols is empty. Stale and missing
// entries are skipped: the optimizer only sees validated, fresh data.
func (s *Service) AvailableForecasts(symbols []string) ([]AssetForecast, error) {
	if len(symbols) == 0 {
		snapshots, err := s.repo.GetAll()
		if err != nil {
			return nil, err
		}

		var forecasts []AssetForecast
		for _, snapshot := range snapshots {
			if snapshot.Stale || !snapshot.Forecast.Available {
				continue
			}
			forecasts = append(forecasts, snapshot.Forecast)
		}
		return forecasts, nil
	}

	wanted := dedupeSymbols(symbols)
	var forecasts []AssetForecast
	for _, symbol := range wanted {
		snapshot, err := s.repo.GetFresh(symbol)
		if err != nil {
			return nil, err
		}
		if snapshot == nil || !snapshot.Forecast.Available {
			continue
		}
		forecasts = append(forecasts, snapshot.Forecast)
	}

	return forecasts, nil
}

// Snapshots returns every cached snapshot, stale entries flagged.
func (s *Service) Snapshots() ([]Snapshot, error) {
	return s.repo.GetAll()
}

// Snapshot returns one cached snapshot, or nil when the symbol is unknown.
func (s *Service) Snapshot(symbol string) (*Snapshot, error) {
	return s.repo.Get(symbol)
}

// CachedSymbols returns every cached symbol, used by the scheduled refresh
// when no watchlist is configured.
func (s *Service) CachedSymbols() ([]string, error) {
	return s.repo.Symbols()
}

// EvictExpired removes snapshots past their TTL.
func (s *Service) EvictExpired() (int64, error) {
	return s.repo.DeleteExpired()
}

// dedupeSymbols returns the unique symbols sorted alphabetically.
func dedupeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	var result []string
	for _, symbol := range symbols {
		trimmed := strings.TrimSpace(symbol)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		result = append(result, trimmed)
	}
	sort.Strings(result)
	return result
}
