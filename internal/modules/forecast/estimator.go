package forecast

import (
	"time"

	"github.com/stavrou/ballast/pkg/formulas"
)

const (
	// MinEstimatorCloses is the minimum history length accepted by the
	// estimator. Shorter series produce annualized figures too unstable
	// to feed the optimizer.
	MinEstimatorCloses = 10

	estimatorWindow = 30
)

// EstimateFromHistory derives a forecast from daily closing prices when the
// forecasting service has no usable answer for a symbol. The expected return
// is an EMA-smoothed annualized mean of log returns and the volatility a
// rolling annualized standard deviation, both over the trailing window.
//
// Returns false when the series is too short or degenerate.
func EstimateFromHistory(symbol string, closes []float64) (AssetForecast, bool) {
	if len(closes) < MinEstimatorCloses {
		return AssetForecast{}, false
	}

	currentPrice := closes[len(closes)-1]
	if currentPrice <= 0 {
		return AssetForecast{}, false
	}

	window := estimatorWindow
	if maxWindow := len(closes) - 1; window > maxWindow {
		window = maxWindow
	}

	annualizedReturn := formulas.AnnualizedReturn(closes, window)
	annualizedVol := formulas.AnnualizedVolatility(closes, window)
	if annualizedReturn == nil || annualizedVol == nil {
		return AssetForecast{}, false
	}

	return AssetForecast{
		Symbol:         symbol,
		CurrentPrice:   currentPrice,
		ExpectedReturn: *annualizedReturn,
		Volatility:     *annualizedVol,
		Available:      true,
		Source:         SourceHistory,
		FetchedAt:      time.Now().UTC(),
	}, true
}
