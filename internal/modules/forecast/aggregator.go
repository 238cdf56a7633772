package forecast

import (
	"sort"
	"strings"
	"time"
)

// Aggregate merges per-symbol raw forecast results with current prices into
// the forecast set used for optimization. A symbol yields a forecast only if
// both the price prediction and the volatility prediction succeeded and a
// positive current price is known; every other symbol is reported in the
// returned error map with a reason. One symbol's failure never affects the
// rest of the batch.
//
// Forecasts are returned sorted by symbol so batch output is deterministic.
func Aggregate(rawResults map[string]RawForecast, currentPrices map[string]float64) ([]AssetForecast, map[string]string) {
	forecasts := make([]AssetForecast, 0, len(rawResults))
	errors := make(map[string]string)

	symbols := make([]string, 0, len(rawResults))
	for symbol := range rawResults {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	now := time.Now().UTC()

	for _, symbol := range symbols {
		raw := rawResults[symbol]

		var reasons []string

		if raw.PredictedPrice == nil {
			if raw.PredictionError != nil && *raw.PredictionError != "" {
				reasons = append(reasons, *raw.PredictionError)
			} else {
				reasons = append(reasons, "no price prediction returned")
			}
		}

		if raw.AnnualizedVolatility == nil {
			if raw.VolatilityError != nil && *raw.VolatilityError != "" {
				reasons = append(reasons, *raw.VolatilityError)
			} else {
				reasons = append(reasons, "no volatility prediction returned")
			}
		} else if *raw.AnnualizedVolatility < 0 {
			reasons = append(reasons, "negative volatility prediction")
		}

		currentPrice, ok := currentPrices[symbol]
		if !ok {
			reasons = append(reasons, "no current price")
		} else if currentPrice <= 0 {
			reasons = append(reasons, "non-positive current price")
		}

		if len(reasons) > 0 {
			errors[symbol] = strings.Join(reasons, "; ")
			continue
		}

		forecasts = append(forecasts, AssetForecast{
			Symbol:         symbol,
			CurrentPrice:   currentPrice,
			ExpectedReturn: (*raw.PredictedPrice - currentPrice) / currentPrice,
			Volatility:     *raw.AnnualizedVolatility,
			Available:      true,
			Source:         SourceModel,
			FetchedAt:      now,
		})
	}

	return forecasts, errors
}
