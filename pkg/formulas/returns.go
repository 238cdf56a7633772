// Package formulas provides indicator-style calculations over daily close series.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// TradingDaysPerYear is the annualization base for daily series.
const TradingDaysPerYear = 252

// LogReturns computes the natural-log return series for a close series.
// Returns nil when fewer than two closes are given or any close is non-positive.
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return nil
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	return returns
}

// AnnualizedReturn estimates the annualized expected return from daily closes.
// The daily log returns are smoothed with an EMA of the given length before
// annualizing, so recent observations weigh more than old ones.
//
// Returns nil if there are not enough closes for the EMA window.
func AnnualizedReturn(closes []float64, length int) *float64 {
	returns := LogReturns(closes)
	if returns == nil || len(returns) < length {
		return nil
	}

	ema := talib.Ema(returns, length)
	if len(ema) == 0 {
		return nil
	}

	last := ema[len(ema)-1]
	if isNaN(last) {
		return nil
	}

	result := last * TradingDaysPerYear
	return &result
}

// isNaN checks if a float64 is NaN
func isNaN(f float64) bool {
	return f != f
}
