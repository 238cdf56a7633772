package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// AnnualizedVolatility estimates annualized volatility from daily closes as the
// rolling standard deviation of daily log returns scaled by sqrt(252).
//
// Args:
//
//	closes: daily closing prices, oldest first
//	length: rolling window size (typically 20 or 30)
//
// Returns nil if there are not enough closes for the window.
func AnnualizedVolatility(closes []float64, length int) *float64 {
	returns := LogReturns(closes)
	if returns == nil || len(returns) < length {
		return nil
	}

	stddev := talib.StdDev(returns, length, 1.0)
	if len(stddev) == 0 {
		return nil
	}

	last := stddev[len(stddev)-1]
	if isNaN(last) || last < 0 {
		return nil
	}

	result := last * math.Sqrt(TradingDaysPerYear)
	return &result
}
