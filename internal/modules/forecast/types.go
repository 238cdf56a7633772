// Package forecast aggregates per-asset return and volatility predictions
// into the immutable forecast set consumed by the optimizer.
package forecast

import "time"

// Forecast sources.
const (
	SourceModel   = "model"   // forecasting service prediction
	SourceHistory = "history" // derived from historical closes
)

// RawForecast is the per-symbol shape returned by the forecasting service.
// Prediction fields are nil when the corresponding model failed for the
// symbol; the error fields carry the service's reason.
type RawForecast struct {
	Symbol               string   `json:"symbol"`
	CurrentPrice         float64  `json:"current_price"`
	PredictedPrice       *float64 `json:"predicted_price"`
	PredictionError      *string  `json:"prediction_error"`
	AnnualizedVolatility *float64 `json:"annualized_volatility"`
	VolatilityError      *string  `json:"volatility_error"`
}

// AssetForecast is an immutable per-asset forecast. ExpectedReturn is the
// simple return implied by the predicted price over the current price.
type AssetForecast struct {
	Symbol         string    `json:"symbol"`
	CurrentPrice   float64   `json:"current_price"`
	ExpectedReturn float64   `json:"expected_return"`
	Volatility     float64   `json:"volatility"`
	Available      bool      `json:"available"`
	Source         string    `json:"source,omitempty"`
	FetchedAt      time.Time `json:"fetched_at,omitempty"`
}
