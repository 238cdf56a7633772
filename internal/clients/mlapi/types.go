package mlapi

import "encoding/json"

// Request defaults matching the service's own.
const (
	DefaultPredictionDays = 60
	DefaultTrainFrac      = 0.8
	DefaultMaxWorkers     = 4
)

// StockHistory is the per-symbol input for batch calls: the daily close
// series the models run on.
type StockHistory struct {
	Symbol string
	Closes []float64

	// PredictionDays overrides the LSTM lookback window when positive.
	PredictionDays int
}

// Prediction is the per-symbol outcome of a price prediction. Exactly one
// of PredictedPrice and Err is set.
type Prediction struct {
	Symbol         string
	PredictedPrice *float64
	CurrentPrice   *float64
	Err            *string
}

// Volatility is the per-symbol outcome of a volatility forecast. Exactly
// one of Annualized and Err is set.
type Volatility struct {
	Symbol     string
	Annualized *float64
	Variance   *float64
	Err        *string
}

// BatchSummary mirrors the service's batch bookkeeping.
type BatchSummary struct {
	Total         int     `json:"total"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	ExecutionTime float64 `json:"execution_time"`
}

// Wire types (mirror the Portfolio ML API schemas)

type lstmStockRequest struct {
	Symbol         string               `json:"symbol"`
	Data           []map[string]float64 `json:"data"`
	PredictionDays int                  `json:"prediction_days"`
}

type lstmBatchRequest struct {
	Stocks     []lstmStockRequest `json:"stocks"`
	MaxWorkers int                `json:"max_workers"`
}

type garchStockRequest struct {
	Symbol     string    `json:"symbol"`
	LogReturns []float64 `json:"log_returns"`
	TrainFrac  float64   `json:"train_frac"`
}

type garchBatchRequest struct {
	Stocks     []garchStockRequest `json:"stocks"`
	MaxWorkers int                 `json:"max_workers"`
}

// batchResponse is the common batch envelope. Results are kept raw because
// each entry is either a model response or an error object; error entries
// carry no symbol and are matched to the request by position.
type batchResponse struct {
	Results       []json.RawMessage `json:"results"`
	Total         int               `json:"total"`
	Successful    int               `json:"successful"`
	Failed        int               `json:"failed"`
	ExecutionTime float64           `json:"execution_time"`
}

type lstmResult struct {
	Symbol       string   `json:"symbol"`
	Prediction   *float64 `json:"prediction"`
	CurrentPrice *float64 `json:"current_price"`
	Horizon      int      `json:"horizon"`
	Error        *string  `json:"error"`
	Detail       *string  `json:"detail"`
}

type garchResult struct {
	Symbol               string   `json:"symbol"`
	ForecastedVariance   *float64 `json:"forecasted_variance"`
	VolatilityAnnualized *float64 `json:"volatility_annualized"`
	Error                *string  `json:"error"`
	Detail               *string  `json:"detail"`
}
