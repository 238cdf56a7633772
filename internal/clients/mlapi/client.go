// Package mlapi is an HTTP client for the Portfolio ML API, the external
// service that runs LSTM price predictions and GARCH volatility forecasts.
package mlapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/pkg/formulas"
)

// Client calls the Portfolio ML API batch endpoints.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new ML API client. baseURL is the service root, e.g.
// "http://localhost:8001/api/v1".
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second, // model inference can take time
		},
		log: log.With().Str("client", "mlapi").Logger(),
	}
}

// PredictBatch requests price predictions for every stock in one call.
//
// Per-symbol failures come back as entries with Err set; the call itself
// fails only on transport or protocol errors. Batch results are aligned to
// the request by position because the service's error entries carry no
// symbol.
func (c *Client) PredictBatch(stocks []StockHistory, maxWorkers int) (map[string]Prediction, BatchSummary, error) {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}

	req := lstmBatchRequest{
		Stocks:     make([]lstmStockRequest, 0, len(stocks)),
		MaxWorkers: maxWorkers,
	}
	for _, s := range stocks {
		days := s.PredictionDays
		if days <= 0 {
			days = DefaultPredictionDays
		}

		data := make([]map[string]float64, 0, len(s.Closes))
		for _, price := range s.Closes {
			data = append(data, map[string]float64{"Day Price": price})
		}

		req.Stocks = append(req.Stocks, lstmStockRequest{
			Symbol:         s.Symbol,
			Data:           data,
			PredictionDays: days,
		})
	}

	var resp batchResponse
	if err := c.post("/predict/lstm/batch", req, &resp); err != nil {
		return nil, BatchSummary{}, err
	}

	predictions := make(map[string]Prediction, len(stocks))
	for i, raw := range resp.Results {
		if i >= len(stocks) {
			break
		}
		symbol := stocks[i].Symbol

		var result lstmResult
		if err := json.Unmarshal(raw, &result); err != nil {
			msg := fmt.Sprintf("unparseable result: %v", err)
			predictions[symbol] = Prediction{Symbol: symbol, Err: &msg}
			continue
		}

		if result.Prediction == nil {
			msg := "prediction failed"
			if result.Detail != nil && *result.Detail != "" {
				msg = *result.Detail
			} else if result.Error != nil && *result.Error != "" {
				msg = *result.Error
			}
			predictions[symbol] = Prediction{Symbol: symbol, Err: &msg}
			continue
		}

		predictions[symbol] = Prediction{
			Symbol:         symbol,
			PredictedPrice: result.Prediction,
			CurrentPrice:   result.CurrentPrice,
		}
	}

	summary := BatchSummary{
		Total:         resp.Total,
		Successful:    resp.Successful,
		Failed:        resp.Failed,
		ExecutionTime: resp.ExecutionTime,
	}

	c.log.Debug().
		Int("total", summary.Total).
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Msg("Prediction batch complete")

	return predictions, summary, nil
}

// VolatilityBatch requests GARCH volatility forecasts for every stock in
// one call. The close series are converted to log returns here; series too
// short or containing non-positive closes fail per symbol without a
// round-trip for that entry's validity.
func (c *Client) VolatilityBatch(stocks []StockHistory, maxWorkers int) (map[string]Volatility, BatchSummary, error) {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}

	req := garchBatchRequest{
		Stocks:     make([]garchStockRequest, 0, len(stocks)),
		MaxWorkers: maxWorkers,
	}
	sent := make([]string, 0, len(stocks))
	volatilities := make(map[string]Volatility, len(stocks))

	for _, s := range stocks {
		returns := formulas.LogReturns(s.Closes)
		if returns == nil {
			msg := "cannot derive log returns from close series"
			volatilities[s.Symbol] = Volatility{Symbol: s.Symbol, Err: &msg}
			continue
		}

		req.Stocks = append(req.Stocks, garchStockRequest{
			Symbol:     s.Symbol,
			LogReturns: returns,
			TrainFrac:  DefaultTrainFrac,
		})
		sent = append(sent, s.Symbol)
	}

	summary := BatchSummary{Total: len(stocks), Failed: len(stocks) - len(sent)}
	if len(sent) == 0 {
		return volatilities, summary, nil
	}

	var resp batchResponse
	if err := c.post("/predict/garch/batch", req, &resp); err != nil {
		return nil, BatchSummary{}, err
	}

	for i, raw := range resp.Results {
		if i >= len(sent) {
			break
		}
		symbol := sent[i]

		var result garchResult
		if err := json.Unmarshal(raw, &result); err != nil {
			msg := fmt.Sprintf("unparseable result: %v", err)
			volatilities[symbol] = Volatility{Symbol: symbol, Err: &msg}
			continue
		}

		if result.VolatilityAnnualized == nil {
			msg := "volatility forecast failed"
			if result.Detail != nil && *result.Detail != "" {
				msg = *result.Detail
			} else if result.Error != nil && *result.Error != "" {
				msg = *result.Error
			}
			volatilities[symbol] = Volatility{Symbol: symbol, Err: &msg}
			continue
		}

		volatilities[symbol] = Volatility{
			Symbol:     symbol,
			Annualized: result.VolatilityAnnualized,
			Variance:   result.ForecastedVariance,
		}
	}

	summary.Successful = resp.Successful
	summary.Failed += resp.Failed
	summary.ExecutionTime = resp.ExecutionTime

	c.log.Debug().
		Int("total", summary.Total).
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Msg("Volatility batch complete")

	return volatilities, summary, nil
}

// post sends a POST request and decodes the JSON response into out.
func (c *Client) post(endpoint string, request interface{}, out interface{}) error {
	url := c.baseURL + endpoint

	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	c.log.Debug().
		Str("endpoint", endpoint).
		Msg("Calling ML API")

	httpReq, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("ML API returned status %d: %s", httpResp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
