package optimization

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/utils"
)

// optimizationColumns is the list of columns for the optimization_results
// table. Kept explicit so scans stay aligned when the schema grows.
const optimizationColumns = `id, weights, expected_return, volatility, sharpe_ratio, source, created_at`

// Repository persists optimizer runs to the portfolio database.
//
// The table is an append-only audit trail: results are inserted once and
// never updated or deleted.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates an optimization result repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "optimization").Logger(),
	}
}

// Save inserts one optimization result.
func (r *Repository) Save(result OptimizationResult) error {
	weightsJSON, err := json.Marshal(result.Weights)
	if err != nil {
		return fmt.Errorf("failed to serialize weights: %w", err)
	}

	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO optimization_results
		(id, weights, expected_return, volatility, sharpe_ratio, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		result.PortfolioID,
		string(weightsJSON),
		result.ExpectedReturn,
		result.Volatility,
		result.SharpeRatio,
		result.Source,
		createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save optimization result: %w", err)
	}

	r.log.Info().
		Str("id", result.PortfolioID).
		Int("assets", len(result.Weights)).
		Float64("sharpe_ratio", result.SharpeRatio).
		Msg("Optimization result recorded")

	return nil
}

// GetByID retrieves one result, or nil when no such record exists.
func (r *Repository) GetByID(id string) (*OptimizationResult, error) {
	query := "SELECT " + optimizationColumns + " FROM optimization_results WHERE id = ?"

	row := r.db.QueryRow(query, id)
	result, err := scanOptimizationResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get optimization result: %w", err)
	}

	return &result, nil
}

// GetRecent retrieves the most recent results, newest first.
func (r *Repository) GetRecent(limit int) ([]OptimizationResult, error) {
	if limit <= 0 {
		limit = 50
	}

	measure := utils.MeasureDBQuery("optimization_results_recent", r.log)

	query := `
		SELECT ` + optimizationColumns + ` FROM optimization_results
		ORDER BY created_at DESC, id
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent optimization results: %w", err)
	}
	defer rows.Close()

	var results []OptimizationResult
	for rows.Next() {
		result, err := scanOptimizationResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan optimization result: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating optimization results: %w", err)
	}

	measure(int64(len(results)))
	return results, nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOptimizationResult(s scanner) (OptimizationResult, error) {
	var (
		result      OptimizationResult
		weightsJSON string
		createdAt   int64
	)

	err := s.Scan(
		&result.PortfolioID,
		&weightsJSON,
		&result.ExpectedReturn,
		&result.Volatility,
		&result.SharpeRatio,
		&result.Source,
		&createdAt,
	)
	if err != nil {
		return OptimizationResult{}, err
	}

	if err := json.Unmarshal([]byte(weightsJSON), &result.Weights); err != nil {
		return OptimizationResult{}, fmt.Errorf("failed to parse stored weights: %w", err)
	}
	result.CreatedAt = time.Unix(createdAt, 0).UTC()

	return result, nil
}
