package rebalancing

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/utils"
)

// Repository persists rebalance plans to the portfolio database.
// Plans are append-only audit records, inserted once and never rewritten.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a rebalance plan repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "rebalancing").Logger(),
	}
}

// Save inserts one rebalance plan.
func (r *Repository) Save(plan RebalancePlan) error {
	allocationsJSON, err := json.Marshal(plan.Allocations)
	if err != nil {
		return fmt.Errorf("failed to serialize allocations: %w", err)
	}

	createdAt := plan.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var resultID interface{}
	if plan.ResultID != "" {
		resultID = plan.ResultID
	}

	query := `
		INSERT INTO rebalance_plans
		(id, portfolio_value, allocations, result_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		plan.PlanID,
		plan.PortfolioValue,
		string(allocationsJSON),
		resultID,
		createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save rebalance plan: %w", err)
	}

	r.log.Info().
		Str("id", plan.PlanID).
		Int("positions", len(plan.Allocations)).
		Msg("Rebalance plan recorded")

	return nil
}

// GetRecent retrieves the most recent plans, newest first.
func (r *Repository) GetRecent(limit int) ([]RebalancePlan, error) {
	if limit <= 0 {
		limit = 50
	}

	measure := utils.MeasureDBQuery("rebalance_plans_recent", r.log)

	query := `
		SELECT id, portfolio_value, allocations, result_id, created_at
		FROM rebalance_plans
		ORDER BY created_at DESC, id
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent rebalance plans: %w", err)
	}
	defer rows.Close()

	var plans []RebalancePlan
	for rows.Next() {
		var (
			plan            RebalancePlan
			allocationsJSON string
			resultID        sql.NullString
			createdAt       int64
		)

		if err := rows.Scan(&plan.PlanID, &plan.PortfolioValue, &allocationsJSON, &resultID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan rebalance plan: %w", err)
		}

		if err := json.Unmarshal([]byte(allocationsJSON), &plan.Allocations); err != nil {
			return nil, fmt.Errorf("failed to parse stored allocations: %w", err)
		}
		plan.ResultID = resultID.String
		plan.CreatedAt = time.Unix(createdAt, 0).UTC()

		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rebalance plans: %w", err)
	}

	measure(int64(len(plans)))
	return plans, nil
}
