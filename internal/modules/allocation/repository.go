package allocation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/database"
)

// Repository handles allocation target database operations.
// Database: config.db (allocation_targets table).
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new allocation repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "allocation").Logger(),
	}
}

// GetSet returns the weights of a named set keyed by symbol, or nil when no
// such set exists.
func (r *Repository) GetSet(name string) (map[string]float64, error) {
	query := "SELECT symbol, weight FROM allocation_targets WHERE set_name = ?"

	rows, err := r.db.Query(query, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation targets: %w", err)
	}
	defer rows.Close()

	var weights map[string]float64
	for rows.Next() {
		var symbol string
		var weight float64
		if err := rows.Scan(&symbol, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan allocation target: %w", err)
		}
		if weights == nil {
			weights = make(map[string]float64)
		}
		weights[symbol] = weight
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation targets: %w", err)
	}

	return weights, nil
}

// GetTargets returns the rows of a named set ordered by symbol.
func (r *Repository) GetTargets(name string) ([]Target, error) {
	query := `
		SELECT id, set_name, symbol, weight, created_at, updated_at
		FROM allocation_targets
		WHERE set_name = ?
		ORDER BY symbol
	`

	rows, err := r.db.Query(query, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation targets: %w", err)
	}
	defer rows.Close()

	var targets []Target
	for rows.Next() {
		var t Target
		var createdAt, updatedAt int64
		if err := rows.Scan(&t.ID, &t.SetName, &t.Symbol, &t.Weight, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan allocation target: %w", err)
		}
		t.CreatedAt = time.Unix(createdAt, 0).UTC()
		t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		targets = append(targets, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation targets: %w", err)
	}

	return targets, nil
}

// ListSets returns a summary of every stored set, ordered by name.
func (r *Repository) ListSets() ([]SetSummary, error) {
	query := `
		SELECT set_name, COUNT(*), SUM(weight)
		FROM allocation_targets
		GROUP BY set_name
		ORDER BY set_name
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocation sets: %w", err)
	}
	defer rows.Close()

	var sets []SetSummary
	for rows.Next() {
		var s SetSummary
		if err := rows.Scan(&s.Name, &s.Symbols, &s.Sum); err != nil {
			return nil, fmt.Errorf("failed to scan allocation set summary: %w", err)
		}
		sets = append(sets, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation sets: %w", err)
	}

	return sets, nil
}

// ReplaceSet atomically replaces the contents of a named set. An empty
// weights map deletes the set.
func (r *Repository) ReplaceSet(name string, weights map[string]float64) error {
	now := time.Now().Unix()

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM allocation_targets WHERE set_name = ?", name); err != nil {
			return fmt.Errorf("failed to clear allocation set: %w", err)
		}

		for symbol, weight := range weights {
			_, err := tx.Exec(`
				INSERT INTO allocation_targets (set_name, symbol, weight, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?)
			`, name, symbol, weight, now, now)
			if err != nil {
				return fmt.Errorf("failed to insert allocation target %s: %w", symbol, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Str("set", name).
		Int("symbols", len(weights)).
		Msg("Allocation set replaced")

	return nil
}

// DeleteSet removes a named set. Returns the number of rows deleted.
func (r *Repository) DeleteSet(name string) (int64, error) {
	result, err := r.db.Exec("DELETE FROM allocation_targets WHERE set_name = ?", name)
	if err != nil {
		return 0, fmt.Errorf("failed to delete allocation set: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
