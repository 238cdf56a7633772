package forecast

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is one cached forecast with its bookkeeping. Closes carries the
// price history the forecast was computed from, so scheduled refreshes can
// re-run the models without a market data source.
type Snapshot struct {
	Forecast  AssetForecast `json:"forecast"`
	Closes    []float64     `json:"-"`
	FetchedAt time.Time     `json:"fetched_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	Stale     bool          `json:"stale"`
}

// snapshotPayload is the msgpack blob stored per symbol.
type snapshotPayload struct {
	Forecast AssetForecast `msgpack:"forecast"`
	Closes   []float64     `msgpack:"closes,omitempty"`
}

// Repository caches forecast snapshots in the cache database.
// Entries expire by TTL; stale reads are allowed as a degraded-mode
// fallback when the forecasting service is unavailable.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a forecast snapshot repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "forecast").Logger(),
	}
}

// Store upserts one snapshot with expiration now + ttl.
func (r *Repository) Store(f AssetForecast, closes []float64, ttl time.Duration) error {
	payload, err := msgpack.Marshal(snapshotPayload{Forecast: f, Closes: closes})
	if err != nil {
		return fmt.Errorf("failed to encode forecast snapshot: %w", err)
	}

	fetchedAt := f.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	expiresAt := fetchedAt.Add(ttl)

	query := `
		INSERT OR REPLACE INTO forecast_snapshots
		(symbol, payload, source, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, f.Symbol, payload, f.Source, fetchedAt.Unix(), expiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to store forecast snapshot: %w", err)
	}

	return nil
}

// GetFresh returns the snapshot for a symbol only if it has not expired.
// Returns nil when the symbol is unknown or the entry is stale.
func (r *Repository) GetFresh(symbol string) (*Snapshot, error) {
	return r.get(symbol, true)
}

// Get returns the snapshot for a symbol regardless of expiration, with
// Stale set when past its TTL. Stale data is better than no data when the
// forecasting service is down.
func (r *Repository) Get(symbol string) (*Snapshot, error) {
	return r.get(symbol, false)
}

func (r *Repository) get(symbol string, freshOnly bool) (*Snapshot, error) {
	query := `
		SELECT payload, fetched_at, expires_at
		FROM forecast_snapshots
		WHERE symbol = ?
	`
	args := []interface{}{symbol}
	if freshOnly {
		query += " AND expires_at > ?"
		args = append(args, time.Now().Unix())
	}

	var (
		payload   []byte
		fetchedAt int64
		expiresAt int64
	)
	err := r.db.QueryRow(query, args...).Scan(&payload, &fetchedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get forecast snapshot: %w", err)
	}

	return decodeSnapshot(payload, fetchedAt, expiresAt)
}

// GetAll returns every cached snapshot ordered by symbol, stale entries
// included and flagged.
func (r *Repository) GetAll() ([]Snapshot, error) {
	query := `
		SELECT payload, fetched_at, expires_at
		FROM forecast_snapshots
		ORDER BY symbol
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var (
			payload   []byte
			fetchedAt int64
			expiresAt int64
		)
		if err := rows.Scan(&payload, &fetchedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan forecast snapshot: %w", err)
		}

		snapshot, err := decodeSnapshot(payload, fetchedAt, expiresAt)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forecast snapshots: %w", err)
	}

	return snapshots, nil
}

// Symbols returns every cached symbol ordered alphabetically, stale entries
// included.
func (r *Repository) Symbols() ([]string, error) {
	rows, err := r.db.Query("SELECT symbol FROM forecast_snapshots ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query cached symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan cached symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cached symbols: %w", err)
	}

	return symbols, nil
}

// DeleteExpired removes every snapshot past its TTL. Returns the number of
// rows deleted.
func (r *Repository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec("DELETE FROM forecast_snapshots WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired forecast snapshots: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if deleted > 0 {
		r.log.Debug().Int64("deleted", deleted).Msg("Expired forecast snapshots evicted")
	}

	return deleted, nil
}

func decodeSnapshot(payload []byte, fetchedAt, expiresAt int64) (*Snapshot, error) {
	var decoded snapshotPayload
	if err := msgpack.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode forecast snapshot: %w", err)
	}

	return &Snapshot{
		Forecast:  decoded.Forecast,
		Closes:    decoded.Closes,
		FetchedAt: time.Unix(fetchedAt, 0).UTC(),
		ExpiresAt: time.Unix(expiresAt, 0).UTC(),
		Stale:     time.Now().Unix() >= expiresAt,
	}, nil
}
