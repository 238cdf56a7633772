// Package allocation stores named target weight sets in the config database.
// A set maps symbols to target weights and can be resolved by name at the
// rebalance boundary.
package allocation

import "time"

// Target is one stored (set, symbol, weight) row.
type Target struct {
	ID        int64     `json:"id"`
	SetName   string    `json:"set_name"`
	Symbol    string    `json:"symbol"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetSummary describes one stored set for listings.
type SetSummary struct {
	Name    string  `json:"name"`
	Symbols int     `json:"symbols"`
	Sum     float64 `json:"sum"`
}
