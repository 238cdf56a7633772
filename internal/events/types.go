// Package events provides event management functionality.
package events

// EventType represents different event types
type EventType string

const (
	ErrorOccurred EventType = "ERROR_OCCURRED"

	// Job lifecycle events
	JobStarted   EventType = "JOB_STARTED"
	JobProgress  EventType = "JOB_PROGRESS"
	JobCompleted EventType = "JOB_COMPLETED"
	JobFailed    EventType = "JOB_FAILED"

	// Domain events
	ForecastsRefreshed       EventType = "FORECASTS_REFRESHED"
	OptimizationCompleted    EventType = "OPTIMIZATION_COMPLETED"
	RebalancePlanned         EventType = "REBALANCE_PLANNED"
	AllocationTargetsChanged EventType = "ALLOCATION_TARGETS_CHANGED"
	SettingsChanged          EventType = "SETTINGS_CHANGED"
	BackupCompleted          EventType = "BACKUP_COMPLETED"
)

// AllEventTypes lists every event type published on the bus. Used by
// consumers that fan events out wholesale, like the websocket stream.
func AllEventTypes() []EventType {
	return []EventType{
		ErrorOccurred,
		JobStarted,
		JobProgress,
		JobCompleted,
		JobFailed,
		ForecastsRefreshed,
		OptimizationCompleted,
		RebalancePlanned,
		AllocationTargetsChanged,
		SettingsChanged,
		BackupCompleted,
	}
}
