package events

import (
	"encoding/json"
	"time"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// ForecastsRefreshedData contains data for ForecastsRefreshed events
type ForecastsRefreshedData struct {
	Requested int      `json:"requested"`
	Fetched   int      `json:"fetched"`
	Failed    int      `json:"failed"`
	Symbols   []string `json:"symbols,omitempty"`
}

// EventType returns the event type for ForecastsRefreshedData
func (d *ForecastsRefreshedData) EventType() EventType {
	return ForecastsRefreshed
}

// OptimizationCompletedData contains data for OptimizationCompleted events
type OptimizationCompletedData struct {
	ResultID       string  `json:"result_id"`
	Assets         int     `json:"assets"`
	Iterations     int     `json:"iterations"`
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	Source         string  `json:"source,omitempty"`
}

// EventType returns the event type for OptimizationCompletedData
func (d *OptimizationCompletedData) EventType() EventType {
	return OptimizationCompleted
}

// RebalancePlannedData contains data for RebalancePlanned events
type RebalancePlannedData struct {
	PlanID         string  `json:"plan_id"`
	PortfolioValue float64 `json:"portfolio_value"`
	Positions      int     `json:"positions"`
}

// EventType returns the event type for RebalancePlannedData
func (d *RebalancePlannedData) EventType() EventType {
	return RebalancePlanned
}

// AllocationTargetsChangedData contains data for AllocationTargetsChanged events
type AllocationTargetsChangedData struct {
	SetName string `json:"set_name"`
	Count   int    `json:"count,omitempty"`
}

// EventType returns the event type for AllocationTargetsChangedData
func (d *AllocationTargetsChangedData) EventType() EventType {
	return AllocationTargetsChanged
}

// SettingsChangedData contains data for SettingsChanged events
type SettingsChangedData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// EventType returns the event type for SettingsChangedData
func (d *SettingsChangedData) EventType() EventType {
	return SettingsChanged
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Bucket   string  `json:"bucket"`
	Objects  int     `json:"objects"`
	Bytes    int64   `json:"bytes"`
	Duration float64 `json:"duration,omitempty"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// JobProgressInfo contains progress information for a job
type JobProgressInfo struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`

	// Phase identifies the current high-level operation (e.g., "fetching",
	// "sampling", "persisting")
	Phase string `json:"phase,omitempty"`
}

// JobStatusData contains data for job lifecycle events
type JobStatusData struct {
	JobID       string                 `json:"job_id"`
	JobType     string                 `json:"job_type"`
	Status      string                 `json:"status"` // "started", "progress", "completed", "failed"
	Description string                 `json:"description"`
	Progress    *JobProgressInfo       `json:"progress,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Duration    float64                `json:"duration,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// EventType returns the event type for JobStatusData
// Note: The actual event type is determined by the Status field
func (d *JobStatusData) EventType() EventType {
	switch d.Status {
	case "started":
		return JobStarted
	case "progress":
		return JobProgress
	case "completed":
		return JobCompleted
	case "failed":
		return JobFailed
	default:
		return JobStarted
	}
}

// EventWithData represents an event with typed data
type EventWithData struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}

// MarshalJSON customizes JSON serialization for EventWithData
func (e *EventWithData) MarshalJSON() ([]byte, error) {
	type Alias EventWithData
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	// Marshal the data separately
	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}

// UnmarshalJSON customizes JSON deserialization for EventWithData
func (e *EventWithData) UnmarshalJSON(data []byte) error {
	type Alias EventWithData
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	// Unmarshal data based on event type
	if len(aux.Data) > 0 {
		var eventData EventData
		switch aux.Type {
		case ForecastsRefreshed:
			eventData = &ForecastsRefreshedData{}
		case OptimizationCompleted:
			eventData = &OptimizationCompletedData{}
		case RebalancePlanned:
			eventData = &RebalancePlannedData{}
		case AllocationTargetsChanged:
			eventData = &AllocationTargetsChangedData{}
		case SettingsChanged:
			eventData = &SettingsChangedData{}
		case BackupCompleted:
			eventData = &BackupCompletedData{}
		case ErrorOccurred:
			eventData = &ErrorEventData{}
		case JobStarted, JobProgress, JobCompleted, JobFailed:
			eventData = &JobStatusData{}
		default:
			// For unknown types, fall back to a raw map
			eventData = &GenericEventData{Type: aux.Type}
		}

		if eventData != nil {
			if err := json.Unmarshal(aux.Data, eventData); err != nil {
				return err
			}
			e.Data = eventData
		}
	}

	return nil
}

// GenericEventData is a fallback for events that don't have a specific type
type GenericEventData struct {
	Type EventType              `json:"-"`
	Data map[string]interface{} `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}

// UnmarshalJSON customizes JSON deserialization for GenericEventData
func (d *GenericEventData) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.Data)
}
