// Truck telemetry records published by the simulator
package telemetry

import (
	"os"
	"time"
)

// Severity classifies a status event.
type Severity string

// Status event severities.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

const (
	// PerformanceWindow is the fixed length of the performance history.
	PerformanceWindow = 7
	// MaxStatusUpdates caps the status list; older events are dropped first.
	MaxStatusUpdates = 10
)

// PerformancePoint is one sample of the performance history chart.
type PerformancePoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// SubsystemHealth is one axis of the system health radar.
type SubsystemHealth struct {
	Subject string  `json:"subject"`
	Value   float64 `json:"value"`
	Max     float64 `json:"max"`
}

// MaintenanceItem is one maintenance category bar.
type MaintenanceItem struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// StatusEvent is a timestamped alert record.
type StatusEvent struct {
	ID        int64    `json:"id"`
	Message   string   `json:"message"`
	Severity  Severity `json:"severity"`
	Timestamp string   `json:"timestamp"` // HH:MM
}

// MetricsSnapshot is the full telemetry state of one truck at one instant.
type MetricsSnapshot struct {
	VehicleID     string             `json:"vehicle_id"`
	Tick          uint64             `json:"tick"`
	EngineHealth  float64            `json:"engine_health"`
	FuelLevel     float64            `json:"fuel_level"`
	EngineTemp    float64            `json:"engine_temp"`
	BatteryLevel  float64            `json:"battery_level"`
	TirePressure  float64            `json:"tire_pressure"`
	NextService   float64            `json:"next_service"`
	Performance   []PerformancePoint `json:"performance"`
	SystemHealth  []SubsystemHealth  `json:"system_health"`
	Maintenance   []MaintenanceItem  `json:"maintenance"`
	StatusUpdates []StatusEvent      `json:"status_updates"`
	Timestamp     time.Time          `json:"ts"`
}

// Clone returns a deep copy that shares no slices with m.
func (m MetricsSnapshot) Clone() MetricsSnapshot {
	c := m
	c.Performance = append([]PerformancePoint(nil), m.Performance...)
	c.SystemHealth = append([]SubsystemHealth(nil), m.SystemHealth...)
	c.Maintenance = append([]MaintenanceItem(nil), m.Maintenance...)
	c.StatusUpdates = append([]StatusEvent(nil), m.StatusUpdates...)
	return c
}

// LastStatusID returns the highest status event id in the snapshot, or 0.
func (m MetricsSnapshot) LastStatusID() int64 {
	var max int64
	for _, e := range m.StatusUpdates {
		if e.ID > max {
			max = e.ID
		}
	}
	return max
}

// MetricsTableName holds the table name used when writing snapshots to GreptimeDB.
// It defaults to "truck_metrics" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var MetricsTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "truck_metrics"
}()

// StatusTableName holds the table name for status events.
var StatusTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_STATUS_TABLE"); env != "" {
		return env
	}
	return "truck_status_events"
}()

func (MetricsSnapshot) TableName() string {
	return MetricsTableName
}
