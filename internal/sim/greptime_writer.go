package sim

import (
	"context"
	"fmt"
	"log/slog"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"truckops-sim/internal/telemetry"
)

// greptimeClient is the subset of the ingester client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes snapshots and status events to GreptimeDB via the ingester client
type GreptimeDBWriter struct {
	client       greptimeClient
	metricsTable string
	statusTable  string
	lastStatusID int64
}

// NewGreptimeDBWriter connects to endpoint and writes into database.
// Empty table names fall back to telemetry.MetricsTableName and telemetry.StatusTableName.
func NewGreptimeDBWriter(endpoint, database, metricsTable, statusTable string) (*GreptimeDBWriter, error) {
	cfg := greptime.NewConfig(endpoint).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if metricsTable == "" {
		metricsTable = telemetry.MetricsTableName
	}
	if statusTable == "" {
		statusTable = telemetry.StatusTableName
	}
	return &GreptimeDBWriter{client: client, metricsTable: metricsTable, statusTable: statusTable}, nil
}

func (w *GreptimeDBWriter) newMetricsTable() (*table.Table, error) {
	tbl, err := table.New(w.metricsTable)
	if err != nil {
		return nil, err
	}
	tbl.AddTagColumn("vehicle_id", types.STRING)
	tbl.AddFieldColumn("tick", types.UINT64)
	tbl.AddFieldColumn("engine_health", types.FLOAT64)
	tbl.AddFieldColumn("fuel_level", types.FLOAT64)
	tbl.AddFieldColumn("engine_temp", types.FLOAT64)
	tbl.AddFieldColumn("battery_level", types.FLOAT64)
	tbl.AddFieldColumn("tire_pressure", types.FLOAT64)
	tbl.AddFieldColumn("next_service", types.FLOAT64)
	tbl.AddFieldColumn("performance", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	return tbl, nil
}

func (w *GreptimeDBWriter) newStatusTable() (*table.Table, error) {
	tbl, err := table.New(w.statusTable)
	if err != nil {
		return nil, err
	}
	tbl.AddTagColumn("vehicle_id", types.STRING)
	tbl.AddTagColumn("severity", types.STRING)
	tbl.AddFieldColumn("event_id", types.INT64)
	tbl.AddFieldColumn("message", types.STRING)
	tbl.AddFieldColumn("clock", types.STRING)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	return tbl, nil
}

// Write inserts a single snapshot.
func (w *GreptimeDBWriter) Write(row telemetry.MetricsSnapshot) error {
	return w.WriteBatch([]telemetry.MetricsSnapshot{row})
}

// WriteBatch inserts one metrics row per snapshot plus any new status events.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.MetricsSnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	metrics, err := w.newMetricsTable()
	if err != nil {
		return err
	}
	status, err := w.newStatusTable()
	if err != nil {
		return err
	}

	lastID := w.lastStatusID
	statusRows := 0
	for _, r := range rows {
		perf := 0.0
		if n := len(r.Performance); n > 0 {
			perf = r.Performance[n-1].Value
		}
		if err := metrics.AddRow(r.VehicleID, r.Tick, r.EngineHealth, r.FuelLevel, r.EngineTemp,
			r.BatteryLevel, r.TirePressure, r.NextService, perf, r.Timestamp); err != nil {
			return err
		}
		for _, ev := range NewStatusEvents(r, lastID) {
			if err := status.AddRow(r.VehicleID, string(ev.Severity), ev.ID, ev.Message, ev.Timestamp, r.Timestamp); err != nil {
				return err
			}
			lastID = ev.ID
			statusRows++
		}
	}

	tables := []*table.Table{metrics}
	if statusRows > 0 {
		tables = append(tables, status)
	}
	if _, err := w.client.Write(context.Background(), tables...); err != nil {
		slog.Error("greptime write failed", "err", err)
		return err
	}
	w.lastStatusID = lastID

	slog.Debug("greptime wrote rows", "metrics", len(rows), "status", statusRows)
	return nil
}
