// Package history persists snapshots and status events to SQLite so the
// admin server can answer history queries after the rolling window has
// dropped them.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"truckops-sim/internal/telemetry"
)

// StatusRecord is one persisted status event.
type StatusRecord struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	VehicleID  string    `gorm:"uniqueIndex:idx_vehicle_event;not null" json:"vehicle_id"`
	EventID    int64     `gorm:"uniqueIndex:idx_vehicle_event;not null" json:"id"`
	Message    string    `json:"message"`
	Severity   string    `gorm:"index" json:"severity"`
	Clock      string    `json:"timestamp"`
	RecordedAt time.Time `gorm:"index" json:"recorded_at"`
}

// SampleRecord is the scalar part of one snapshot.
type SampleRecord struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	VehicleID    string    `gorm:"index;not null" json:"vehicle_id"`
	Tick         uint64    `json:"tick"`
	EngineHealth float64   `json:"engine_health"`
	FuelLevel    float64   `json:"fuel_level"`
	EngineTemp   float64   `json:"engine_temp"`
	BatteryLevel float64   `json:"battery_level"`
	TirePressure float64   `json:"tire_pressure"`
	NextService  float64   `json:"next_service"`
	Performance  float64   `json:"performance"`
	Timestamp    time.Time `gorm:"index" json:"timestamp"`
}

// Store writes snapshots into SQLite through gorm.
type Store struct {
	db *gorm.DB

	mu     sync.Mutex
	lastID map[string]int64
}

// Open opens or creates the database at path. An empty path uses a
// shared in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode = WAL;", "PRAGMA synchronous = NORMAL;"} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	if err := db.AutoMigrate(&StatusRecord{}, &SampleRecord{}); err != nil {
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	if path == "" {
		slog.Info("using in-memory history store")
	} else {
		slog.Info("using history store", "path", path)
	}
	return &Store{db: db, lastID: make(map[string]int64)}, nil
}

// Write stores the snapshot's scalar metrics and any status events not
// yet stored. Events already present are ignored.
func (s *Store) Write(m telemetry.MetricsSnapshot) error {
	perf := 0.0
	if n := len(m.Performance); n > 0 {
		perf = m.Performance[n-1].Value
	}
	sample := SampleRecord{
		VehicleID:    m.VehicleID,
		Tick:         m.Tick,
		EngineHealth: m.EngineHealth,
		FuelLevel:    m.FuelLevel,
		EngineTemp:   m.EngineTemp,
		BatteryLevel: m.BatteryLevel,
		TirePressure: m.TirePressure,
		NextService:  m.NextService,
		Performance:  perf,
		Timestamp:    m.Timestamp,
	}

	s.mu.Lock()
	after := s.lastID[m.VehicleID]
	s.mu.Unlock()

	var events []StatusRecord
	newest := after
	for i := len(m.StatusUpdates) - 1; i >= 0; i-- {
		ev := m.StatusUpdates[i]
		if ev.ID <= after {
			continue
		}
		events = append(events, StatusRecord{
			VehicleID:  m.VehicleID,
			EventID:    ev.ID,
			Message:    ev.Message,
			Severity:   string(ev.Severity),
			Clock:      ev.Timestamp,
			RecordedAt: m.Timestamp,
		})
		if ev.ID > newest {
			newest = ev.ID
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sample).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&events).Error
	})
	if err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}

	s.mu.Lock()
	if newest > s.lastID[m.VehicleID] {
		s.lastID[m.VehicleID] = newest
	}
	s.mu.Unlock()
	return nil
}

// RecentStatus returns up to limit status events for vehicleID, newest first.
// An empty vehicleID matches every vehicle.
func (s *Store) RecentStatus(ctx context.Context, vehicleID string, limit int) ([]StatusRecord, error) {
	var out []StatusRecord
	q := s.db.WithContext(ctx).Order("recorded_at DESC").Order("event_id DESC")
	if vehicleID != "" {
		q = q.Where("vehicle_id = ?", vehicleID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Samples returns the latest limit samples for vehicleID in chronological order.
func (s *Store) Samples(ctx context.Context, vehicleID string, limit int) ([]SampleRecord, error) {
	var out []SampleRecord
	q := s.db.WithContext(ctx).Order("timestamp DESC").Order("tick DESC")
	if vehicleID != "" {
		q = q.Where("vehicle_id = ?", vehicleID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Prune deletes samples and status events recorded before cutoff and
// returns how many rows were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("timestamp < ?", cutoff).Delete(&SampleRecord{})
		if res.Error != nil {
			return res.Error
		}
		n += res.RowsAffected
		res = tx.Where("recorded_at < ?", cutoff).Delete(&StatusRecord{})
		if res.Error != nil {
			return res.Error
		}
		n += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return n, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
