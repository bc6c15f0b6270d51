package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"truckops-sim/internal/telemetry"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func snapshotAt(tick uint64, ts time.Time) telemetry.MetricsSnapshot {
	m := telemetry.InitialSnapshot("truck-1")
	m.Tick = tick
	m.FuelLevel -= float64(tick) / 10
	m.Timestamp = ts
	return m
}

func TestStoreWritesSamplesAndEvents(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)

	first := snapshotAt(0, base)
	if err := s.Write(first); err != nil {
		t.Fatalf("write: %v", err)
	}
	second := snapshotAt(1, base.Add(3*time.Second))
	second.StatusUpdates = append([]telemetry.StatusEvent{{ID: 4, Message: telemetry.MsgLowFuel, Severity: telemetry.SeverityWarning, Timestamp: "14:00"}}, second.StatusUpdates...)
	if err := s.Write(second); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx := context.Background()
	samples, err := s.Samples(ctx, "truck-1", 0)
	if err != nil {
		t.Fatalf("samples: %v", err)
	}
	if len(samples) != 2 || samples[0].Tick != 0 || samples[1].Tick != 1 {
		t.Fatalf("unexpected samples: %+v", samples)
	}
	if samples[0].Performance != 40 {
		t.Fatalf("performance = %v, want latest point", samples[0].Performance)
	}

	events, err := s.RecentStatus(ctx, "truck-1", 0)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 distinct events, got %d", len(events))
	}
	if events[0].EventID != 4 || events[0].Severity != string(telemetry.SeverityWarning) {
		t.Fatalf("newest event = %+v", events[0])
	}
}

func TestStoreIgnoresDuplicateEventsAcrossStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ts := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := s.Write(snapshotAt(uint64(i), ts)); err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = s.Close()
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	events, err := s.RecentStatus(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events after rewrite, got %d", len(events))
	}
}

func TestStoreSamplesLimit(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := s.Write(snapshotAt(uint64(i), base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	samples, err := s.Samples(context.Background(), "truck-1", 2)
	if err != nil {
		t.Fatalf("samples: %v", err)
	}
	if len(samples) != 2 || samples[0].Tick != 3 || samples[1].Tick != 4 {
		t.Fatalf("expected ticks 3,4 got %+v", samples)
	}
}

func TestStorePrune(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_ = s.Write(snapshotAt(uint64(i), base.Add(time.Duration(i)*time.Minute)))
	}
	n, err := s.Prune(context.Background(), base.Add(90*time.Second))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 5 {
		t.Fatalf("pruned %d rows, want 2 samples and 3 seed events", n)
	}
	samples, err := s.Samples(context.Background(), "truck-1", 0)
	if err != nil {
		t.Fatalf("samples: %v", err)
	}
	if len(samples) != 1 || samples[0].Tick != 2 {
		t.Fatalf("unexpected samples after prune: %+v", samples)
	}
	events, err := s.RecentStatus(context.Background(), "truck-1", 0)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected old events pruned, got %d", len(events))
	}
}
