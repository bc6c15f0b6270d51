package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"truckops-sim/internal/config"
	"truckops-sim/internal/sim"
	"truckops-sim/internal/telemetry"
)

func TestNewWritersPrintOnly(t *testing.T) {
	ws, err := newWriters(config.Default(), writerOptions{PrintOnly: true})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer ws.Close()
	if _, ok := ws.Writer.(*sim.StdoutWriter); !ok {
		t.Fatalf("expected *sim.StdoutWriter, got %T", ws.Writer)
	}
	if ws.History != nil || ws.TUI != nil {
		t.Fatalf("unexpected extra writers: %+v", ws)
	}
}

func TestNewWritersJSON(t *testing.T) {
	ws, err := newWriters(config.Default(), writerOptions{PrintOnly: true, JSON: true})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer ws.Close()
	if _, ok := ws.Writer.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", ws.Writer)
	}
}

func TestNewWritersGreptimeFallback(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	ws, err := newWriters(config.Default(), writerOptions{})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer ws.Close()
	if _, ok := ws.Writer.(*sim.StdoutWriter); !ok {
		t.Fatalf("expected *sim.StdoutWriter, got %T", ws.Writer)
	}
}

func TestNewWritersLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshots.jsonl")
	statusPath := filepath.Join(dir, "status.jsonl")
	ws, err := newWriters(config.Default(), writerOptions{PrintOnly: true, LogFile: path, StatusFile: statusPath})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	if _, ok := ws.Writer.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", ws.Writer)
	}
	row := telemetry.InitialSnapshot("truck-1")
	row.Timestamp = time.Now()
	if err := ws.Writer.Write(row); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	for _, p := range []string{path, statusPath} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected %s to be non-empty", p)
		}
	}
}

func TestNewWritersStatusFileNeedsLogFile(t *testing.T) {
	if _, err := newWriters(config.Default(), writerOptions{PrintOnly: true, StatusFile: "status.jsonl"}); err == nil {
		t.Fatalf("expected error for status file without log file")
	}
}

func TestNewWritersHistory(t *testing.T) {
	cfg := config.Default()
	cfg.HistoryDB = filepath.Join(t.TempDir(), "history.db")
	ws, err := newWriters(cfg, writerOptions{PrintOnly: true})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer ws.Close()
	if ws.History == nil {
		t.Fatalf("expected history store")
	}
	if err := ws.Writer.Write(telemetry.InitialSnapshot("truck-1")); err != nil {
		t.Fatalf("write: %v", err)
	}
	events, err := ws.History.RecentStatus(context.Background(), "truck-1", 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected seed events in history, got %d", len(events))
	}
}

func TestNewWritersSlackSeverity(t *testing.T) {
	cfg := config.Default()
	cfg.Alerts.MinSeverity = "loud"
	if _, err := newWriters(cfg, writerOptions{PrintOnly: true, SlackWebhook: "https://hooks.slack.test/x"}); err == nil {
		t.Fatalf("expected error for invalid alert severity")
	}
	cfg.Alerts.MinSeverity = "error"
	ws, err := newWriters(cfg, writerOptions{PrintOnly: true, SlackWebhook: "https://hooks.slack.test/x"})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer ws.Close()
	if _, ok := ws.Writer.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", ws.Writer)
	}
}

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "simulation.yaml")
	cfg, err := loadConfig(missing, "unused.cue", false)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.TickInterval != config.DefaultTickInterval.String() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if _, err := loadConfig(missing, "unused.cue", true); err == nil {
		t.Fatalf("expected error for explicit missing config")
	}
}
