package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const schemaPath = "../../schemas/simulation.cue"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simulation.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
vehicle_id: truck-x
tick_interval: 500ms
temp_step_mode: continuous
seed:
  fuel_level: 12.5
thresholds:
  low_fuel: 15
`)
	cfg, err := Load(path, schemaPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.VehicleID != "truck-x" || cfg.TempStepMode != "continuous" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Seed.FuelLevel == nil || *cfg.Seed.FuelLevel != 12.5 {
		t.Errorf("fuel seed not parsed: %+v", cfg.Seed)
	}
	if cfg.Seed.EngineHealth != nil {
		t.Errorf("expected engine health seed to stay unset")
	}
	if cfg.Thresholds.LowFuel != 15 || cfg.Thresholds.CriticalTemp != 90 {
		t.Errorf("unexpected thresholds: %+v", cfg.Thresholds)
	}
	if cfg.StreamBuffer != 16 {
		t.Errorf("expected default stream buffer, got %d", cfg.StreamBuffer)
	}
	d, err := cfg.Interval()
	if err != nil || d != 500*time.Millisecond {
		t.Errorf("Interval() = %v, %v", d, err)
	}
}

func TestLoadConfig_SchemaViolation(t *testing.T) {
	path := writeConfig(t, `
temp_step_mode: wobbly
`)
	if _, err := Load(path, schemaPath); err == nil {
		t.Fatalf("expected schema validation error")
	}
}

func TestLoadConfig_UnknownField(t *testing.T) {
	path := writeConfig(t, `
vehicle_id: truck-x
colour: red
`)
	_, err := Load(path, schemaPath)
	if err == nil || !strings.Contains(err.Error(), "schema") {
		t.Fatalf("expected closed schema to reject unknown field, got %v", err)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), schemaPath); err == nil {
		t.Fatalf("expected error for missing config")
	}
}

func TestShippedConfigIsValid(t *testing.T) {
	if err := ValidateWithCue("../../config/simulation.yaml", schemaPath); err != nil {
		t.Fatalf("shipped config invalid: %v", err)
	}
}

func TestInterval(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", DefaultTickInterval, false},
		{"3s", 3 * time.Second, false},
		{"abc", 0, true},
		{"-1s", 0, true},
	}
	for _, c := range cases {
		cfg := &SimulationConfig{TickInterval: c.in}
		got, err := cfg.Interval()
		if (err != nil) != c.wantErr || got != c.want {
			t.Errorf("Interval(%q) = %v, %v", c.in, got, err)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("VEHICLE_ID", "truck-env")
	t.Setenv("TICK_INTERVAL", "500ms")
	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.VehicleID != "truck-env" || cfg.TickInterval != "500ms" {
		t.Fatalf("env not applied: %+v", cfg)
	}

	t.Setenv("TICK_INTERVAL", "soon")
	cfg = Default()
	if err := cfg.ApplyEnv(); err == nil {
		t.Fatalf("expected error for invalid TICK_INTERVAL")
	}
	if cfg.TickInterval != DefaultTickInterval.String() {
		t.Fatalf("invalid interval should not be kept, got %q", cfg.TickInterval)
	}
}

func TestRetention(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"24h", 24 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"soon", 0, true},
		{"-1h", 0, true},
	}
	for _, c := range cases {
		cfg := &SimulationConfig{HistoryRetention: c.in}
		got, err := cfg.Retention()
		if (err != nil) != c.wantErr || got != c.want {
			t.Errorf("Retention(%q) = %v, %v", c.in, got, err)
		}
	}
	if d, _ := Default().Retention(); d != 24*time.Hour {
		t.Fatalf("default retention = %v", d)
	}
}
