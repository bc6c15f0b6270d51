package sim

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"truckops-sim/internal/config"
	"truckops-sim/internal/telemetry"
)

func TestStdoutWriterColorized(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.VehicleID = "truck-1"
	w := &StdoutWriter{cfg: cfg, out: &buf, colorize: true}

	row := telemetry.InitialSnapshot("truck-1")
	if err := w.Write(row); err != nil {
		t.Fatalf("write: %v", err)
	}
	row.StatusUpdates = append([]telemetry.StatusEvent{{ID: 4, Message: telemetry.MsgCriticalTemp, Severity: telemetry.SeverityError, Timestamp: "14:07"}}, row.StatusUpdates...)
	if err := w.Write(row); err != nil {
		t.Fatalf("write: %v", err)
	}

	out := buf.String()
	if strings.Count(out, "Simulation Configuration:") != 1 {
		t.Fatalf("expected overview printed once:\n%s", out)
	}
	if !strings.Contains(out, "fuel=92.0") {
		t.Fatalf("missing fuel field:\n%s", out)
	}
	if strings.Count(out, "#1 ") != 1 {
		t.Fatalf("status event printed more than once:\n%s", out)
	}
	if !strings.Contains(out, colorRed+"[14:07] #4 error: "+telemetry.MsgCriticalTemp) {
		t.Fatalf("critical event not highlighted:\n%s", out)
	}
}

func TestStdoutWriterJSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	w := &StdoutWriter{out: &buf}
	if err := w.Write(telemetry.InitialSnapshot("truck-1")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got telemetry.MetricsSnapshot
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if got.VehicleID != "truck-1" {
		t.Fatalf("vehicle id = %q", got.VehicleID)
	}
}

func TestJSONStdoutWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &JSONStdoutWriter{out: &buf}
	rows := []telemetry.MetricsSnapshot{{Tick: 1}, {Tick: 2}}
	if err := w.WriteBatch(rows); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Fatalf("expected 2 lines, got %d", n)
	}
}
