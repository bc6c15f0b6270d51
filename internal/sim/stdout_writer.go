// Writer implementation printing telemetry to STDOUT
package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"truckops-sim/internal/config"
	"truckops-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// StdoutWriter prints human-friendly, colorized snapshots when attached to a
// terminal and falls back to JSON lines otherwise.
type StdoutWriter struct {
	cfg          *config.SimulationConfig
	out          io.Writer
	colorize     bool
	once         sync.Once
	lastStatusID int64
}

// NewStdoutWriter creates a StdoutWriter writing to os.Stdout.
func NewStdoutWriter(cfg *config.SimulationConfig) *StdoutWriter {
	return &StdoutWriter{
		cfg:      cfg,
		out:      os.Stdout,
		colorize: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func severityColor(s telemetry.Severity) string {
	switch s {
	case telemetry.SeverityError:
		return colorRed
	case telemetry.SeverityWarning:
		return colorYellow
	default:
		return colorCyan
	}
}

func (w *StdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Vehicle:\t%s\n", w.cfg.VehicleID)
	fmt.Fprintf(tw, "Tick Interval:\t%s\n", w.cfg.TickInterval)
	fmt.Fprintf(tw, "Temperature Step:\t%s\n", w.cfg.TempStepMode)
	fmt.Fprintf(tw, "Low Fuel Below:\t%.1f\n", w.cfg.Thresholds.LowFuel)
	fmt.Fprintf(tw, "Critical Temp Above:\t%.1f\n", w.cfg.Thresholds.CriticalTemp)
	tw.Flush()
	fmt.Fprintln(w.out)
}

// Write outputs a single snapshot followed by any new status events.
func (w *StdoutWriter) Write(row telemetry.MetricsSnapshot) error {
	if !w.colorize {
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w.out, string(data))
		return err
	}
	w.once.Do(w.printOverview)

	healthColor := colorGreen
	if row.EngineHealth < 50 {
		healthColor = colorRed
	} else if row.EngineHealth < 75 {
		healthColor = colorYellow
	}
	perf := ""
	if n := len(row.Performance); n > 0 {
		p := row.Performance[n-1]
		perf = fmt.Sprintf("%s=%.0f", p.Label, p.Value)
	}
	fmt.Fprintf(w.out, "%s[%s]%s %svehicle=%s%s %stick=%d%s %shealth=%.0f%s %sfuel=%.1f%s %stemp=%.1f%s %sbatt=%.0f%s %stire=%.0f%s %sservice=%.0f%s %sperf=%s%s\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, row.VehicleID, colorReset,
		colorGray, row.Tick, colorReset,
		healthColor, row.EngineHealth, colorReset,
		colorMagenta, row.FuelLevel, colorReset,
		colorYellow, row.EngineTemp, colorReset,
		colorCyan, row.BatteryLevel, colorReset,
		colorGreen, row.TirePressure, colorReset,
		colorBlue, row.NextService, colorReset,
		colorMagenta, perf, colorReset,
	)
	for _, ev := range NewStatusEvents(row, w.lastStatusID) {
		c := severityColor(ev.Severity)
		fmt.Fprintf(w.out, "  %s[%s] #%d %s: %s%s\n", c, ev.Timestamp, ev.ID, ev.Severity, ev.Message, colorReset)
		w.lastStatusID = ev.ID
	}
	return nil
}

// WriteBatch outputs multiple snapshots.
func (w *StdoutWriter) WriteBatch(rows []telemetry.MetricsSnapshot) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
