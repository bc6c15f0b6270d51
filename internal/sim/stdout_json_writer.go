package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"truckops-sim/internal/telemetry"
)

// JSONStdoutWriter prints snapshots as JSON to STDOUT.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// Write outputs a snapshot in JSON format.
func (w *JSONStdoutWriter) Write(row telemetry.MetricsSnapshot) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteBatch outputs multiple snapshots in JSON format.
func (w *JSONStdoutWriter) WriteBatch(rows []telemetry.MetricsSnapshot) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
