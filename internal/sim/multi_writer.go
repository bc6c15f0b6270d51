package sim

import (
	"errors"
	"io"

	"truckops-sim/internal/telemetry"
)

// MultiWriter fan-outs snapshots to multiple writers.
type MultiWriter struct {
	writers []SnapshotWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...SnapshotWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Write sends a snapshot to all writers. Every writer is attempted; the
// first error is returned.
func (mw *MultiWriter) Write(row telemetry.MetricsSnapshot) error {
	var first error
	for _, w := range mw.writers {
		if err := w.Write(row); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WriteBatch sends multiple snapshots to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.MetricsSnapshot) error {
	var first error
	for _, w := range mw.writers {
		if err := writeAll(w, rows); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every writer that implements io.Closer.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, w := range mw.writers {
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
