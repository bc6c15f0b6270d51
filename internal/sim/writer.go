package sim

import (
	"log/slog"

	"truckops-sim/internal/telemetry"
)

// SnapshotWriter is an interface to support different output writers.
type SnapshotWriter interface {
	Write(telemetry.MetricsSnapshot) error
}

// Optional: Writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.MetricsSnapshot) error
}

// WriterSink feeds a writer from its own goroutine. Snapshots queue on a
// ChanObserver, so a slow writer drops the oldest queued snapshots instead
// of stalling the tick. Write failures are logged and never reach the
// simulator.
type WriterSink struct {
	*ChanObserver
	w    SnapshotWriter
	log  *slog.Logger
	done chan struct{}
}

// Sink starts a WriterSink for w with room for buf queued snapshots.
// Subscribe or Attach the result, and Close it once it is detached.
func (s *Simulator) Sink(w SnapshotWriter, buf int, log *slog.Logger) *WriterSink {
	if log == nil {
		log = slog.Default()
	}
	k := &WriterSink{ChanObserver: s.NewChanObserver(buf), w: w, log: log, done: make(chan struct{})}
	go k.drain()
	return k
}

// drain writes everything queued since the last write as one batch.
func (k *WriterSink) drain() {
	defer close(k.done)
	for m := range k.C() {
		rows := []telemetry.MetricsSnapshot{m}
	more:
		for {
			select {
			case next, ok := <-k.C():
				if !ok {
					break more
				}
				rows = append(rows, next)
			default:
				break more
			}
		}
		if err := writeAll(k.w, rows); err != nil {
			last := rows[len(rows)-1]
			k.log.Error("write failed", "vehicle_id", last.VehicleID, "tick", last.Tick, "rows", len(rows), "err", err)
		}
	}
}

// Close stops accepting snapshots and waits until the queued ones are written.
func (k *WriterSink) Close() {
	k.ChanObserver.Close()
	<-k.done
}

// writeAll uses WriteBatch when the writer supports it.
func writeAll(w SnapshotWriter, rows []telemetry.MetricsSnapshot) error {
	if bw, ok := w.(batchWriter); ok {
		return bw.WriteBatch(rows)
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// NewStatusEvents returns the events in m with an id above after, oldest first.
func NewStatusEvents(m telemetry.MetricsSnapshot, after int64) []telemetry.StatusEvent {
	var out []telemetry.StatusEvent
	for i := len(m.StatusUpdates) - 1; i >= 0; i-- {
		if m.StatusUpdates[i].ID > after {
			out = append(out, m.StatusUpdates[i])
		}
	}
	return out
}
