package sim

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"truckops-sim/internal/telemetry"
)

// ReplayLog replays recorded snapshots from r to writer. A speed >0 scales the
// recorded spacing between snapshots (2 = twice as fast). If speed <= 0, no
// artificial delay is inserted and the rows are written as one batch.
func ReplayLog(r io.Reader, writer SnapshotWriter, speed float64) error {
	dec := json.NewDecoder(r)
	if speed <= 0 {
		var rows []telemetry.MetricsSnapshot
		for {
			var row telemetry.MetricsSnapshot
			if err := dec.Decode(&row); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return err
			}
			rows = append(rows, row)
		}
		if len(rows) == 0 {
			return nil
		}
		return writeAll(writer, rows)
	}

	var prev time.Time
	for {
		var row telemetry.MetricsSnapshot
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !prev.IsZero() {
			diff := row.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				time.Sleep(diff)
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
		prev = row.Timestamp
	}
}

// ReplayLogFile opens a file and replays its snapshots.
func ReplayLogFile(path string, writer SnapshotWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(f, writer, speed)
}
