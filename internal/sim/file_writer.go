package sim

import (
	"encoding/json"
	"os"

	"truckops-sim/internal/telemetry"
)

// FileWriter writes snapshots and status events to JSONL files.
type FileWriter struct {
	snapFile     *os.File
	statusFile   *os.File
	snapEnc      *json.Encoder
	statusEnc    *json.Encoder
	lastStatusID int64
}

// NewFileWriter creates a FileWriter. statusPath may be empty to skip the status log.
func NewFileWriter(snapshotPath, statusPath string) (*FileWriter, error) {
	sf, err := os.Create(snapshotPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{snapFile: sf, snapEnc: json.NewEncoder(sf)}
	if statusPath != "" {
		stf, err := os.Create(statusPath)
		if err != nil {
			sf.Close()
			return nil, err
		}
		fw.statusFile = stf
		fw.statusEnc = json.NewEncoder(stf)
	}
	return fw, nil
}

// Write logs a snapshot and any status events not yet logged.
func (f *FileWriter) Write(row telemetry.MetricsSnapshot) error {
	if err := f.snapEnc.Encode(row); err != nil {
		return err
	}
	if f.statusEnc == nil {
		return nil
	}
	for _, ev := range NewStatusEvents(row, f.lastStatusID) {
		if err := f.statusEnc.Encode(ev); err != nil {
			return err
		}
		f.lastStatusID = ev.ID
	}
	return nil
}

// WriteBatch logs multiple snapshots.
func (f *FileWriter) WriteBatch(rows []telemetry.MetricsSnapshot) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.snapFile != nil {
		if e := f.snapFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.statusFile != nil {
		if e := f.statusFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
