package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"truckops-sim/internal/alert"
	"truckops-sim/internal/config"
	"truckops-sim/internal/history"
	"truckops-sim/internal/sim"
)

type writerOptions struct {
	PrintOnly    bool
	JSON         bool
	TUI          bool
	LogFile      string
	StatusFile   string
	SlackWebhook string
}

// writerSet is the combined sink plus handles the command needs directly.
type writerSet struct {
	Writer  sim.SnapshotWriter
	History *history.Store
	TUI     *sim.TUIWriter
	closers []io.Closer
}

// Close releases every writer that holds resources.
func (w *writerSet) Close() error {
	var errs []error
	for i := len(w.closers) - 1; i >= 0; i-- {
		errs = append(errs, w.closers[i].Close())
	}
	return errors.Join(errs...)
}

// newWriters sets up the snapshot sinks based on flags, config and env vars.
func newWriters(cfg *config.SimulationConfig, opts writerOptions) (*writerSet, error) {
	ws := &writerSet{}
	base, err := baseWriter(cfg, opts)
	if err != nil {
		return nil, err
	}
	if c, ok := base.(io.Closer); ok {
		ws.closers = append(ws.closers, c)
	}
	if t, ok := base.(*sim.TUIWriter); ok {
		ws.TUI = t
	}
	writers := []sim.SnapshotWriter{base}

	if opts.StatusFile != "" && opts.LogFile == "" {
		ws.Close()
		return nil, fmt.Errorf("status file requires a log file")
	}
	if opts.LogFile != "" {
		fw, err := sim.NewFileWriter(opts.LogFile, opts.StatusFile)
		if err != nil {
			ws.Close()
			return nil, err
		}
		ws.closers = append(ws.closers, fw)
		writers = append(writers, fw)
	}

	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			ws.Close()
			return nil, err
		}
		ws.History = store
		ws.closers = append(ws.closers, store)
		writers = append(writers, store)
	}

	if opts.SlackWebhook != "" {
		sev, err := alert.ParseSeverity(cfg.Alerts.MinSeverity)
		if err != nil {
			ws.Close()
			return nil, err
		}
		writers = append(writers, alert.NewSlackNotifier(opts.SlackWebhook, sev))
	}

	if len(writers) == 1 {
		ws.Writer = base
	} else {
		ws.Writer = sim.NewMultiWriter(writers...)
	}
	return ws, nil
}

// baseWriter chooses the primary sink: the HUD, STDOUT (text or JSON), or
// GreptimeDB when GREPTIMEDB_ENDPOINT is set.
func baseWriter(cfg *config.SimulationConfig, opts writerOptions) (sim.SnapshotWriter, error) {
	if opts.TUI {
		return sim.NewTUIWriter(cfg), nil
	}
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if opts.PrintOnly || endpoint == "" {
		if opts.JSON {
			return sim.NewJSONStdoutWriter(), nil
		}
		return sim.NewStdoutWriter(cfg), nil
	}
	database := os.Getenv("GREPTIMEDB_DATABASE")
	if database == "" {
		database = "public"
	}
	return sim.NewGreptimeDBWriter(endpoint, database, "", "")
}
