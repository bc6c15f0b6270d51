package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"truckops-sim/internal/admin"
	"truckops-sim/internal/config"
	"truckops-sim/internal/logging"
	"truckops-sim/internal/sim"
)

var (
	simPrintOnly  bool
	simJSON       bool
	simTUI        bool
	simConfigPath string
	simSchemaPath string
	simTick       time.Duration
	simLogFile    string
	simStatusFile string
	simAdminAddr  string
	simHistoryDB  string
	simVehicleID  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time truck simulator",
	Long:  "simulate ticks a simulated truck and publishes every snapshot to the configured sinks and the admin server.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(simConfigPath, simSchemaPath, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		if err := cfg.ApplyEnv(); err != nil {
			return err
		}
		if simVehicleID != "" {
			cfg.VehicleID = simVehicleID
		}
		if simHistoryDB != "" {
			cfg.HistoryDB = simHistoryDB
		}
		retention, err := cfg.Retention()
		if err != nil {
			return err
		}

		log := slog.Default()
		if simTUI {
			log = logging.NewWithLevel(io.Discard, logLevel, false)
			slog.SetDefault(log)
		}

		ws, err := newWriters(cfg, writerOptions{
			PrintOnly:    simPrintOnly,
			JSON:         simJSON,
			TUI:          simTUI,
			LogFile:      simLogFile,
			StatusFile:   simStatusFile,
			SlackWebhook: os.Getenv("SLACK_WEBHOOK_URL"),
		})
		if err != nil {
			return err
		}
		defer ws.Close()

		simulator := sim.NewSimulator(cfg.VehicleID, cfg, simTick, nil, nil)
		simulator.SetLogger(log)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		sink := simulator.Sink(ws.Writer, cfg.StreamBuffer, log)
		binding, err := simulator.Attach(sink)
		if err != nil {
			sink.Close()
			return err
		}
		defer func() {
			binding.Detach()
			sink.Close()
		}()

		if ws.TUI != nil {
			ws.TUI.SetControls(simulator.Stop, simulator.Start)
			simulator.OnRunningChange(ws.TUI.SetRunning)
			defer simulator.OnRunningChange(nil)
		}

		pruned := make(chan struct{})
		if ws.History != nil {
			go func() {
				defer close(pruned)
				pruneHistory(ctx, ws.History, retention, pruneInterval(retention), time.Now, log)
			}()
		} else {
			close(pruned)
		}

		if simAdminAddr != "" {
			var hs admin.HistorySource
			if ws.History != nil {
				hs = ws.History
			}
			srv := admin.NewServer(simulator, hs)
			srv.StreamBuf = cfg.StreamBuffer
			go func() {
				if err := srv.Start(ctx, simAdminAddr); err != nil {
					log.Error("admin server failed", "addr", simAdminAddr, "err", err)
					stop()
				}
			}()
		}

		simulator.Run(ctx)
		<-pruned
		log.Info("truck simulation stopped", "vehicle_id", simulator.VehicleID(), "tick", simulator.Latest().Tick)
		return nil
	},
}

// loadConfig validates and loads path. A missing default config falls back
// to built-in defaults; a missing explicit config is an error.
func loadConfig(path, schema string, explicit bool) (*config.SimulationConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !explicit {
		slog.Warn("config not found, using defaults", "path", path)
		return config.Default(), nil
	}
	return config.Load(path, schema)
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print snapshots to STDOUT instead of writing to DB")
	simulateCmd.Flags().BoolVar(&simJSON, "json", false, "Print snapshots as JSON lines instead of text")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Render a terminal HUD instead of printing lines")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 0, "Tick interval (e.g. 500ms, 3s); overrides config")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export snapshots (JSONL)")
	simulateCmd.Flags().StringVar(&simStatusFile, "status-file", "", "Path to export status events (JSONL); requires --log-file")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", ":8080", "Admin server address; empty disables it")
	simulateCmd.Flags().StringVar(&simHistoryDB, "history-db", "", "SQLite file for snapshot history; overrides config")
	simulateCmd.Flags().StringVar(&simVehicleID, "vehicle-id", "", "Vehicle id; overrides config and VEHICLE_ID")
}
