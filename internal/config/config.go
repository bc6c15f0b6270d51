// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTickInterval is the cadence of the simulator when none is configured.
const DefaultTickInterval = 3 * time.Second

// Seed overrides the scalar starting values of the simulated truck.
// Nil fields keep the built-in seed.
type Seed struct {
	EngineHealth *float64 `yaml:"engine_health"`
	FuelLevel    *float64 `yaml:"fuel_level"`
	EngineTemp   *float64 `yaml:"engine_temp"`
	BatteryLevel *float64 `yaml:"battery_level"`
	TirePressure *float64 `yaml:"tire_pressure"`
	NextService  *float64 `yaml:"next_service"`
}

// Thresholds configures when status alerts fire.
type Thresholds struct {
	LowFuel      float64 `yaml:"low_fuel"`
	CriticalTemp float64 `yaml:"critical_temp"`
}

// Alerts configures outbound alert notifications.
type Alerts struct {
	MinSeverity string `yaml:"min_severity"`
}

// SimulationConfig is the root configuration for the truck simulator.
// HistoryRetention of "0" keeps history forever.
type SimulationConfig struct {
	VehicleID        string     `yaml:"vehicle_id"`
	TickInterval     string     `yaml:"tick_interval"`
	TempStepMode     string     `yaml:"temp_step_mode"`
	Seed             Seed       `yaml:"seed"`
	Thresholds       Thresholds `yaml:"thresholds"`
	StreamBuffer     int        `yaml:"stream_buffer"`
	HistoryDB        string     `yaml:"history_db"`
	HistoryRetention string     `yaml:"history_retention"`
	Alerts           Alerts     `yaml:"alerts"`
}

// Default returns the configuration used when no file is given.
func Default() *SimulationConfig {
	return &SimulationConfig{
		TickInterval:     DefaultTickInterval.String(),
		TempStepMode:     "discrete",
		Thresholds:       Thresholds{LowFuel: 10, CriticalTemp: 90},
		StreamBuffer:     16,
		HistoryRetention: "24h",
		Alerts:           Alerts{MinSeverity: "warning"},
	}
}

// Load loads YAML config and validates it against a CUE schema
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.fillDefaults()

	slog.Info("loaded configuration", "vehicle_id", cfg.VehicleID, "tick_interval", cfg.TickInterval, "temp_step_mode", cfg.TempStepMode)

	return cfg, nil
}

func (c *SimulationConfig) fillDefaults() {
	def := Default()
	if c.TickInterval == "" {
		c.TickInterval = def.TickInterval
	}
	if c.TempStepMode == "" {
		c.TempStepMode = def.TempStepMode
	}
	if c.Thresholds.LowFuel == 0 {
		c.Thresholds.LowFuel = def.Thresholds.LowFuel
	}
	if c.Thresholds.CriticalTemp == 0 {
		c.Thresholds.CriticalTemp = def.Thresholds.CriticalTemp
	}
	if c.StreamBuffer <= 0 {
		c.StreamBuffer = def.StreamBuffer
	}
	if c.HistoryRetention == "" {
		c.HistoryRetention = def.HistoryRetention
	}
	if c.Alerts.MinSeverity == "" {
		c.Alerts.MinSeverity = def.Alerts.MinSeverity
	}
}

// Interval parses TickInterval, falling back to DefaultTickInterval when empty.
func (c *SimulationConfig) Interval() (time.Duration, error) {
	if c.TickInterval == "" {
		return DefaultTickInterval, nil
	}
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid tick_interval %q: %w", c.TickInterval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("tick_interval must be positive, got %s", d)
	}
	return d, nil
}

// Retention parses HistoryRetention. Zero means history is never pruned.
func (c *SimulationConfig) Retention() (time.Duration, error) {
	if c.HistoryRetention == "" || c.HistoryRetention == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.HistoryRetention)
	if err != nil {
		return 0, fmt.Errorf("invalid history_retention %q: %w", c.HistoryRetention, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("history_retention must not be negative, got %s", d)
	}
	return d, nil
}

// ApplyEnv overrides fields from VEHICLE_ID and TICK_INTERVAL when set.
func (c *SimulationConfig) ApplyEnv() error {
	if v := os.Getenv("VEHICLE_ID"); v != "" {
		c.VehicleID = v
	}
	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		prev := c.TickInterval
		c.TickInterval = v
		if _, err := c.Interval(); err != nil {
			c.TickInterval = prev
			return fmt.Errorf("TICK_INTERVAL: %w", err)
		}
	}
	return nil
}
