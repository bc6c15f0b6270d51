// Simulator owning the truck telemetry state and its observers
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"truckops-sim/internal/config"
	"truckops-sim/internal/telemetry"

	"github.com/google/uuid"
)

// Simulator owns the single source of truth for the simulated truck and
// publishes a copy of it to every observer on each tick.
type Simulator struct {
	vehicleID    string
	tickInterval time.Duration
	gen          *telemetry.Generator
	now          func() time.Time
	ticker       func(time.Duration) (<-chan time.Time, func())
	metrics      *simMetrics
	logger       *slog.Logger

	// publishMu serializes ticks so observers never see them interleave.
	publishMu sync.Mutex

	mu        sync.Mutex
	state     telemetry.MetricsSnapshot
	observers registry
	running   bool
	paused    bool
	cancel    context.CancelFunc
	consumers int
	onRunning func(running bool)
}

// NewSimulator seeds a simulator from cfg. A nil rand source or clock
// falls back to a time-seeded *rand.Rand and time.Now.
func NewSimulator(vehicleID string, cfg *config.SimulationConfig, tickInterval time.Duration, r telemetry.RandSource, now func() time.Time) *Simulator {
	if cfg == nil {
		cfg = config.Default()
	}
	if vehicleID == "" {
		vehicleID = cfg.VehicleID
	}
	if vehicleID == "" {
		vehicleID = generateVehicleID()
	}
	if tickInterval <= 0 {
		d, err := cfg.Interval()
		if err != nil {
			slog.Warn("falling back to default tick interval", "err", err)
			d = config.DefaultTickInterval
		}
		tickInterval = d
	}
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}

	state := telemetry.InitialSnapshot(vehicleID)
	applySeed(&state, cfg.Seed)
	state.Timestamp = now().UTC()

	gen := telemetry.NewGenerator(r, now, state.LastStatusID()+1)
	if cfg.TempStepMode == string(telemetry.TempStepContinuous) {
		gen.TempMode = telemetry.TempStepContinuous
	}
	gen.Thresholds = thresholds(cfg.Thresholds)

	s := &Simulator{
		vehicleID:    vehicleID,
		tickInterval: tickInterval,
		gen:          gen,
		now:          now,
		ticker:       newTimeTicker,
		logger:       slog.Default(),
		state:        state,
	}
	s.metrics = newSimMetrics(s)
	return s
}

// thresholds fills each unset field from the defaults on its own.
func thresholds(t config.Thresholds) telemetry.Thresholds {
	out := telemetry.DefaultThresholds()
	if t.LowFuel != 0 {
		out.LowFuel = t.LowFuel
	}
	if t.CriticalTemp != 0 {
		out.CriticalTemp = t.CriticalTemp
	}
	return out
}

func applySeed(m *telemetry.MetricsSnapshot, seed config.Seed) {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&m.EngineHealth, seed.EngineHealth)
	set(&m.FuelLevel, seed.FuelLevel)
	set(&m.EngineTemp, seed.EngineTemp)
	set(&m.BatteryLevel, seed.BatteryLevel)
	set(&m.TirePressure, seed.TirePressure)
	set(&m.NextService, seed.NextService)
}

func newTimeTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// SetLogger replaces the logger used for tick and lifecycle messages.
func (s *Simulator) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = l
}

func (s *Simulator) log() *slog.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger
}

// VehicleID returns the id stamped on every snapshot.
func (s *Simulator) VehicleID() string { return s.vehicleID }

// TickInterval returns the configured tick cadence.
func (s *Simulator) TickInterval() time.Duration { return s.tickInterval }

// Subscribe registers o and immediately delivers the current snapshot to it.
// Subscribing an already registered observer is a no-op. Subscribe may be
// called from Observe; it never waits for a tick in progress.
func (s *Simulator) Subscribe(o Observer) error {
	_, err := s.subscribe(o)
	return err
}

func (s *Simulator) subscribe(o Observer) (bool, error) {
	if err := validateObserver(o); err != nil {
		return false, err
	}
	s.mu.Lock()
	sub, added := s.observers.add(o)
	if !added {
		s.mu.Unlock()
		return false, nil
	}
	snap := s.state.Clone()
	s.mu.Unlock()

	sub.deliver(snap)
	return true, nil
}

// Unsubscribe removes o. Unknown observers are ignored.
func (s *Simulator) Unsubscribe(o Observer) {
	if validateObserver(o) != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers.remove(o)
}

// ObserverCount returns the number of registered observers.
func (s *Simulator) ObserverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observers.len()
}

// Latest returns a copy of the current snapshot.
func (s *Simulator) Latest() telemetry.MetricsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Running reports whether the tick timer is active.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Paused reports whether ticking was halted by Stop and not yet resumed.
func (s *Simulator) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// OnRunningChange registers fn to be called, outside any simulator lock,
// each time ticking starts or stops.
func (s *Simulator) OnRunningChange(fn func(running bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRunning = fn
}

// Start begins periodic ticking and clears a pause set by Stop.
// Calling Start while running is a no-op.
func (s *Simulator) Start() {
	s.mu.Lock()
	s.paused = false
	changed := s.startLocked()
	fn := s.onRunning
	s.mu.Unlock()
	notifyRunning(fn, changed, true)
}

func (s *Simulator) startLocked() bool {
	if s.running {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	c, stop := s.ticker(s.tickInterval)
	s.running = true
	s.cancel = cancel
	s.logger.Info("starting simulator", "vehicle_id", s.vehicleID, "tick_interval", s.tickInterval)
	go s.loop(ctx, c, stop)
	return true
}

// Stop halts ticking and pauses the simulator: attaching consumers will
// not restart it until Start is called. A tick already in progress runs
// to completion. Calling Stop while stopped is a no-op.
func (s *Simulator) Stop() {
	s.mu.Lock()
	s.paused = true
	changed := s.stopLocked()
	fn := s.onRunning
	s.mu.Unlock()
	notifyRunning(fn, changed, false)
}

func (s *Simulator) stopLocked() bool {
	if !s.running {
		return false
	}
	s.cancel()
	s.cancel = nil
	s.running = false
	s.logger.Info("stopping simulator", "vehicle_id", s.vehicleID)
	return true
}

func notifyRunning(fn func(bool), changed, running bool) {
	if changed && fn != nil {
		fn(running)
	}
}

func generateVehicleID() string {
	return fmt.Sprintf("truck-%s", uuid.New().String()[:8])
}
