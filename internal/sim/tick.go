package sim

import (
	"context"
	"time"

	"truckops-sim/internal/logging"
	"truckops-sim/internal/telemetry"
)

// Run ticks until ctx is done. It holds a consumer reference for its
// duration, so detaching bindings will not stop a running Run.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("running simulator", "vehicle_id", s.vehicleID, "tick_interval", s.tickInterval)
	s.acquire()
	<-ctx.Done()
	s.release()
	log.Info("simulator run finished", "vehicle_id", s.vehicleID)
}

func (s *Simulator) loop(ctx context.Context, c <-chan time.Time, stop func()) {
	defer stop()
	for {
		select {
		case <-c:
			if ctx.Err() != nil {
				return
			}
			s.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Tick performs one simulation step and publishes the result synchronously.
// Observe must not call Tick.
func (s *Simulator) Tick() {
	s.tick(context.Background())
}

// tick advances the state and delivers a copy to each observer in
// registration order. Observers added during delivery first see the
// snapshot handed to them by Subscribe.
func (s *Simulator) tick(ctx context.Context) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	events := s.gen.Step(&s.state)
	snap := s.state.Clone()
	observers := s.observers.list()
	log := s.logger
	s.mu.Unlock()

	s.metrics.recordTick(ctx, events)
	log.Debug("tick", "vehicle_id", snap.VehicleID, "tick", snap.Tick, "observers", len(observers))
	for _, ev := range events {
		switch ev.Severity {
		case telemetry.SeverityError:
			log.Error("status event", "id", ev.ID, "message", ev.Message)
		case telemetry.SeverityWarning:
			log.Warn("status event", "id", ev.ID, "message", ev.Message)
		default:
			log.Info("status event", "id", ev.ID, "message", ev.Message)
		}
	}

	for _, sub := range observers {
		if !s.subscribed(sub) {
			continue
		}
		sub.deliver(snap.Clone())
	}
}

func (s *Simulator) subscribed(sub *subscriber) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observers.has(sub)
}
