package sim

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"truckops-sim/internal/telemetry"
)

const instrumentationName = "truckops-sim/internal/sim"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type simMetrics struct {
	ticks     metric.Int64Counter
	events    metric.Int64Counter
	dropped   metric.Int64Counter
	observers metric.Int64ObservableGauge
}

// newSimMetrics registers instruments on the global meter, which is a no-op
// unless an SDK provider has been installed.
func newSimMetrics(s *Simulator) *simMetrics {
	m, err := buildSimMetrics(meter(), s)
	if err != nil {
		slog.Warn("metrics disabled", "err", err)
		m, _ = buildSimMetrics(noop.NewMeterProvider().Meter(instrumentationName), s)
	}
	return m
}

func buildSimMetrics(mt metric.Meter, s *Simulator) (*simMetrics, error) {
	var (
		m   simMetrics
		err error
	)
	m.ticks, err = mt.Int64Counter("sim.ticks", metric.WithDescription("Simulation steps performed"))
	if err != nil {
		return nil, err
	}
	m.events, err = mt.Int64Counter("sim.status_events", metric.WithDescription("Status events emitted"))
	if err != nil {
		return nil, err
	}
	m.dropped, err = mt.Int64Counter("sim.snapshots.dropped", metric.WithDescription("Snapshots dropped by full stream buffers"))
	if err != nil {
		return nil, err
	}
	m.observers, err = mt.Int64ObservableGauge("sim.observers", metric.WithDescription("Registered observers"))
	if err != nil {
		return nil, err
	}
	_, err = mt.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		o.ObserveInt64(m.observers, int64(s.ObserverCount()),
			metric.WithAttributes(attribute.String("vehicle_id", s.vehicleID)))
		return nil
	}, m.observers)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *simMetrics) recordTick(ctx context.Context, events []telemetry.StatusEvent) {
	m.ticks.Add(ctx, 1)
	for _, ev := range events {
		m.events.Add(ctx, 1, metric.WithAttributes(attribute.String("severity", string(ev.Severity))))
	}
}

func (m *simMetrics) recordDrop() {
	m.dropped.Add(context.Background(), 1)
}
