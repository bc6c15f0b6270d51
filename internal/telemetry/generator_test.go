package telemetry

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

// seqSource cycles through fixed values.
type seqSource struct {
	vals []float64
	i    int
}

func (s *seqSource) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 14, 7, 0, 0, time.UTC)
}

func TestStepWithZeroSource(t *testing.T) {
	gen := NewGenerator(constSource(0), fixedClock, 4)
	m := InitialSnapshot("truck-1")

	events := gen.Step(&m)

	if len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
	if math.Abs(m.FuelLevel-91.9) > 1e-9 {
		t.Errorf("expected fuel 91.9, got %f", m.FuelLevel)
	}
	if m.EngineHealth != 83 {
		t.Errorf("expected engine health 83, got %f", m.EngineHealth)
	}
	if m.EngineTemp != 24.0 {
		t.Errorf("expected engine temp 24.0, got %f", m.EngineTemp)
	}
	if len(m.Performance) != PerformanceWindow {
		t.Fatalf("expected %d performance points, got %d", PerformanceWindow, len(m.Performance))
	}
	if m.Performance[0].Label != "04:00" {
		t.Errorf("expected oldest point dropped, first label %s", m.Performance[0].Label)
	}
	last := m.Performance[PerformanceWindow-1]
	if last.Label != "14:00" || last.Value != 30 {
		t.Errorf("unexpected newest point: %+v", last)
	}
	if m.Tick != 1 {
		t.Errorf("expected tick 1, got %d", m.Tick)
	}
	if !m.Timestamp.Equal(fixedClock()) {
		t.Errorf("unexpected timestamp %v", m.Timestamp)
	}
}

// randomInt floors r*(max-min+1) before adding min, so the
// temperature step over [-0.5,0.5] is never zero: it is exactly -0.5 or +0.5.
func TestDiscreteTempStepIsHalfDegree(t *testing.T) {
	cases := map[float64]float64{
		0:     -0.5,
		0.49:  -0.5,
		0.5:   0.5,
		0.999: 0.5,
	}
	for r, want := range cases {
		gen := NewGenerator(constSource(r), fixedClock, 4)
		if got := gen.tempStep(); got != want {
			t.Errorf("tempStep(r=%v)=%v, want %v", r, got, want)
		}
	}
}

func TestContinuousTempStep(t *testing.T) {
	gen := NewGenerator(rand.New(rand.NewSource(7)), fixedClock, 4)
	gen.TempMode = TempStepContinuous
	for i := 0; i < 1000; i++ {
		step := gen.tempStep()
		if step < -0.5 || step >= 0.5 {
			t.Fatalf("continuous step out of range: %f", step)
		}
	}
	gen = NewGenerator(constSource(0.5), fixedClock, 4)
	gen.TempMode = TempStepContinuous
	if step := gen.tempStep(); step != 0 {
		t.Errorf("expected zero step at r=0.5, got %f", step)
	}
}

func TestRandomIntBounds(t *testing.T) {
	gen := NewGenerator(rand.New(rand.NewSource(1)), fixedClock, 4)
	seen := map[float64]bool{}
	for i := 0; i < 2000; i++ {
		v := gen.randomInt(-2, 2)
		if v < -2 || v > 2 || v != math.Trunc(v) {
			t.Fatalf("randomInt(-2,2) produced %f", v)
		}
		seen[v] = true
	}
	if len(seen) != 5 {
		t.Errorf("expected all 5 values, saw %v", seen)
	}
}

func TestEngineHealthClamped(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		gen := NewGenerator(rand.New(rand.NewSource(seed)), fixedClock, 4)
		m := InitialSnapshot("truck-1")
		for i := 0; i < 500; i++ {
			gen.Step(&m)
			if m.EngineHealth < 0 || m.EngineHealth > 100 {
				t.Fatalf("seed %d tick %d: engine health %f out of range", seed, i, m.EngineHealth)
			}
		}
	}
	high := NewGenerator(constSource(0.999), fixedClock, 4)
	m := InitialSnapshot("truck-1")
	for i := 0; i < 20; i++ {
		high.Step(&m)
	}
	if m.EngineHealth != 100 {
		t.Errorf("expected health to saturate at 100, got %f", m.EngineHealth)
	}
}

func TestLowFuelWarning(t *testing.T) {
	gen := NewGenerator(&seqSource{vals: []float64{0.5}}, fixedClock, 4)
	m := InitialSnapshot("truck-1")
	m.FuelLevel = 10.05

	events := gen.Step(&m)

	if len(events) != 1 {
		t.Fatalf("expected one event, got %+v", events)
	}
	head := m.StatusUpdates[0]
	if head.Severity != SeverityWarning || head.Message != MsgLowFuel {
		t.Errorf("unexpected head event: %+v", head)
	}
	if head.ID != 4 {
		t.Errorf("expected id 4, got %d", head.ID)
	}
	if head.Timestamp != "14:07" {
		t.Errorf("expected timestamp 14:07, got %s", head.Timestamp)
	}
	if gen.NextID() != 5 {
		t.Errorf("expected next id 5, got %d", gen.NextID())
	}
}

func TestCriticalTempError(t *testing.T) {
	gen := NewGenerator(constSource(0.9), fixedClock, 4)
	m := InitialSnapshot("truck-1")
	m.EngineTemp = 90

	gen.Step(&m)

	if m.EngineTemp != 90.5 {
		t.Fatalf("expected temp 90.5, got %f", m.EngineTemp)
	}
	head := m.StatusUpdates[0]
	if head.Severity != SeverityError || head.Message != MsgCriticalTemp {
		t.Errorf("unexpected head event: %+v", head)
	}
}

func TestStatusUpdatesCappedAndOrdered(t *testing.T) {
	gen := NewGenerator(rand.New(rand.NewSource(3)), fixedClock, 4)
	m := InitialSnapshot("truck-1")
	m.FuelLevel = 5
	m.EngineTemp = 120

	var lastID int64 = 3
	for i := 0; i < 50; i++ {
		events := gen.Step(&m)
		for _, ev := range events {
			if ev.ID <= lastID {
				t.Fatalf("ids not strictly increasing: %d after %d", ev.ID, lastID)
			}
			lastID = ev.ID
		}
		if len(m.StatusUpdates) > MaxStatusUpdates {
			t.Fatalf("status list grew to %d", len(m.StatusUpdates))
		}
		if m.StatusUpdates[0].ID != lastID {
			t.Fatalf("head id %d, want newest %d", m.StatusUpdates[0].ID, lastID)
		}
		for j := 1; j < len(m.StatusUpdates); j++ {
			if m.StatusUpdates[j].ID >= m.StatusUpdates[j-1].ID {
				t.Fatalf("status list not newest-first: %+v", m.StatusUpdates)
			}
		}
		if len(m.Performance) != PerformanceWindow {
			t.Fatalf("performance length %d", len(m.Performance))
		}
	}
	if len(m.StatusUpdates) != MaxStatusUpdates {
		t.Errorf("expected full status list, got %d", len(m.StatusUpdates))
	}
}

func TestPerformanceSlidesChronologically(t *testing.T) {
	hour := 0
	clock := func() time.Time {
		return time.Date(2024, 5, 1, hour, 0, 0, 0, time.UTC)
	}
	gen := NewGenerator(constSource(0), clock, 4)
	m := InitialSnapshot("truck-1")
	for hour = 1; hour <= 9; hour++ {
		gen.Step(&m)
	}
	want := []string{"03:00", "04:00", "05:00", "06:00", "07:00", "08:00", "09:00"}
	for i, p := range m.Performance {
		if p.Label != want[i] {
			t.Fatalf("performance labels %+v, want %v", m.Performance, want)
		}
	}
}

func TestFuelUnclamped(t *testing.T) {
	gen := NewGenerator(constSource(0.5), fixedClock, 4)
	m := InitialSnapshot("truck-1")
	m.FuelLevel = 0.05
	gen.Step(&m)
	if m.FuelLevel >= 0 {
		t.Errorf("expected fuel to drift below zero, got %f", m.FuelLevel)
	}
}
