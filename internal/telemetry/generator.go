package telemetry

import (
	"fmt"
	"math"
	"time"
)

// RandSource yields uniform values in [0,1). *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// TempStepMode selects how the per-tick engine temperature change is drawn.
type TempStepMode string

const (
	// TempStepDiscrete applies the integer-biased helper to the [-0.5,0.5] range,
	// which only ever yields -0.5 or +0.5.
	TempStepDiscrete TempStepMode = "discrete"
	// TempStepContinuous draws uniformly from [-0.5,0.5).
	TempStepContinuous TempStepMode = "continuous"
)

// Alert messages emitted by the generator.
const (
	MsgLowFuel      = "Low fuel warning"
	MsgCriticalTemp = "Engine temperature critical"
)

// Thresholds configures when alerts fire.
type Thresholds struct {
	LowFuel      float64 // warn while fuel is strictly below
	CriticalTemp float64 // error while temperature is strictly above
}

// DefaultThresholds returns the stock alert thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{LowFuel: 10, CriticalTemp: 90}
}

// Generator evolves a MetricsSnapshot one tick at a time.
type Generator struct {
	TempMode   TempStepMode
	Thresholds Thresholds

	rand   RandSource
	now    func() time.Time
	nextID int64
}

// NewGenerator creates a generator whose first status event gets id firstID.
func NewGenerator(r RandSource, now func() time.Time, firstID int64) *Generator {
	if now == nil {
		now = time.Now
	}
	if firstID < 1 {
		firstID = 1
	}
	return &Generator{
		TempMode:   TempStepDiscrete,
		Thresholds: DefaultThresholds(),
		rand:       r,
		now:        now,
		nextID:     firstID,
	}
}

// NextID returns the id the next status event will receive.
func (g *Generator) NextID() int64 { return g.nextID }

// Step mutates m in place by one simulation tick and returns the events it emitted.
func (g *Generator) Step(m *MetricsSnapshot) []StatusEvent {
	now := g.now()
	var emitted []StatusEvent

	m.EngineHealth += g.randomInt(-2, 2)
	m.EngineHealth = math.Max(0, math.Min(100, m.EngineHealth))

	m.FuelLevel -= 0.1
	if m.FuelLevel < g.Thresholds.LowFuel {
		emitted = append(emitted, g.addStatus(m, now, MsgLowFuel, SeverityWarning))
	}

	m.EngineTemp += g.tempStep()
	if m.EngineTemp > g.Thresholds.CriticalTemp {
		emitted = append(emitted, g.addStatus(m, now, MsgCriticalTemp, SeverityError))
	}

	point := PerformancePoint{Label: hourLabel(now), Value: g.randomInt(30, 90)}
	perf := make([]PerformancePoint, 0, PerformanceWindow)
	if len(m.Performance) >= PerformanceWindow {
		perf = append(perf, m.Performance[len(m.Performance)-PerformanceWindow+1:]...)
	} else {
		perf = append(perf, m.Performance...)
	}
	m.Performance = append(perf, point)

	m.Tick++
	m.Timestamp = now.UTC()
	return emitted
}

func (g *Generator) addStatus(m *MetricsSnapshot, now time.Time, msg string, sev Severity) StatusEvent {
	ev := StatusEvent{
		ID:        g.nextID,
		Message:   msg,
		Severity:  sev,
		Timestamp: now.Format("15:04"),
	}
	g.nextID++
	keep := len(m.StatusUpdates)
	if keep > MaxStatusUpdates-1 {
		keep = MaxStatusUpdates - 1
	}
	updates := make([]StatusEvent, 0, keep+1)
	updates = append(updates, ev)
	m.StatusUpdates = append(updates, m.StatusUpdates[:keep]...)
	return ev
}

// randomInt mirrors floor(r*(max-min+1))+min. For integer bounds it is a
// uniform integer in [min,max].
func (g *Generator) randomInt(min, max float64) float64 {
	return math.Floor(g.rand.Float64()*(max-min+1)) + min
}

func (g *Generator) tempStep() float64 {
	if g.TempMode == TempStepContinuous {
		return -0.5 + g.rand.Float64()
	}
	return g.randomInt(-0.5, 0.5)
}

func hourLabel(t time.Time) string {
	return fmt.Sprintf("%02d:00", t.Hour())
}
