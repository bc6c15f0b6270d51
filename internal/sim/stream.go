package sim

import (
	"sync"
	"sync/atomic"

	"truckops-sim/internal/telemetry"
)

// ChanObserver queues snapshots on a buffered channel so a slow consumer
// never stalls the tick. When the buffer is full the oldest queued
// snapshot is dropped.
type ChanObserver struct {
	ch      chan telemetry.MetricsSnapshot
	mu      sync.Mutex
	closed  bool
	dropped atomic.Uint64
	onDrop  func()
}

// NewChanObserver returns a ChanObserver with the given buffer size (min 1).
func NewChanObserver(buf int) *ChanObserver {
	if buf < 1 {
		buf = 1
	}
	return &ChanObserver{ch: make(chan telemetry.MetricsSnapshot, buf)}
}

// NewChanObserver returns a ChanObserver whose drops are counted in the
// simulator's metrics.
func (s *Simulator) NewChanObserver(buf int) *ChanObserver {
	c := NewChanObserver(buf)
	c.onDrop = s.metrics.recordDrop
	return c
}

// Observe implements Observer.
func (c *ChanObserver) Observe(m telemetry.MetricsSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for {
		select {
		case c.ch <- m:
			return
		default:
		}
		select {
		case <-c.ch:
			c.dropped.Add(1)
			if c.onDrop != nil {
				c.onDrop()
			}
		default:
		}
	}
}

// C returns the receive side of the queue. It is closed by Close.
func (c *ChanObserver) C() <-chan telemetry.MetricsSnapshot { return c.ch }

// Dropped returns how many snapshots were discarded.
func (c *ChanObserver) Dropped() uint64 { return c.dropped.Load() }

// Close stops delivery and closes the channel. Safe to call twice.
func (c *ChanObserver) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}
