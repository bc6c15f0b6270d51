package sim

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Binding ties one consumer to the simulator for the consumer's lifetime.
type Binding struct {
	ID  string
	sim *Simulator
	obs Observer
	mu  sync.Mutex
	off bool
}

// Attach subscribes o, takes a consumer reference and starts ticking
// unless the simulator was paused by Stop. Each binding needs its own observer.
func (s *Simulator) Attach(o Observer) (*Binding, error) {
	added, err := s.subscribe(o)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, fmt.Errorf("%w: observer already subscribed", ErrInvalidObserver)
	}
	n := s.acquire()
	b := &Binding{ID: uuid.New().String(), sim: s, obs: o}
	s.log().Debug("consumer attached", "binding_id", b.ID, "consumers", n)
	return b, nil
}

// Detach unsubscribes the observer and releases the consumer reference.
// Ticking stops once no consumers remain. Detach is idempotent.
func (b *Binding) Detach() {
	b.mu.Lock()
	if b.off {
		b.mu.Unlock()
		return
	}
	b.off = true
	b.mu.Unlock()

	b.sim.Unsubscribe(b.obs)
	n := b.sim.release()
	b.sim.log().Debug("consumer detached", "binding_id", b.ID, "consumers", n)
}

// Consumers returns the number of attached consumers.
func (s *Simulator) Consumers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumers
}

// acquire takes a consumer reference and starts ticking unless paused.
func (s *Simulator) acquire() int {
	s.mu.Lock()
	s.consumers++
	n := s.consumers
	changed := false
	if !s.paused {
		changed = s.startLocked()
	}
	fn := s.onRunning
	s.mu.Unlock()
	notifyRunning(fn, changed, true)
	return n
}

func (s *Simulator) release() int {
	s.mu.Lock()
	if s.consumers > 0 {
		s.consumers--
	}
	n := s.consumers
	changed := false
	if n == 0 {
		changed = s.stopLocked()
	}
	fn := s.onRunning
	s.mu.Unlock()
	notifyRunning(fn, changed, false)
	return n
}
