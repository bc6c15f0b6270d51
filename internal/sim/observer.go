package sim

import (
	"errors"
	"reflect"
	"sync"

	"truckops-sim/internal/telemetry"
)

// ErrInvalidObserver is returned when an observer cannot be registered.
var ErrInvalidObserver = errors.New("invalid observer")

// Observer receives a private copy of every published snapshot.
type Observer interface {
	Observe(telemetry.MetricsSnapshot)
}

type funcObserver struct {
	fn func(telemetry.MetricsSnapshot)
}

func (f *funcObserver) Observe(m telemetry.MetricsSnapshot) { f.fn(m) }

// ObserveFunc wraps fn in an Observer. Each call returns a distinct
// identity, so keep the result to Unsubscribe later.
func ObserveFunc(fn func(telemetry.MetricsSnapshot)) Observer {
	return &funcObserver{fn: fn}
}

func validateObserver(o Observer) error {
	if o == nil {
		return ErrInvalidObserver
	}
	v := reflect.ValueOf(o)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice, reflect.Interface:
		if v.IsNil() {
			return ErrInvalidObserver
		}
	}
	if !v.Type().Comparable() {
		return ErrInvalidObserver
	}
	if f, ok := o.(*funcObserver); ok && f.fn == nil {
		return ErrInvalidObserver
	}
	return nil
}

// subscriber pairs an observer with its delivery gate. The gate keeps a
// snapshot from overtaking a newer one already handed to the observer.
type subscriber struct {
	o    Observer
	mu   sync.Mutex
	seen bool
	last uint64
}

func (sub *subscriber) deliver(m telemetry.MetricsSnapshot) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.seen && m.Tick <= sub.last {
		return
	}
	sub.seen = true
	sub.last = m.Tick
	sub.o.Observe(m)
}

// registry keeps observers in registration order, unique by identity.
type registry struct {
	order []*subscriber
}

func (r *registry) add(o Observer) (*subscriber, bool) {
	if r.contains(o) {
		return nil, false
	}
	sub := &subscriber{o: o}
	r.order = append(r.order, sub)
	return sub, true
}

func (r *registry) remove(o Observer) bool {
	for i, x := range r.order {
		if x.o == o {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			return true
		}
	}
	return false
}

func (r *registry) contains(o Observer) bool {
	for _, x := range r.order {
		if x.o == o {
			return true
		}
	}
	return false
}

func (r *registry) has(sub *subscriber) bool {
	for _, x := range r.order {
		if x == sub {
			return true
		}
	}
	return false
}

func (r *registry) list() []*subscriber {
	out := make([]*subscriber, len(r.order))
	copy(out, r.order)
	return out
}

func (r *registry) len() int { return len(r.order) }
