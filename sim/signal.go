package sim

import (
	"alma.local/shatb/tracer"
)

// Signal is a named wire or bus in the simulated clock domain. Values are
// only written by the side that owns the port; the scheduler serializes
// access, so no locking is needed.
type Signal[T comparable] struct {
	name     string
	id       uint64
	val      T
	edges    uint64
	watchers []chan struct{}
	sim      *Sim
}

func newSignal[T comparable](s *Sim, name string) *Signal[T] {
	return &Signal[T]{name: name, id: tracer.SignalID(name), sim: s}
}

// Name returns the signal name.
func (s *Signal[T]) Name() string {
	return s.name
}

// Value returns the current value.
func (s *Signal[T]) Value() T {
	return s.val
}

// Edges returns how many rising edges the signal has seen.
func (s *Signal[T]) Edges() uint64 {
	return s.edges
}

// Set drives a new value. A low-to-high transition of a one-bit signal is
// a rising edge and wakes everything waiting on it.
func (s *Signal[T]) Set(v T) {
	old := s.val
	if old == v {
		return
	}
	s.val = v
	s.sim.record(s.id, s.name, v)
	if rising(old, v) {
		s.edges++
		for _, ch := range s.watchers {
			close(ch)
		}
		s.watchers = nil
	}
}

// watch returns a channel closed on the next rising edge.
func (s *Signal[T]) watch() <-chan struct{} {
	ch := make(chan struct{})
	s.watchers = append(s.watchers, ch)
	return ch
}

func rising[T comparable](old, v T) bool {
	o, ok := any(old).(bool)
	if !ok {
		return false
	}
	n := any(v).(bool)
	return !o && n
}
