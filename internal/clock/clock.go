// Package clock supplies the engine's injected time collaborator.
// The core never reads wall-clock time directly; every component that
// needs "now" takes a clock.Clock so that replay is deterministic.
package clock

import "time"

// Clock yields the current time as milliseconds since the Unix epoch,
// matching spec's `clock() -> millis` collaborator interface exactly.
type Clock interface {
	Now() int64
}

// System is the production clock, backed by time.Now.
type System struct{}

// Now returns the current wall-clock time in milliseconds.
func (System) Now() int64 {
	return time.Now().UnixMilli()
}

// Fixed always returns the same instant. Useful for tests that need a
// stationary clock with no per-call advancement.
type Fixed struct {
	Millis int64
}

// Now returns the fixed instant.
func (f Fixed) Now() int64 {
	return f.Millis
}

// Stepping advances by a fixed duration on every call, realizing
// scenarios like "clock starts at T, incrementing 1000ms per call".
// Not safe for concurrent use — the engine is single-threaded per
// learner by contract (see §5 Concurrency & Resource Model).
type Stepping struct {
	current int64
	step    int64
}

// NewStepping creates a Stepping clock starting at startMillis, advancing
// by stepMillis on each call to Now (the first call returns startMillis).
func NewStepping(startMillis, stepMillis int64) *Stepping {
	return &Stepping{current: startMillis - stepMillis, step: stepMillis}
}

// Now advances the clock by one step and returns the new instant.
func (s *Stepping) Now() int64 {
	s.current += s.step
	return s.current
}
