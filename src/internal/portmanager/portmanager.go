// Package portmanager probes local ports and selects an available one.
//
// A probe is a point-in-time bind: a port reported free may be claimed by
// another process before the caller binds it. Selection supports three
// strategies, chosen by the shape of the Selection:
//
//   - no ports and no range: draw random ports until one is free
//   - a candidate list: the first free candidate, in list order
//   - a range: the lowest free port in [Start, End]
//
// Every operation has a blocking form, a Context form holding the shared
// logic, and an Async form that returns a channel instead of blocking.
package portmanager

import (
	"time"

	"golang.org/x/time/rate"
)

// Observer receives the outcome of every probe and selection a Manager runs.
type Observer interface {
	ObserveProbe(req ProbeRequest, available bool, err error, elapsed time.Duration)
	ObserveSelection(strategy Strategy, port int, found bool, err error)
}

// Manager runs probes and selections. It holds configuration only; no
// state is carried between calls. The zero value is not usable, use New.
type Manager struct {
	// portChecker performs one probe.
	// This can be overridden in tests to avoid network binding.
	portChecker portChecker
	intn        func(n int) int
	limiter     *rate.Limiter
	observer    Observer
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver reports every probe and selection to o.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

// WithProbeRate limits probes issued by selections to perSecond.
// Zero or a negative value disables pacing.
func WithProbeRate(perSecond float64) Option {
	return func(m *Manager) {
		if perSecond <= 0 {
			m.limiter = nil
			return
		}
		m.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithRandom replaces the random source used by the random strategy.
// intn must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(m *Manager) {
		if intn != nil {
			m.intn = intn
		}
	}
}

// New creates a Manager that binds real sockets.
func New(opts ...Option) *Manager {
	m := &Manager{
		portChecker: bindProbe,
		intn:        defaultIntN,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var defaultManager = New()
