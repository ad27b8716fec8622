// Package metrics counts probes, selections, and kills in a Prometheus
// registry that can be written out in the node-exporter textfile format.
package metrics

import (
	"errors"
	"time"

	"github.com/jongio/freeport/src/internal/portmanager"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "freeport"

// Outcome label values.
const (
	ResultAvailable  = "available"
	ResultInUse      = "in_use"
	ResultFound      = "found"
	ResultNotFound   = "not_found"
	ResultFreed      = "freed"
	ResultStillInUse = "still_in_use"
	ResultInvalid    = "invalid"
	ResultError      = "error"
)

// Recorder implements portmanager.Observer and portkill.Observer.
type Recorder struct {
	registry      *prometheus.Registry
	probes        *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	selections    *prometheus.CounterVec
	kills         *prometheus.CounterVec
	killedPIDs    prometheus.Counter
}

// NewRecorder creates a Recorder backed by its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		probes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Port probes by transport and result.",
		}, []string{"transport", "result"}),
		probeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Time spent binding and releasing a probe listener.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"transport"}),
		selections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Port selections by strategy and result.",
		}, []string{"strategy", "result"}),
		kills: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kills_total",
			Help:      "Kill-on-port attempts by result.",
		}, []string{"result"}),
		killedPIDs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "killed_processes_total",
			Help:      "Processes signalled while freeing ports.",
		}),
	}
}

// Registry exposes the underlying registry, for tests and HTTP exposition.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveProbe records one probe.
func (r *Recorder) ObserveProbe(req portmanager.ProbeRequest, available bool, err error, elapsed time.Duration) {
	transport := string(req.Transport)

	result := ResultInUse
	switch {
	case err != nil:
		result = ResultError
	case available:
		result = ResultAvailable
	}

	r.probes.WithLabelValues(transport, result).Inc()
	r.probeDuration.WithLabelValues(transport).Observe(elapsed.Seconds())
}

// ObserveSelection records one selection.
func (r *Recorder) ObserveSelection(strategy portmanager.Strategy, _ int, found bool, err error) {
	result := ResultNotFound
	switch {
	case portmanager.IsArgumentError(err):
		result = ResultInvalid
	case err != nil:
		result = ResultError
	case found:
		result = ResultFound
	}
	r.selections.WithLabelValues(strategy.String(), result).Inc()
}

// ObserveKill records one kill attempt.
func (r *Recorder) ObserveKill(_ int, pids []int, freed bool, err error) {
	result := ResultStillInUse
	switch {
	case err != nil:
		result = ResultError
	case freed:
		result = ResultFreed
	}
	r.kills.WithLabelValues(result).Inc()

	if err == nil {
		r.killedPIDs.Add(float64(len(pids)))
	}
}

// WriteTextfile atomically writes every metric to path in the text
// exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return errors.New("metrics file path is empty")
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
