package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jongio/freeport/src/internal/portkill"
	"github.com/jongio/freeport/src/internal/portmanager"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ portmanager.Observer = (*Recorder)(nil)
	_ portkill.Observer    = (*Recorder)(nil)
)

func TestObserveProbe(t *testing.T) {
	r := NewRecorder()
	req := portmanager.ProbeRequest{Port: 3000, Transport: portmanager.TransportTCP}

	r.ObserveProbe(req, true, nil, time.Millisecond)
	r.ObserveProbe(req, false, nil, time.Millisecond)
	r.ObserveProbe(req, false, nil, time.Millisecond)
	r.ObserveProbe(req, false, errors.New("boom"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.probes.WithLabelValues("tcp", ResultAvailable)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.probes.WithLabelValues("tcp", ResultInUse)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.probes.WithLabelValues("tcp", ResultError)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.probeDuration))
}

func TestObserveSelection(t *testing.T) {
	r := NewRecorder()

	r.ObserveSelection(portmanager.StrategyList, 3000, true, nil)
	r.ObserveSelection(portmanager.StrategyList, 0, false, nil)
	r.ObserveSelection(portmanager.StrategyRange, 0, false, &portmanager.ArgumentError{Start: 4000, End: 3000})
	r.ObserveSelection(portmanager.StrategyRandom, 0, false, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.selections.WithLabelValues("list", ResultFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.selections.WithLabelValues("list", ResultNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.selections.WithLabelValues("range", ResultInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.selections.WithLabelValues("random", ResultError)))
}

func TestObserveKill(t *testing.T) {
	r := NewRecorder()

	r.ObserveKill(3000, []int{10, 11}, true, nil)
	r.ObserveKill(3000, nil, false, nil)
	r.ObserveKill(3000, []int{12}, false, errors.New("denied"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.kills.WithLabelValues(ResultFreed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.kills.WithLabelValues(ResultStillInUse)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.kills.WithLabelValues(ResultError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.killedPIDs), "failed kills should not count PIDs")
}

func TestRecorderWiredIntoManager(t *testing.T) {
	r := NewRecorder()
	pm := portmanager.New(portmanager.WithObserver(r))

	// Port 0 asks the OS for any free port, so the bind always succeeds.
	available, err := pm.IsPortAvailable(portmanager.ProbeRequest{Port: 0})
	require.NoError(t, err)
	require.True(t, available)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.probes.WithLabelValues("tcp", ResultAvailable)))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveSelection(portmanager.StrategyRange, 3000, true, nil)

	path := filepath.Join(t.TempDir(), "freeport.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `freeport_selections_total{result="found",strategy="range"} 1`)

	assert.Error(t, r.WriteTextfile(""))
}
