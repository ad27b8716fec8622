package portmanager

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/jongio/freeport/src/internal/logging"
	"golang.org/x/sync/errgroup"
)

const (
	// MinPort is the lowest port number a probe can meaningfully target.
	MinPort = 0
	// MaxPort is the highest valid TCP/UDP port number (2^16 - 1).
	MaxPort = 65535
)

// Transport names the network a probe binds on.
type Transport string

// TransportTCP is the only transport currently supported.
const TransportTCP Transport = "tcp"

// DefaultTransport is used whenever a request or selection leaves Transport empty.
const DefaultTransport = TransportTCP

// ErrUnsupportedTransport is returned when a probe asks for a transport other than tcp.
var ErrUnsupportedTransport = errors.New("unsupported transport")

// ProbeRequest describes a single bind attempt.
// An empty Hostname binds on all interfaces.
type ProbeRequest struct {
	Port      int       `json:"port"`
	Hostname  string    `json:"hostname,omitempty"`
	Transport Transport `json:"transport,omitempty"`
}

// ProbeResult is delivered by the async and batch probe forms.
type ProbeResult struct {
	ProbeRequest
	Available bool  `json:"available"`
	Err       error `json:"-"`
}

// withDefaults fills in the transport when the caller left it empty.
func (r ProbeRequest) withDefaults() ProbeRequest {
	if r.Transport == "" {
		r.Transport = DefaultTransport
	}
	return r
}

// portChecker performs one probe. Managers use bindProbe unless a test swaps it out.
type portChecker func(ctx context.Context, req ProbeRequest) (bool, error)

// IsPortAvailable reports whether req.Port can be bound, blocking until the
// bind and close complete.
func (m *Manager) IsPortAvailable(req ProbeRequest) (bool, error) {
	return m.IsPortAvailableContext(context.Background(), req)
}

// IsPortAvailableContext is the shared probe logic behind every entry point.
// It returns false only when the bind fails because the address is in use;
// any other failure is returned as an error.
func (m *Manager) IsPortAvailableContext(ctx context.Context, req ProbeRequest) (bool, error) {
	req = req.withDefaults()

	start := time.Now()
	available, err := m.portChecker(ctx, req)
	elapsed := time.Since(start)

	if m.observer != nil {
		m.observer.ObserveProbe(req, available, err, elapsed)
	}
	logging.Debug("probed port",
		"port", req.Port,
		"hostname", req.Hostname,
		"transport", string(req.Transport),
		"available", available,
		"error", err,
	)
	return available, err
}

// IsPortAvailableAsync runs the probe on its own goroutine. The returned
// channel receives exactly one result and is then closed.
func (m *Manager) IsPortAvailableAsync(ctx context.Context, req ProbeRequest) <-chan ProbeResult {
	req = req.withDefaults()
	ch := make(chan ProbeResult, 1)
	go func() {
		defer close(ch)
		available, err := m.IsPortAvailableContext(ctx, req)
		ch <- ProbeResult{ProbeRequest: req, Available: available, Err: err}
	}()
	return ch
}

// ProbeAll probes every request concurrently and returns the results in
// request order. The first probe error cancels the rest and is returned.
func (m *Manager) ProbeAll(ctx context.Context, reqs []ProbeRequest) ([]ProbeResult, error) {
	results := make([]ProbeResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)

	for i, req := range reqs {
		i, req := i, req
		req = req.withDefaults()
		g.Go(func() error {
			available, err := m.IsPortAvailableContext(gctx, req)
			results[i] = ProbeResult{ProbeRequest: req, Available: available, Err: err}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// bindProbe opens and immediately closes a listener for req.
func bindProbe(ctx context.Context, req ProbeRequest) (bool, error) {
	if req.Transport != TransportTCP {
		return false, fmt.Errorf("%w: %q", ErrUnsupportedTransport, req.Transport)
	}

	addr := net.JoinHostPort(req.Hostname, strconv.Itoa(req.Port))

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, string(req.Transport), addr)
	if err != nil {
		if isAddrInUse(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to probe %s %s: %w", req.Transport, addr, err)
	}

	if err := listener.Close(); err != nil {
		return false, fmt.Errorf("failed to close probe listener on %s: %w", addr, err)
	}
	return true, nil
}

// IsPortAvailable probes req with the default manager.
func IsPortAvailable(req ProbeRequest) (bool, error) {
	return defaultManager.IsPortAvailable(req)
}

// IsPortAvailableContext probes req with the default manager.
func IsPortAvailableContext(ctx context.Context, req ProbeRequest) (bool, error) {
	return defaultManager.IsPortAvailableContext(ctx, req)
}

// IsPortAvailableAsync probes req with the default manager without blocking the caller.
func IsPortAvailableAsync(ctx context.Context, req ProbeRequest) <-chan ProbeResult {
	return defaultManager.IsPortAvailableAsync(ctx, req)
}

// ProbeAll probes reqs concurrently with the default manager.
func ProbeAll(ctx context.Context, reqs []ProbeRequest) ([]ProbeResult, error) {
	return defaultManager.ProbeAll(ctx, reqs)
}
