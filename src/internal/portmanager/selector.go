package portmanager

import (
	"context"
	"errors"
	"fmt"
)

// GetAvailablePort selects a port according to sel, blocking until done.
// It returns found == false with a nil error when no candidate was free.
func (m *Manager) GetAvailablePort(sel Selection) (int, bool, error) {
	return m.GetAvailablePortContext(context.Background(), sel)
}

// GetAvailablePortContext holds the selection logic shared by every entry point.
// Probes run one at a time, in order; a probe error aborts the selection.
func (m *Manager) GetAvailablePortContext(ctx context.Context, sel Selection) (int, bool, error) {
	if sel.Transport == "" {
		sel.Transport = DefaultTransport
	}

	strategy := sel.Strategy()
	port, found, err := m.selectPort(ctx, strategy, sel)
	if m.observer != nil {
		m.observer.ObserveSelection(strategy, port, found, err)
	}
	return port, found, err
}

// GetAvailablePortAsync runs the selection on its own goroutine. The
// returned channel receives exactly one result and is then closed.
func (m *Manager) GetAvailablePortAsync(ctx context.Context, sel Selection) <-chan SelectionResult {
	ch := make(chan SelectionResult, 1)
	go func() {
		defer close(ch)
		port, found, err := m.GetAvailablePortContext(ctx, sel)
		ch <- SelectionResult{Port: port, Found: found, Err: err}
	}()
	return ch
}

func (m *Manager) selectPort(ctx context.Context, strategy Strategy, sel Selection) (int, bool, error) {
	switch strategy {
	case StrategyRange:
		if sel.Ports != nil {
			return 0, false, &ArgumentError{
				Start:  sel.Range.Start,
				End:    sel.Range.End,
				Reason: "a selection cannot combine a range with a candidate list",
			}
		}
		if err := sel.Range.validate(); err != nil {
			return 0, false, err
		}
		return m.scanRange(ctx, *sel.Range, sel)
	case StrategyList:
		return m.scanList(ctx, sel)
	default:
		port, err := m.randomSearch(ctx, sel)
		if err != nil {
			return 0, false, err
		}
		return port, true, nil
	}
}

// randomSearch keeps drawing random candidates until one probes free.
// There is no attempt limit: if the whole port space is occupied it only
// returns when ctx is done.
func (m *Manager) randomSearch(ctx context.Context, sel Selection) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("random port search stopped: %w", err)
		}

		port := randomPort(m.intn)
		available, err := m.probe(ctx, port, sel)
		if err != nil {
			return 0, err
		}
		if available {
			return port, nil
		}
	}
}

// scanList returns the first free candidate. Candidates outside the valid
// port space are skipped without being probed.
func (m *Manager) scanList(ctx context.Context, sel Selection) (int, bool, error) {
	for _, port := range sel.Ports {
		if !withinRange(port) {
			continue
		}
		available, err := m.probe(ctx, port, sel)
		if err != nil {
			return 0, false, err
		}
		if available {
			return port, true, nil
		}
	}
	return 0, false, nil
}

// scanRange returns the lowest free port in r, which must already be valid.
func (m *Manager) scanRange(ctx context.Context, r Range, sel Selection) (int, bool, error) {
	for port := r.Start; port <= r.End; port++ {
		available, err := m.probe(ctx, port, sel)
		if err != nil {
			return 0, false, err
		}
		if available {
			return port, true, nil
		}
	}
	return 0, false, nil
}

// probe issues one selection probe, waiting on the rate limiter first if set.
func (m *Manager) probe(ctx context.Context, port int, sel Selection) (bool, error) {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return false, fmt.Errorf("waiting to probe port %d: %w", port, err)
		}
	}
	return m.IsPortAvailableContext(ctx, ProbeRequest{
		Port:      port,
		Hostname:  sel.Hostname,
		Transport: sel.Transport,
	})
}

// IsArgumentError reports whether err is, or wraps, an *ArgumentError.
func IsArgumentError(err error) bool {
	var argErr *ArgumentError
	return errors.As(err, &argErr)
}

// GetAvailablePort selects a port with the default manager.
func GetAvailablePort(sel Selection) (int, bool, error) {
	return defaultManager.GetAvailablePort(sel)
}

// GetAvailablePortContext selects a port with the default manager.
func GetAvailablePortContext(ctx context.Context, sel Selection) (int, bool, error) {
	return defaultManager.GetAvailablePortContext(ctx, sel)
}

// GetAvailablePortAsync selects a port with the default manager without blocking the caller.
func GetAvailablePortAsync(ctx context.Context, sel Selection) <-chan SelectionResult {
	return defaultManager.GetAvailablePortAsync(ctx, sel)
}
