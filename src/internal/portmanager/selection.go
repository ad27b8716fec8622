package portmanager

import "fmt"

// Strategy identifies how a Selection searches for a port.
type Strategy string

const (
	StrategyRandom Strategy = "random"
	StrategyList   Strategy = "list"
	StrategyRange  Strategy = "range"
)

// String returns the strategy name.
func (s Strategy) String() string {
	return string(s)
}

// Range is an inclusive span of port numbers.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Selection is the input to GetAvailablePort.
//
// A non-nil Ports (even an empty one) selects the list strategy, a non-nil
// Range selects the range strategy, and leaving both nil selects the random
// strategy. Hostname and Transport apply to every probe the selection issues.
type Selection struct {
	Ports     []int     `json:"ports,omitempty"`
	Range     *Range    `json:"range,omitempty"`
	Hostname  string    `json:"hostname,omitempty"`
	Transport Transport `json:"transport,omitempty"`
}

// SelectionResult is delivered by GetAvailablePortAsync.
// Found is false with a nil Err when every candidate was occupied.
type SelectionResult struct {
	Port  int   `json:"port"`
	Found bool  `json:"found"`
	Err   error `json:"-"`
}

// AnyPort selects a random free port.
func AnyPort() Selection {
	return Selection{}
}

// Candidates selects the first free port among ports, in order.
func Candidates(ports ...int) Selection {
	return Selection{Ports: append([]int{}, ports...)}
}

// InRange selects the lowest free port in [start, end].
func InRange(start, end int) Selection {
	return Selection{Range: &Range{Start: start, End: end}}
}

// Strategy reports which search the selection triggers.
func (s Selection) Strategy() Strategy {
	switch {
	case s.Range != nil:
		return StrategyRange
	case s.Ports != nil:
		return StrategyList
	default:
		return StrategyRandom
	}
}

// ArgumentError reports a selection that can never be satisfied because the
// caller supplied it wrongly. It is returned before any probe runs.
type ArgumentError struct {
	Start  int
	End    int
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid port range %d-%d: %s", e.Start, e.End, e.Reason)
}

// validate checks the range invariant 0 <= start <= end <= 65535.
func (r Range) validate() error {
	if r.Start < MinPort || r.End > MaxPort || r.Start > r.End {
		return &ArgumentError{
			Start:  r.Start,
			End:    r.End,
			Reason: fmt.Sprintf("range should be between %d - %d and start should not exceed end", MinPort, MaxPort),
		}
	}
	return nil
}

// withinRange reports whether port is a valid port number.
func withinRange(port int) bool {
	return port >= MinPort && port <= MaxPort
}
