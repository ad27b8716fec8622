package portkill

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// NetstatEntry is one connection row from `netstat -a -n -o` on Windows.
// UDP rows have no state column, so State is empty for them.
type NetstatEntry struct {
	Proto       string `json:"proto"`
	LocalAddr   string `json:"localAddr"`
	ForeignAddr string `json:"foreignAddr"`
	State       string `json:"state,omitempty"`
	PID         int    `json:"pid"`
}

// ParseLsofPIDs reads the one-PID-per-line output of `lsof -t`.
// Duplicates are dropped and the first-seen order is kept.
func ParseLsofPIDs(out []byte) ([]int, error) {
	var pids []int
	seen := make(map[int]bool)

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		pid, err := strconv.Atoi(line)
		if err != nil || pid <= 0 {
			return nil, fmt.Errorf("invalid PID %q in lsof output", line)
		}
		if !seen[pid] {
			seen[pid] = true
			pids = append(pids, pid)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lsof output: %w", err)
	}
	return pids, nil
}

// ParseNetstat extracts connection rows from netstat output.
// Headers, blank lines, and anything else that is not a TCP or UDP row are skipped.
func ParseNetstat(out []byte) []NetstatEntry {
	var entries []NetstatEntry

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}

		proto := strings.ToUpper(fields[0])
		if !strings.HasPrefix(proto, "TCP") && !strings.HasPrefix(proto, "UDP") {
			continue
		}

		// netstat -ano TCP rows read Proto, Local, Foreign, State, PID, so the
		// fourth field is the state. UDP rows have no state. The PID is
		// always the last column.
		pid, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			continue
		}

		entry := NetstatEntry{
			Proto:       proto,
			LocalAddr:   fields[1],
			ForeignAddr: fields[2],
			PID:         pid,
		}
		if len(fields) >= 5 {
			entry.State = fields[3]
		}
		entries = append(entries, entry)
	}
	return entries
}

// FindNetstatPID returns the PID of the first TCP entry whose local address
// is bound to port. The port must be the whole final component of the
// address, so 3000 does not match 30001. Rows owned by PID 0 (the idle
// process, shown for TIME_WAIT sockets) are skipped.
func FindNetstatPID(entries []NetstatEntry, port int) (int, bool) {
	suffix := ":" + strconv.Itoa(port)
	for _, e := range entries {
		if !strings.HasPrefix(e.Proto, "TCP") {
			continue
		}
		if !strings.HasSuffix(e.LocalAddr, suffix) || e.PID <= 0 {
			continue
		}
		return e.PID, true
	}
	return 0, false
}
