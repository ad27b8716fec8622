//go:build !unix && !windows

package portmanager

import "strings"

// isAddrInUse falls back to the error text on platforms without a usable errno.
func isAddrInUse(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "address already in use")
}
