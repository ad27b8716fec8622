//go:build windows

package portmanager

import (
	"errors"

	"golang.org/x/sys/windows"
)

// isAddrInUse reports whether err is the bind failure for an occupied port.
// Winsock reports WSAEADDRINUSE rather than the POSIX errno.
func isAddrInUse(err error) bool {
	return errors.Is(err, windows.WSAEADDRINUSE)
}
