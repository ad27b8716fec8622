//go:build unix

package portmanager

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isAddrInUse reports whether err is the bind failure for an occupied port.
func isAddrInUse(err error) bool {
	return errors.Is(err, unix.EADDRINUSE)
}
