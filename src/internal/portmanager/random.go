package portmanager

import "math/rand"

// defaultIntN draws from the process-wide generator, which is safe for
// concurrent use.
func defaultIntN(n int) int {
	return rand.Intn(n) // #nosec G404 -- port selection does not need a CSPRNG
}

// randomPort returns a candidate uniformly distributed over [MinPort, MaxPort].
func randomPort(intn func(n int) int) int {
	return MinPort + intn(MaxPort-MinPort+1)
}
