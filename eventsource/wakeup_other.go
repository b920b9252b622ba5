//go:build !linux && !darwin

package eventsource

// createWakeFD has no portable fd-based implementation outside
// Linux/Darwin. poller_other.go's poller ignores registerWake entirely and
// Poll falls back to a plain timed sleep, so no real fd is ever needed
// here; the -1 sentinel just has to round-trip through Close without
// erroring.
func createWakeFD() (readFD, writeFD int, err error) {
	return -1, -1, nil
}

func closeWakeFD(readFD, writeFD int) {}

func signalWakeFD(writeFD int) error { return nil }

func drainWakeFD(readFD int) {}
