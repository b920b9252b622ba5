//go:build !linux && !darwin

package eventsource

import (
	"time"

	"github.com/corewrk/wstp"
)

// poller is a no-op stand-in on platforms without epoll or kqueue. An
// IOEventSource built on it never reports fd readiness: wait sleeps out a
// positive deadline and returns at once for a zero or negative
// (PollForever) one, and the wakeup in wakeup_other.go is a no-op, so
// Notify does not cut a sleep short.
type poller struct{}

func newPoller() (*poller, error) {
	return &poller{}, nil
}

func (p *poller) registerWake(fd int) error { return nil }

func (p *poller) register(fd int, events IOEvents, cb IOCallback) error {
	return ErrFDNotRegistered
}

func (p *poller) modify(fd int, events IOEvents) error {
	return ErrFDNotRegistered
}

func (p *poller) unregister(fd int) error {
	return ErrFDNotRegistered
}

func (p *poller) wait(deadline time.Duration) wstp.Batch {
	if deadline > 0 {
		time.Sleep(deadline)
	}
	return wstp.Batch{}
}

func (p *poller) close() error { return nil }
