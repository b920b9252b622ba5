package eventsource

import (
	"sync"
	"time"

	"github.com/corewrk/wstp"
)

// IOEventSource implements wstp.EventSource on top of the platform poller
// and a wake fd, letting workers block in epoll_wait/kevent while still
// being interruptible by Notify the instant the scheduler has new local
// work. On platforms without either, Poll only sleeps out a positive
// deadline and Notify does not interrupt it.
//
// Adapted from the teacher's eventloop.EventLoop, which combines the same
// two pieces (FastPoller plus a wake eventfd) to let an HTTP server block
// in epoll_wait between requests.
type IOEventSource struct {
	p *poller

	wakeReadFD  int
	wakeWriteFD int

	mu           sync.Mutex
	closed       bool
	shuttingDown bool
}

// NewIOEventSource creates a poller and wake fd pair appropriate for the
// host platform and returns an IOEventSource ready to register fds on.
func NewIOEventSource() (*IOEventSource, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}

	readFD, writeFD, err := createWakeFD()
	if err != nil {
		_ = p.close()
		return nil, err
	}
	if err := p.registerWake(readFD); err != nil {
		closeWakeFD(readFD, writeFD)
		_ = p.close()
		return nil, err
	}

	return &IOEventSource{p: p, wakeReadFD: readFD, wakeWriteFD: writeFD}, nil
}

// Register tracks fd for the given readiness events, invoking cb from
// within Poll when it fires.
func (s *IOEventSource) Register(fd int, events IOEvents, cb IOCallback) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return s.p.register(fd, events, cb)
}

// Modify updates the readiness mask fd is watched for.
func (s *IOEventSource) Modify(fd int, events IOEvents) error {
	return s.p.modify(fd, events)
}

// Unregister stops tracking fd.
func (s *IOEventSource) Unregister(fd int) error {
	return s.p.unregister(fd)
}

// Poll implements wstp.EventSource: it blocks up to deadline (0 returns
// immediately if nothing is ready, wstp.PollForever blocks until either a
// registered fd fires or Notify is called) and returns whatever tasks the
// fired callbacks produced.
func (s *IOEventSource) Poll(deadline time.Duration) wstp.Batch {
	s.mu.Lock()
	shuttingDown := s.shuttingDown
	s.mu.Unlock()
	if shuttingDown {
		return wstp.Batch{}
	}

	batch := s.p.wait(deadline)
	drainWakeFD(s.wakeReadFD)
	return batch
}

// Notify implements wstp.EventSource: it wakes a goroutine currently
// blocked in Poll, even one blocked indefinitely, safe to call from any
// goroutine concurrently with Poll itself. With shutdown true, every later
// Poll returns an empty batch immediately; the source stays open until
// Close.
func (s *IOEventSource) Notify(shutdown bool) {
	s.mu.Lock()
	if shutdown {
		s.shuttingDown = true
	}
	s.mu.Unlock()
	_ = signalWakeFD(s.wakeWriteFD)
}

// Close releases the poller and wake fd. Poll must not be called again
// afterward.
func (s *IOEventSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	closeWakeFD(s.wakeReadFD, s.wakeWriteFD)
	return s.p.close()
}

var _ wstp.EventSource = (*IOEventSource)(nil)
