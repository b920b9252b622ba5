//go:build linux

package eventsource

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/corewrk/wstp"
)

// poller wraps an epoll instance. Adapted from the teacher's
// poller_linux.go (eventloop.FastPoller): same epoll_create1/epoll_ctl/
// epoll_wait protocol, simplified from its direct-indexed array (sized for
// up to 65536 fds) to a mutex-protected map, since this scheduler's event
// source is expected to register a modest, dynamic set of fds rather than
// the tens-of-thousands an HTTP server's eventloop might.
type poller struct {
	epfd int

	mu       sync.Mutex
	fds      map[int32]*fdEntry
	wakeRead int32
}

type fdEntry struct {
	events IOEvents
	cb     IOCallback
}

func newPoller() (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &poller{epfd: epfd, fds: make(map[int32]*fdEntry)}, nil
}

func (p *poller) registerWake(fd int) error {
	p.mu.Lock()
	p.wakeRead = int32(fd)
	p.mu.Unlock()
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(fd),
	})
}

func (p *poller) register(fd int, events IOEvents, cb IOCallback) error {
	p.mu.Lock()
	if _, ok := p.fds[int32(fd)]; ok {
		p.mu.Unlock()
		return ErrFDAlreadyRegistered
	}
	p.fds[int32(fd)] = &fdEntry{events: events, cb: cb}
	p.mu.Unlock()

	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: toEpollMask(events),
		Fd:     int32(fd),
	})
}

func (p *poller) modify(fd int, events IOEvents) error {
	p.mu.Lock()
	entry, ok := p.fds[int32(fd)]
	if ok {
		entry.events = events
	}
	p.mu.Unlock()
	if !ok {
		return ErrFDNotRegistered
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: toEpollMask(events),
		Fd:     int32(fd),
	})
}

func (p *poller) unregister(fd int) error {
	p.mu.Lock()
	_, ok := p.fds[int32(fd)]
	delete(p.fds, int32(fd))
	p.mu.Unlock()
	if !ok {
		return ErrFDNotRegistered
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// wait blocks for up to deadline (negative = forever, zero = return
// immediately) and invokes the callback for every ready fd that isn't the
// internal wake fd, collecting whatever tasks those callbacks produce into
// a batch.
func (p *poller) wait(deadline time.Duration) wstp.Batch {
	timeoutMS := deadlineToMillis(deadline)

	var events [128]unix.EpollEvent
	n, err := unix.EpollWait(p.epfd, events[:], timeoutMS)
	if err != nil || n <= 0 {
		return wstp.Batch{}
	}

	var ready []fdEntry
	p.mu.Lock()
	for i := 0; i < n; i++ {
		fd := events[i].Fd
		if fd == p.wakeRead {
			continue
		}
		entry, ok := p.fds[fd]
		if !ok {
			continue
		}
		ready = append(ready, fdEntry{events: fromEpollMask(events[i].Events), cb: entry.cb})
	}
	p.mu.Unlock()

	var batch wstp.Batch
	for _, r := range ready {
		if t := r.cb(r.events); t != nil {
			batch.PushBack(t)
		}
	}
	return batch
}

func (p *poller) close() error {
	return unix.Close(p.epfd)
}

func toEpollMask(e IOEvents) uint32 {
	var m uint32
	if e&EventRead != 0 {
		m |= unix.EPOLLIN
	}
	if e&EventWrite != 0 {
		m |= unix.EPOLLOUT
	}
	if e&EventError != 0 {
		m |= unix.EPOLLERR
	}
	if e&EventHangup != 0 {
		m |= unix.EPOLLHUP
	}
	return m
}

func fromEpollMask(m uint32) IOEvents {
	var e IOEvents
	if m&unix.EPOLLIN != 0 {
		e |= EventRead
	}
	if m&unix.EPOLLOUT != 0 {
		e |= EventWrite
	}
	if m&unix.EPOLLERR != 0 {
		e |= EventError
	}
	if m&unix.EPOLLHUP != 0 {
		e |= EventHangup
	}
	return e
}

func deadlineToMillis(d time.Duration) int {
	switch {
	case d < 0:
		return -1
	case d == 0:
		return 0
	default:
		ms := d.Milliseconds()
		if ms <= 0 {
			return 1
		}
		return int(ms)
	}
}
