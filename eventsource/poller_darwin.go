//go:build darwin

package eventsource

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/corewrk/wstp"
)

// poller wraps a kqueue instance, mirroring poller_linux.go's epoll
// implementation. Adapted from the teacher's poller_darwin.go.
type poller struct {
	kq int

	mu       sync.Mutex
	fds      map[int32]*fdEntry
	wakeRead int32
}

type fdEntry struct {
	events IOEvents
	cb     IOCallback
}

func newPoller() (*poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &poller{kq: kq, fds: make(map[int32]*fdEntry)}, nil
}

func kqueueChanges(fd int, events IOEvents, flags uint16) []unix.Kevent_t {
	var changes []unix.Kevent_t
	if events&(EventRead|EventError|EventHangup) != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&EventWrite != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return changes
}

func (p *poller) registerWake(fd int) error {
	p.mu.Lock()
	p.wakeRead = int32(fd)
	p.mu.Unlock()
	changes := kqueueChanges(fd, EventRead, unix.EV_ADD|unix.EV_CLEAR)
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *poller) register(fd int, events IOEvents, cb IOCallback) error {
	p.mu.Lock()
	if _, ok := p.fds[int32(fd)]; ok {
		p.mu.Unlock()
		return ErrFDAlreadyRegistered
	}
	p.fds[int32(fd)] = &fdEntry{events: events, cb: cb}
	p.mu.Unlock()
	changes := kqueueChanges(fd, events, unix.EV_ADD|unix.EV_CLEAR)
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *poller) modify(fd int, events IOEvents) error {
	p.mu.Lock()
	entry, ok := p.fds[int32(fd)]
	if ok {
		old := entry.events
		entry.events = events
		p.mu.Unlock()
		del, _ := unix.Kevent(p.kq, kqueueChanges(fd, old, unix.EV_DELETE), nil, nil)
		_ = del
	} else {
		p.mu.Unlock()
		return ErrFDNotRegistered
	}
	_, err := unix.Kevent(p.kq, kqueueChanges(fd, events, unix.EV_ADD|unix.EV_CLEAR), nil, nil)
	return err
}

func (p *poller) unregister(fd int) error {
	p.mu.Lock()
	entry, ok := p.fds[int32(fd)]
	delete(p.fds, int32(fd))
	p.mu.Unlock()
	if !ok {
		return ErrFDNotRegistered
	}
	_, err := unix.Kevent(p.kq, kqueueChanges(fd, entry.events, unix.EV_DELETE), nil, nil)
	return err
}

func (p *poller) wait(deadline time.Duration) wstp.Batch {
	var timeout *unix.Timespec
	switch {
	case deadline < 0:
		timeout = nil
	default:
		ts := unix.NsecToTimespec(deadline.Nanoseconds())
		timeout = &ts
	}

	var events [128]unix.Kevent_t
	n, err := unix.Kevent(p.kq, nil, events[:], timeout)
	if err != nil || n <= 0 {
		return wstp.Batch{}
	}

	var ready []fdEntry
	p.mu.Lock()
	for i := 0; i < n; i++ {
		fd := int32(events[i].Ident)
		if fd == p.wakeRead {
			continue
		}
		entry, ok := p.fds[fd]
		if !ok {
			continue
		}
		ev := fromKeventFilter(events[i].Filter)
		ready = append(ready, fdEntry{events: ev, cb: entry.cb})
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
	return unix.Close(p.kq)
}

func fromKeventFilter(filter int16) IOEvents {
	switch filter {
	case unix.EVFILT_READ:
		return EventRead
	case unix.EVFILT_WRITE:
		return EventWrite
	default:
		return 0
	}
}
