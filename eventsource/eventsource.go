// Package eventsource provides a pluggable, fd-backed external event
// source for the scheduler: a poller (epoll on Linux, kqueue on Darwin,
// a no-op stub elsewhere) plus a wake fd used to interrupt a blocked
// poll/wait when the scheduler needs the poller goroutine's attention
// sooner than its next natural deadline.
//
// Adapted from the teacher's eventloop package (poller_linux.go,
// poller_darwin.go, wakeup_linux.go, wakeup_darwin.go), generalized from
// an HTTP-request-serving event loop to a generic IOEventSource
// implementing github.com/corewrk/wstp.EventSource.
package eventsource

import (
	"errors"

	"github.com/corewrk/wstp"
)

// IOEvents is a bitmask of fd readiness conditions, mirroring epoll/kqueue
// filter semantics closely enough to translate to either without loss.
type IOEvents uint32

const (
	EventRead IOEvents = 1 << iota
	EventWrite
	EventError
	EventHangup
)

// IOCallback is invoked by the poller when its fd becomes ready. It may
// return a task to hand to the scheduler (e.g. one that finishes an I/O
// operation and resumes whatever was waiting on it), or nil if the
// readiness notification doesn't itself produce schedulable work.
type IOCallback func(IOEvents) *wstp.Task

var (
	// ErrFDNotRegistered is returned by modify/unregister for an fd the
	// poller doesn't know about.
	ErrFDNotRegistered = errors.New("eventsource: fd not registered")
	// ErrFDAlreadyRegistered is returned by register for an fd already
	// tracked by the poller.
	ErrFDAlreadyRegistered = errors.New("eventsource: fd already registered")
	// ErrClosed is returned by Register on a closed IOEventSource.
	ErrClosed = errors.New("eventsource: closed")
)
