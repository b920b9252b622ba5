package wstp

import "time"

// PollForever, passed to EventSource.Poll, requests a blocking poll. Zero
// requests a non-blocking one; any other positive value is a bounded wait.
const PollForever time.Duration = -1

// EventSource is the scheduler's external collaborator for integrating
// non-CPU work (I/O, timers) into the worker run loop. It is out of scope
// for this package's own implementation beyond this contract; see the
// eventsource subpackage for an epoll/kqueue-backed one.
type EventSource interface {
	// Poll returns a batch of tasks whose waits have completed. deadline
	// == 0 must not block; deadline == PollForever may block
	// indefinitely until either something becomes ready or Notify is
	// called from another goroutine.
	Poll(deadline time.Duration) Batch

	// Notify wakes a goroutine currently blocked inside Poll. shutdown
	// == true marks the wake as permanent: every future Poll call on a
	// shutting-down source should return immediately.
	Notify(shutdown bool)
}

// TraceEvent identifies a point in a worker's run loop. Event ordering per
// worker matches the order listed here: START once, then any interleaving
// of PARK/UNPARK/EXECUTE, then STOP once as the final emission from that
// worker's thread.
type TraceEvent int

const (
	// OnWorkerStart fires once, before a worker's run loop begins.
	OnWorkerStart TraceEvent = iota
	// OnWorkerPark fires immediately before a worker suspends.
	OnWorkerPark
	// OnWorkerUnpark fires immediately after a worker resumes from
	// suspension.
	OnWorkerUnpark
	// OnWorkerExecute fires immediately before a worker invokes a task's
	// callback. TraceRecord.Task is populated.
	OnWorkerExecute
	// OnWorkerStop fires once, as the last emission from a worker's
	// thread before it returns.
	OnWorkerStop
)

// String renders a TraceEvent the way debug logging expects to print it.
func (e TraceEvent) String() string {
	switch e {
	case OnWorkerStart:
		return "worker_start"
	case OnWorkerPark:
		return "worker_park"
	case OnWorkerUnpark:
		return "worker_unpark"
	case OnWorkerExecute:
		return "worker_execute"
	case OnWorkerStop:
		return "worker_stop"
	default:
		return "unknown"
	}
}

// TraceRecord is the value passed to a TraceCallback. Task is only
// non-nil for OnWorkerExecute.
type TraceRecord struct {
	Event    TraceEvent
	WorkerID int
	Task     *Task
}

// TraceCallback receives trace records synchronously, on the originating
// worker's own goroutine, immediately before the described action. It
// must not call back into the scheduler (Schedule, ScheduleTo,
// ScheduleBatch, Shutdown): doing so is a programmer-contract violation.
// Under the wstpdebug build tag, Worker's Schedule, ScheduleNext,
// ScheduleTo and ScheduleBatch panic with a *ContractViolation when called
// from a trace callback; Shutdown and the Scheduler methods are not
// checked, and without that tag nothing is.
type TraceCallback func(TraceRecord)
