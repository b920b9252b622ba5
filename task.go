package wstp

import "unsafe"

// Task is the externally owned unit of work dispatched by the scheduler.
//
// Ownership transfers to the scheduler when passed to Schedule, ScheduleTo,
// or ScheduleBatch, and returns to the caller once Callback returns. Between
// those two points the scheduler reads and writes next; callers must not
// touch it.
//
// A Task must not be scheduled twice concurrently, and Callback must not be
// nil — both are programmer-contract violations (spec §7). A nil task or
// nil Callback makes Schedule panic; scheduling a task that is already
// queued is not detected.
type Task struct {
	// Callback runs the task. Worker is the worker that dequeued it; the
	// callback may call Schedule/ScheduleTo/ScheduleBatch/Shutdown from
	// within, but must not call back into trace machinery re-entrantly.
	Callback func(t *Task, w *Worker)

	// next links queued tasks together, for both the local buffer's
	// overflow path and the injector's linked list. Owned by the
	// scheduler while the task is queued.
	next *Task
}

// taskAlignment documents the >=2-byte alignment spec.md requires for
// tagged-pointer tricks in the original C source. Go pointers to Task are
// always at least pointer-aligned (8 bytes on amd64/arm64), so no tagging
// scheme here ever needs to steal low bits from a *Task; this constant
// exists purely so the invariant is written down somewhere executable.
const taskAlignment = unsafe.Alignof(Task{})

func init() {
	if taskAlignment < 2 {
		panic("wstp: Task alignment below the minimum required by the scheduler")
	}
}
