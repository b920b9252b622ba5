package wstp

import (
	"sync/atomic"
	"time"
)

// drainChunk bounds how many tasks a single drain-from-injector step pulls
// into a local buffer before returning to try popping — mirrors the local
// buffer's own half-steal chunking (localBufHalf) rather than draining an
// injector to empty in one go, which would starve peers relying on the
// same injector as a steal fallback.
const drainChunk = localBufHalf

// Worker is one dedicated goroutine's share of scheduler state: its own
// local run buffer, overflow injector, lifo fast-path slot, and park
// channel (spec §3's Worker, §4.5's run loop).
//
// A Worker's identity is its index in Scheduler.workers, fixed for the
// worker's lifetime. Callbacks receive their executing Worker directly
// (see Task.Callback) rather than reaching for thread-local storage —
// spec §9's "re-architect as explicit injection" note, applied.
type Worker struct {
	id        int
	scheduler *Scheduler

	local    localBuffer
	overflow injector
	lifo     atomicTaskSlot

	rng     *xorshift32
	order   *stealOrder
	backoff *backoffState

	tick   uint64
	waking atomic.Bool

	// parkCh is a single-slot semaphore: suspend blocks on a receive,
	// wake performs a non-blocking send so a wake that races a worker
	// already about to observe NOTIFIED never piles up a second token.
	parkCh chan struct{}

	// inTrace is set for the duration of a trace callback invocation on
	// this worker's own goroutine; checkNotInTrace reads it to enforce
	// spec §6's "callback must not itself call into the scheduler" rule
	// under the wstpdebug build tag.
	inTrace bool
}

// atomicTaskSlot is a tiny wrapper so the zero value of Worker.lifo is
// immediately usable without an explicit constructor call.
type atomicTaskSlot struct {
	ptr atomic.Pointer[Task]
}

func (s *atomicTaskSlot) swap(t *Task) *Task { return s.ptr.Swap(t) }

func newWorker(id int, s *Scheduler) *Worker {
	seed := uint32(id)*2654435761 + 1 // Knuth multiplicative hash; never zero (see +1)
	rng := newXorshift32(seed)
	w := &Worker{
		id:        id,
		scheduler: s,
		rng:       rng,
		order:     newStealOrder(rng, len(s.workers), id),
		backoff:   newBackoffState(rng),
		parkCh:    make(chan struct{}, 1),
	}
	return w
}

// ID returns this worker's 0-based index (spec §6's current_worker_id).
func (w *Worker) ID() int { return w.id }

// Context returns the scheduler's opaque user context (spec §6's
// context()).
func (w *Worker) Context() any { return w.scheduler.cfg.Context }

// ScheduleNext installs t as this worker's lifo fast-path slot (spec
// §4.5 step 2a): the next iteration of this worker's run loop consumes it
// before touching the local buffer, injector, or peers. If a task already
// occupies the slot, it is displaced into the local buffer (via the
// scheduler's ordinary local-schedule path) rather than dropped, so
// nothing is lost to a rapid string of ScheduleNext calls.
func (w *Worker) ScheduleNext(t *Task) {
	w.checkNotInTrace("ScheduleNext")
	if t == nil || t.Callback == nil {
		panic(&ContractViolation{Reason: "ScheduleNext called with a nil task or nil callback"})
	}
	displaced := w.lifo.swap(t)
	if displaced != nil {
		var batch Batch
		batch.PushBack(displaced)
		w.pushLocal(&batch)
	}
	w.scheduler.idle.notify(false)
}

// Schedule enqueues t onto this worker's own local buffer (spec §4.6's
// in-runtime schedule path).
func (w *Worker) Schedule(t *Task) {
	w.checkNotInTrace("Schedule")
	if t == nil || t.Callback == nil {
		panic(&ContractViolation{Reason: "Schedule called with a nil task or nil callback"})
	}
	var batch Batch
	batch.PushBack(t)
	w.pushLocal(&batch)
	w.scheduler.idle.notify(false)
}

// ScheduleTo enqueues t for a specific worker (spec §4.6's schedule_to):
// if workerID is this worker, identical to Schedule; otherwise t is
// pushed onto the target's overflow injector (a stealer — including the
// target itself, the next time it checks its own overflow — will pick it
// up) and the idle coordinator is notified so some idle worker wakes to
// look for it. This implementation notifies generically rather than
// force-waking workerID specifically: directly waking one worker without
// going through the idle coordinator's bookkeeping would desynchronize
// its idle/waking counts from the worker that's actually running,
// violating the "idle + running == W" invariant (spec §4.4).
func (w *Worker) ScheduleTo(workerID int, t *Task) {
	w.checkNotInTrace("ScheduleTo")
	if t == nil || t.Callback == nil {
		panic(&ContractViolation{Reason: "ScheduleTo called with a nil task or nil callback"})
	}
	if workerID == w.id {
		w.Schedule(t)
		return
	}
	target := w.scheduler.workers[workerID]
	var batch Batch
	batch.PushBack(t)
	target.overflow.pushBatch(&batch)
	w.scheduler.idle.notify(false)
}

// ScheduleBatch enqueues every task in b onto this worker's local buffer
// in one call, issuing a single notify rather than one per task — used
// by fan-out style main tasks seeding many tasks at once (spec §9
// supplement, the "batch-oriented submission API").
func (w *Worker) ScheduleBatch(b *Batch) {
	w.checkNotInTrace("ScheduleBatch")
	if b.Empty() {
		return
	}
	w.pushLocal(b)
	w.scheduler.idle.notify(false)
}

// pushLocal pushes batch into w's local buffer, spilling overflow to w's
// own injector, without issuing a notify (callers decide that).
func (w *Worker) pushLocal(batch *Batch) {
	overflowed := w.local.pushBatch(batch, &w.overflow)
	if overflowed {
		if m := w.scheduler.metrics; m != nil {
			m.recordOverflow()
		}
	}
}

// hasPendingWork reports whether this worker still has unclaimed tasks
// anywhere a peer could reach them — local buffer, lifo slot, or overflow
// injector. suspendAndMaybeStop checks this before it calls idle.suspend,
// closing the narrow race where a task lands in this worker's own queues
// between nextTask's last look and the worker registering as idle (spec
// §9 supplement,
// grounded on pzero's pz_pending.c consulting the overflow injector's
// pending bit before declaring quiescence).
func (w *Worker) hasPendingWork() bool {
	return w.lifo.ptr.Load() != nil || !w.local.empty() || w.overflow.pending()
}

// run is the worker's goroutine entry point (spec §4.5). It returns when
// the idle coordinator's suspend reports suspendLastInScheduler: either
// this worker completed the shutdown transition, or the scheduler had
// already reached SHUTDOWN.
func (w *Worker) run() {
	w.scheduler.emitTrace(OnWorkerStart, w, nil)

	for {
		w.tick++
		w.fairnessTick()

		task := w.nextTask()
		if task == nil {
			task = w.pollEventSourceBlocking()
		}

		if task == nil {
			if w.suspendAndMaybeStop() {
				break
			}
			continue
		}

		if w.waking.Load() {
			w.waking.Store(false)
			w.scheduler.idle.notify(true)
		}

		w.scheduler.emitTrace(OnWorkerExecute, w, task)
		if m := w.scheduler.metrics; m != nil {
			start := time.Now()
			task.Callback(task, w)
			m.recordExecute(w.id, float64(time.Since(start)))
		} else {
			task.Callback(task, w)
		}
	}

	w.scheduler.emitTrace(OnWorkerStop, w, nil)
}

// fairnessTick implements spec §4.5 step 1: on configured tick intervals,
// force a check of the global injector and the external event source so
// neither is starved by a worker that always finds local work first.
func (w *Worker) fairnessTick() {
	cfg := &w.scheduler.cfg
	if cfg.TaskPollInterval > 0 && w.tick%uint64(cfg.TaskPollInterval) == 0 {
		w.scheduler.global.drainInto(&w.local, &w.overflow, drainChunk)
	}
	if cfg.EventPollInterval > 0 && w.tick%uint64(cfg.EventPollInterval) == 0 {
		w.pollEventSource(0)
	}
}

// pollEventSource performs one poll call at the given deadline and folds
// any resulting tasks into the local buffer.
func (w *Worker) pollEventSource(deadline time.Duration) {
	es := w.scheduler.eventSource
	if es == nil {
		return
	}
	batch := es.Poll(deadline)
	if !batch.Empty() {
		w.local.pushBatch(&batch, &w.overflow)
	}
}

// pollEventSourceBlocking is step 2f: invoke the external event source
// with a blocking call (bounded by the scheduler's configured poll
// timeout, since this implementation has no per-task timer to bound it
// more precisely), then retry nextTask once.
func (w *Worker) pollEventSourceBlocking() *Task {
	es := w.scheduler.eventSource
	if es == nil {
		return nil
	}
	batch := es.Poll(w.scheduler.cfg.EventBlockTimeout)
	if batch.Empty() {
		return nil
	}
	w.local.pushBatch(&batch, &w.overflow)
	return w.nextTask()
}

// nextTask implements spec §4.5 step 2's ordered search: lifo slot, local
// pop, own overflow, global injector, then a randomized sweep of peers
// (their local buffers first, their overflow injectors as a fallback —
// spec §4.3's "drained by stealers as a fallback").
func (w *Worker) nextTask() *Task {
	if t := w.lifo.swap(nil); t != nil {
		return t
	}
	if t := w.local.pop(); t != nil {
		return t
	}
	if w.overflow.drainInto(&w.local, &w.overflow, drainChunk) > 0 {
		if t := w.local.pop(); t != nil {
			return t
		}
	}
	if w.scheduler.global.drainInto(&w.local, &w.overflow, drainChunk) > 0 {
		if t := w.local.pop(); t != nil {
			return t
		}
	}

	w.order.reset()
	for {
		peerIdx, ok := w.order.next()
		if !ok {
			return nil
		}
		peer := w.scheduler.workers[peerIdx]
		if t, _ := peer.local.stealInto(&w.local, w.backoff); t != nil {
			if m := w.scheduler.metrics; m != nil {
				m.recordStolen()
			}
			return t
		}
		if peer.overflow.drainInto(&w.local, &w.overflow, 1) > 0 {
			if t := w.local.pop(); t != nil {
				if m := w.scheduler.metrics; m != nil {
					m.recordStolen()
				}
				return t
			}
		}
	}
}

// suspendAndMaybeStop implements spec §4.5 step 2g. It reports true if
// the worker should exit its run loop.
//
// hasPendingWork is rechecked immediately before calling idle.suspend:
// nextTask already found this worker's own queues empty moments earlier,
// but a peer's ScheduleTo can land a task in this worker's overflow in
// between. Catching that here, before suspend ever registers the worker
// as idle, avoids a narrow race that would otherwise let a task sit
// unclaimed behind a worker that has already committed to shutting down.
func (w *Worker) suspendAndMaybeStop() bool {
	if w.hasPendingWork() {
		return false
	}
	wasWaking := w.waking.Swap(false)
	outcome := w.scheduler.idle.suspend(w.id, wasWaking)
	switch outcome {
	case suspendNotified:
		return false
	case suspendLastInScheduler:
		w.scheduler.idle.wakeAll()
		return true
	default: // suspendWait
		w.scheduler.emitTrace(OnWorkerPark, w, nil)
		<-w.parkCh
		w.scheduler.emitTrace(OnWorkerUnpark, w, nil)
		return false
	}
}

// wake is installed as the idle coordinator's wakeFunc for this worker:
// it marks the worker as holding the waking role and unblocks its park
// channel. Safe to call from any goroutine, including concurrently with
// itself (the channel send is non-blocking).
func (w *Worker) wake() {
	w.waking.Store(true)
	select {
	case w.parkCh <- struct{}{}:
	default:
	}
}
