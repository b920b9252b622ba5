package wstp

import "testing"

func newTestScheduler(numWorkers int) *Scheduler {
	cfg := &config{MaxWorkers: numWorkers, Logger: NewNoOpLogger()}
	return newScheduler(cfg)
}

func TestWorkerScheduleNextDisplacesExistingSlot(t *testing.T) {
	s := newTestScheduler(1)
	w := s.workers[0]

	var ran []int
	w.ScheduleNext(&Task{Callback: func(*Task, *Worker) { ran = append(ran, 1) }})
	w.ScheduleNext(&Task{Callback: func(*Task, *Worker) { ran = append(ran, 2) }})

	// The second ScheduleNext displaces the first into the local buffer
	// rather than dropping it.
	next := w.lifo.swap(nil)
	if next == nil {
		t.Fatal("lifo slot empty after two ScheduleNext calls")
	}
	next.Callback(next, w)
	displaced := w.local.pop()
	if displaced == nil {
		t.Fatal("first ScheduleNext task was dropped instead of displaced")
	}
	displaced.Callback(displaced, w)

	if len(ran) != 2 || ran[0] != 2 || ran[1] != 1 {
		t.Fatalf("ran = %v, want [2 1] (lifo task first, displaced task second)", ran)
	}
}

func TestWorkerScheduleToSelfBehavesLikeSchedule(t *testing.T) {
	s := newTestScheduler(2)
	w := s.workers[0]
	w.ScheduleTo(0, newTestTask())
	if w.local.empty() {
		t.Fatal("ScheduleTo(self, ...) did not land the task in the local buffer")
	}
}

func TestWorkerScheduleToPeerUsesOverflow(t *testing.T) {
	s := newTestScheduler(2)
	w0, w1 := s.workers[0], s.workers[1]
	w0.ScheduleTo(1, newTestTask())
	if !w1.overflow.pending() {
		t.Fatal("ScheduleTo(peer, ...) did not land the task in the peer's overflow injector")
	}
}

func TestWorkerNextTaskOrderLifoFirst(t *testing.T) {
	s := newTestScheduler(1)
	w := s.workers[0]

	localTask := newTestTask()
	var b Batch
	b.PushBack(localTask)
	w.pushLocal(&b)

	lifoTask := newTestTask()
	w.lifo.swap(lifoTask)

	got := w.nextTask()
	if got != lifoTask {
		t.Fatal("nextTask() did not prefer the lifo slot over the local buffer")
	}
	if got := w.nextTask(); got != localTask {
		t.Fatal("nextTask() did not fall back to the local buffer after the lifo slot was consumed")
	}
}

func TestWorkerNextTaskStealsFromPeerLocalBuffer(t *testing.T) {
	s := newTestScheduler(2)
	w0, w1 := s.workers[0], s.workers[1]

	var b Batch
	for i := 0; i < 4; i++ {
		b.PushBack(newTestTask())
	}
	w1.pushLocal(&b)

	got := w0.nextTask()
	if got == nil {
		t.Fatal("nextTask() on an empty worker failed to steal from a busy peer")
	}
}

func TestWorkerNextTaskStealsFromPeerOverflow(t *testing.T) {
	s := newTestScheduler(2)
	w0, w1 := s.workers[0], s.workers[1]

	var b Batch
	b.PushBack(newTestTask())
	w1.overflow.pushBatch(&b)

	got := w0.nextTask()
	if got == nil {
		t.Fatal("nextTask() failed to fall back to a peer's overflow injector")
	}
}

func TestWorkerHasPendingWorkReflectsAllQueues(t *testing.T) {
	s := newTestScheduler(1)
	w := s.workers[0]
	if w.hasPendingWork() {
		t.Fatal("fresh worker reports pending work")
	}
	w.lifo.swap(newTestTask())
	if !w.hasPendingWork() {
		t.Fatal("hasPendingWork() false with a task in the lifo slot")
	}
}

func TestWorkerContextReturnsSchedulerContext(t *testing.T) {
	s := newTestScheduler(1)
	s.cfg.Context = "hello"
	w := s.workers[0]
	if got, _ := w.Context().(string); got != "hello" {
		t.Fatalf("Context() = %v, want %q", w.Context(), "hello")
	}
}
