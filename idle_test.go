package wstp

import "testing"

func TestIdleCoordinatorNotifyWakesAnIdleWorker(t *testing.T) {
	woken := make([]int, 0, 1)
	c := newIdleCoordinator(2, func(i int) { woken = append(woken, i) })

	outcome := c.suspend(0, false)
	if outcome != suspendWait {
		t.Fatalf("suspend() = %v, want suspendWait", outcome)
	}

	c.notify(false)
	if len(woken) != 1 || woken[0] != 0 {
		t.Fatalf("notify did not wake the idle worker, woken = %v", woken)
	}
	if c.loadState() != stateWaking {
		t.Fatalf("loadState() = %v, want stateWaking", c.loadState())
	}
}

func TestIdleCoordinatorNotifyWithNoIdleWorkersSetsNotified(t *testing.T) {
	c := newIdleCoordinator(1, func(int) {})
	c.notify(false)
	if !c.fields.notified {
		t.Fatal("notify with no idle workers did not set the notified flag")
	}

	outcome := c.suspend(0, false)
	if outcome != suspendNotified {
		t.Fatalf("suspend() after a pending notify = %v, want suspendNotified", outcome)
	}
}

func TestIdleCoordinatorLastWorkerWithoutShutdownWaits(t *testing.T) {
	c := newIdleCoordinator(1, func(int) {})
	outcome := c.suspend(0, false)
	if outcome != suspendWait {
		t.Fatalf("suspend() on the only worker with no shutdown requested = %v, want suspendWait", outcome)
	}
}

func TestIdleCoordinatorShutdownQuiescentWakesAll(t *testing.T) {
	woken := make(map[int]bool)
	c := newIdleCoordinator(2, func(i int) { woken[i] = true })

	c.suspend(0, false)
	c.suspend(1, false)

	c.shutdown()

	if !c.isShutdown() {
		t.Fatal("isShutdown() = false after shutdown on a fully quiescent scheduler")
	}
	if !woken[0] || !woken[1] {
		t.Fatalf("shutdown did not wake every idle worker, woken = %v", woken)
	}
}

func TestIdleCoordinatorShutdownDeferredUntilQuiescent(t *testing.T) {
	c := newIdleCoordinator(2, func(int) {})
	c.suspend(0, false)

	c.shutdown()
	if c.isShutdown() {
		t.Fatal("isShutdown() = true while a worker is still running")
	}

	outcome := c.suspend(1, false)
	if outcome != suspendLastInScheduler {
		t.Fatalf("suspend() for the last running worker = %v, want suspendLastInScheduler", outcome)
	}
	if !c.isShutdown() {
		t.Fatal("isShutdown() = false after the last worker reports quiescence")
	}
}

func TestIdleCoordinatorShutdownIdempotent(t *testing.T) {
	calls := 0
	c := newIdleCoordinator(1, func(int) { calls++ })
	c.suspend(0, false)
	c.shutdown()
	c.shutdown()
	if calls != 1 {
		t.Fatalf("wake called %d times across two shutdown() calls, want 1", calls)
	}
}
