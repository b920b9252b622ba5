package wstp

import (
	"golang.org/x/sync/errgroup"
)

// Scheduler owns the worker array, the global injector, and the idle
// coordinator for exactly one call to Run (spec §3's Scheduler, §4.6's
// lifecycle). There is no supported way to reuse a Scheduler across two
// Run calls — a fresh one is built by Run each time, matching spec §3's
// "Lifetime spans exactly one call to run".
type Scheduler struct {
	cfg         config
	workers     []*Worker
	global      injector
	idle        *idleCoordinator
	eventSource EventSource
	metrics     *Metrics
}

func newScheduler(cfg *config) *Scheduler {
	s := &Scheduler{
		cfg:         *cfg,
		eventSource: cfg.EventSource,
		metrics:     cfg.Metrics,
	}
	numWorkers := cfg.MaxWorkers
	s.workers = make([]*Worker, numWorkers)
	s.idle = newIdleCoordinator(numWorkers, func(i int) { s.workers[i].wake() })
	for i := range s.workers {
		s.workers[i] = newWorker(i, s)
	}
	return s
}

// Run builds a scheduler from opts, schedules mainTask onto worker 0's
// local buffer, spawns config.max_workers goroutines, and blocks until
// every worker has terminated (spec §4.6's run(config, main_task)).
//
// mainTask.Callback must eventually call some worker's Shutdown (directly
// or by scheduling further tasks that do) or Run never returns — this
// core provides no implicit termination condition beyond "all workers
// idle AND shutdown requested" (spec §4.4).
func Run(mainTask *Task, opts ...Option) error {
	if mainTask == nil || mainTask.Callback == nil {
		panic(&ContractViolation{Reason: "Run called with a nil task or nil callback"})
	}
	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}
	s := newScheduler(cfg)
	return s.run(mainTask)
}

func (s *Scheduler) run(mainTask *Task) error {
	var batch Batch
	batch.PushBack(mainTask)
	s.workers[0].pushLocal(&batch)

	s.log(LevelInfo, -1, "scheduler", "starting", nil)

	g := new(errgroup.Group)
	for _, w := range s.workers {
		w := w
		g.Go(func() error {
			w.run()
			return nil
		})
	}
	err := g.Wait()

	s.log(LevelInfo, -1, "scheduler", "stopped", err)
	return err
}

// Schedule enqueues t from outside the runtime (spec §4.6's
// out-of-runtime schedule path): a single-task batch pushed onto the
// global injector, followed by a notify.
func (s *Scheduler) Schedule(t *Task) {
	if t == nil || t.Callback == nil {
		panic(&ContractViolation{Reason: "Schedule called with a nil task or nil callback"})
	}
	var batch Batch
	batch.PushBack(t)
	s.global.pushBatch(&batch)
	s.idle.notify(false)
	if s.metrics != nil {
		s.metrics.recordInjected()
	}
}

// ScheduleBatch enqueues every task in b onto the global injector in one
// call, issuing a single notify (spec §9 supplement's batch-oriented
// submission API, external-caller variant).
func (s *Scheduler) ScheduleBatch(b *Batch) {
	if b.Empty() {
		return
	}
	n := b.Len()
	s.global.pushBatch(b)
	s.idle.notify(false)
	if s.metrics != nil {
		for i := 0; i < n; i++ {
			s.metrics.recordInjected()
		}
	}
}

// Shutdown requests scheduler shutdown from any thread, inside or outside
// the runtime (spec §4.6's shutdown()). Idempotent; safe to call more
// than once and from multiple goroutines concurrently.
func (s *Scheduler) Shutdown() {
	s.idle.shutdown()
	if s.eventSource != nil {
		s.eventSource.Notify(true)
	}
}

// Shutdown requests scheduler shutdown (spec §6's shutdown(), in-runtime
// call surface). Equivalent to Scheduler.Shutdown; provided on Worker so
// a task callback can call w.Shutdown() without reaching for its
// scheduler explicitly.
func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
}

// emitTrace invokes the configured trace callback, if any, synchronously
// on the calling worker's own goroutine (spec §6's trace event contract).
func (s *Scheduler) emitTrace(event TraceEvent, w *Worker, task *Task) {
	cb := s.cfg.TraceCallback
	if cb == nil {
		return
	}
	w.inTrace = true
	cb(TraceRecord{Event: event, WorkerID: w.id, Task: task})
	w.inTrace = false
}
