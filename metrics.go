package wstp

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is an optional counters-and-latency sink attached via
// WithMetrics. A Scheduler with no Metrics configured pays nothing beyond
// a nil check at each instrumentation point; one configured accumulates
// task-conservation counters (spec §8's conservation invariant restated as
// something operators can graph) plus a latency digest per worker.
//
// All exported methods are safe for concurrent use: the counters are
// stdlib atomics (consistent with the lock-free hot-path words in
// localbuf.go/injector.go/idle.go — there is no hot-path reason to reach
// for go.uber.org/atomic's non-generic wrappers when sync/atomic's typed
// atomics already cover this), and the per-worker latency digests are
// updated and read under Metrics' mutex since the P² update step is not
// lock-free.
type Metrics struct {
	tasksExecuted counter
	tasksStolen   counter
	tasksInjected counter
	tasksOverflow counter

	mu      sync.Mutex
	latency map[int]*latencyDigest

	percentiles []float64
}

// counter is a thin named wrapper around the stdlib atomic uint64 so
// Metrics' fields read as intent rather than bare atomic.Uint64s.
type counter struct{ v atomic.Uint64 }

func (c *counter) add(n uint64) { c.v.Add(n) }
func (c *counter) load() uint64 { return c.v.Load() }

// NewMetrics builds a Metrics sink tracking the given latency percentiles
// (e.g. NewMetrics(0.5, 0.9, 0.99) for p50/p90/p99). With no percentiles
// given, latency observations are still counted (Count/Mean/Max) but no
// quantile is tracked.
func NewMetrics(percentiles ...float64) *Metrics {
	return &Metrics{
		latency:     make(map[int]*latencyDigest),
		percentiles: append([]float64(nil), percentiles...),
	}
}

func (m *Metrics) digestFor(workerID int) *latencyDigest {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.latency[workerID]
	if !ok {
		d = newLatencyDigest(m.percentiles...)
		m.latency[workerID] = d
	}
	return d
}

// recordExecute folds one task callback's run time (nanoseconds) into the
// executing worker's digest and bumps the executed counter. Called from
// worker.go's run loop only when a Metrics is configured.
func (m *Metrics) recordExecute(workerID int, durationNS float64) {
	m.tasksExecuted.add(1)
	d := m.digestFor(workerID)
	m.mu.Lock()
	d.Observe(durationNS)
	m.mu.Unlock()
}

func (m *Metrics) recordStolen()   { m.tasksStolen.add(1) }
func (m *Metrics) recordInjected() { m.tasksInjected.add(1) }
func (m *Metrics) recordOverflow() { m.tasksOverflow.add(1) }

// TasksExecuted returns the total number of task callbacks run so far.
func (m *Metrics) TasksExecuted() uint64 { return m.tasksExecuted.load() }

// TasksStolen returns the total number of tasks claimed via a cross-worker
// steal (local-buffer or overflow-injector fallback).
func (m *Metrics) TasksStolen() uint64 { return m.tasksStolen.load() }

// TasksInjected returns the total number of tasks submitted through the
// global injector, i.e. from outside the runtime (Scheduler.Schedule /
// ScheduleBatch) rather than from a worker's own callback.
func (m *Metrics) TasksInjected() uint64 { return m.tasksInjected.load() }

// TasksOverflowed returns the total number of times a worker's local
// buffer spilled half its contents to its overflow injector because it
// was full (spec §4.2 step 2) while the worker pushed tasks scheduled on
// it (pushLocal). Spills while draining an injector or an event-source
// batch into the buffer are not counted.
func (m *Metrics) TasksOverflowed() uint64 { return m.tasksOverflow.load() }

// LatencyQuantile returns the i'th configured percentile's current
// estimate for one worker's executed tasks, in nanoseconds.
func (m *Metrics) LatencyQuantile(workerID, i int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.latency[workerID]
	if !ok {
		return 0
	}
	return time.Duration(d.Quantile(i))
}

// Collector returns a prometheus.Collector exposing this Metrics' counters
// and latency percentiles, registerable with any prometheus.Registerer
// (spec §9 supplement: an operator-facing surface the core spec itself
// has no equivalent for, added because the teacher's and the wider pack's
// services all expose one).
func (m *Metrics) Collector(numWorkers int) prometheus.Collector {
	return &promCollector{m: m, numWorkers: numWorkers}
}

type promCollector struct {
	m          *Metrics
	numWorkers int
}

var (
	executedDesc = prometheus.NewDesc(
		"wstp_tasks_executed_total", "Total task callbacks run.", nil, nil)
	stolenDesc = prometheus.NewDesc(
		"wstp_tasks_stolen_total", "Total tasks claimed via a cross-worker steal.", nil, nil)
	injectedDesc = prometheus.NewDesc(
		"wstp_tasks_injected_total", "Total tasks submitted via the global injector.", nil, nil)
	overflowDesc = prometheus.NewDesc(
		"wstp_tasks_overflowed_total", "Total local-buffer-full spills to a worker's overflow injector.", nil, nil)
	latencyDesc = prometheus.NewDesc(
		"wstp_task_callback_duration_seconds", "Quantile of task callback run time per worker.",
		[]string{"worker", "quantile"}, nil)
)

func (c *promCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- executedDesc
	ch <- stolenDesc
	ch <- injectedDesc
	ch <- overflowDesc
	ch <- latencyDesc
}

func (c *promCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(executedDesc, prometheus.CounterValue, float64(c.m.TasksExecuted()))
	ch <- prometheus.MustNewConstMetric(stolenDesc, prometheus.CounterValue, float64(c.m.TasksStolen()))
	ch <- prometheus.MustNewConstMetric(injectedDesc, prometheus.CounterValue, float64(c.m.TasksInjected()))
	ch <- prometheus.MustNewConstMetric(overflowDesc, prometheus.CounterValue, float64(c.m.TasksOverflowed()))

	for w := 0; w < c.numWorkers; w++ {
		for i, p := range c.m.percentiles {
			seconds := c.m.LatencyQuantile(w, i).Seconds()
			ch <- prometheus.MustNewConstMetric(latencyDesc, prometheus.GaugeValue, seconds,
				strconv.Itoa(w), strconv.FormatFloat(p, 'f', -1, 64))
		}
	}
}
