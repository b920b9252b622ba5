package wstp

import (
	"runtime"
	"sync/atomic"
)

// runtimeSink absorbs the backoff spin's busy-work so the compiler can't
// prove the loop is dead and eliminate it.
var runtimeSink atomic.Uint32

// xorshift32 is a minimal, fast, per-worker PRNG used to randomize steal
// order (spec §4.8). Never seed with zero — xorshift fixed-points there.
type xorshift32 struct {
	state uint32
}

func newXorshift32(seed uint32) *xorshift32 {
	if seed == 0 {
		seed = 1
	}
	return &xorshift32{state: seed}
}

func (x *xorshift32) next() uint32 {
	s := x.state
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	x.state = s
	return s
}

// stealOrder produces a full permutation of peer indices [0, numWorkers)
// excluding self, visiting each exactly once, using a coprime-step walk
// over the n = numWorkers-1 peer slots rather than shuffling a slice (spec
// §4.8); self is this worker's own index.
type stealOrder struct {
	rng     *xorshift32
	n       uint32 // number of peers (workers - 1)
	step    uint32 // coprime step over the range [0, n)
	self    uint32
	start   uint32
	visited uint32
}

// newStealOrder builds a steal order generator for a scheduler with
// numWorkers workers, from the perspective of worker self.
func newStealOrder(rng *xorshift32, numWorkers, self int) *stealOrder {
	n := uint32(numWorkers - 1)
	so := &stealOrder{rng: rng, n: n, self: uint32(self)}
	if n == 0 {
		return so
	}
	so.start = rng.next() % n
	so.step = n - 1
	if so.step == 0 {
		so.step = 1
	}
	return so
}

// reset rewinds the generator so a fresh sweep over all peers can begin
// (called once per run-loop steal attempt, per spec §4.5 step 2e).
func (so *stealOrder) reset() {
	if so.n == 0 {
		return
	}
	so.start = so.rng.next() % so.n
	so.visited = 0
}

// next returns the next peer worker index to try stealing from, and
// whether the sweep has more peers left.
func (so *stealOrder) next() (int, bool) {
	if so.n == 0 || so.visited >= so.n {
		return 0, false
	}
	idx := (so.start + so.visited*so.step) % so.n
	so.visited++
	if idx >= so.self {
		idx++
	}
	return int(idx), true
}

// backoffState tracks spin-with-pause backoff under CAS contention (spec
// §4.8). Each call to spin() draws a fresh count from the PRNG's top bits,
// clipped to [32, 128], and burns that many CPU-pause-hinted iterations.
type backoffState struct {
	rng *xorshift32
}

func newBackoffState(rng *xorshift32) *backoffState {
	return &backoffState{rng: rng}
}

func (b *backoffState) spin() {
	n := b.rng.next() >> 24 // top 8 bits: 0..255
	count := 32 + n%97      // clipped to [32, 128]
	var sink uint32
	for i := uint32(0); i < count; i++ {
		// Go exposes no portable PAUSE/WFE intrinsic to user code, so the
		// closest equivalent is a tight, non-yielding busy loop — calling
		// runtime.Gosched() per iteration would block for a full scheduler
		// quantum and defeat the point of a short backoff.
		sink += i
	}
	runtimeSink.Store(sink)
	// Yield once after the spin budget is spent, so a genuinely stuck CAS
	// loop still lets other goroutines (including the CAS's winner) run.
	runtime.Gosched()
}
