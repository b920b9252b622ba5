package wstp

import "sync/atomic"

// localBufCap is the fixed capacity of a worker's local run buffer
// (spec §2, §4.2). It must be a power of two so that modulo-capacity
// indexing degrades to a mask.
const (
	localBufCap  = 256
	localBufHalf = localBufCap / 2
	localBufMask = localBufCap - 1
)

// localBuffer is the per-worker bounded single-producer/multi-consumer
// ring: the owning worker pushes and pops; any worker may steal from the
// remote side via CAS on head.
//
// head/tail are uint32 counters that wrap modulo 2^32; only the low
// localBufMask bits of a counter select a slot, so wraparound is benign as
// long as tail-head (mod 2^32) never exceeds localBufCap, an invariant
// pushBatch/stealInto/pop all maintain.
//
// Cache-line separation between head and tail avoids false sharing between
// the owner (which writes tail on every push) and stealers (which CAS
// head), mirroring the padding the teacher's FastState/FastPoller types use
// around their hot atomics.
type localBuffer struct { // betteralign:ignore
	_    [64]byte
	head atomic.Uint32
	_    [60]byte
	tail atomic.Uint32
	_    [60]byte
	slots [localBufCap]atomic.Pointer[Task]
}

// pushBatch drains batch into the local buffer, owner-side only. If the
// buffer fills up, it steals back half of its own contents, prepends them
// to what remains of batch (they are older), and hands the whole lot to
// overflow in a single push — matching spec §4.2 step 2. Returns true if an
// overflow push happened (the caller uses this to decide whether a
// notify(is_waking=false) is still warranted beyond the local push).
func (b *localBuffer) pushBatch(batch *Batch, overflow *injector) bool {
	tail := b.tail.Load()
	for !batch.Empty() {
		head := b.head.Load()
		size := tail - head
		if size < localBufCap {
			room := localBufCap - size
			for room > 0 && !batch.Empty() {
				t := batch.PopFront()
				b.slots[tail&localBufMask].Store(t)
				tail++
				room--
			}
			b.tail.Store(tail)
			continue
		}

		// Full: steal half of our own contents back so we can make room,
		// then dump everything (older half + whatever's left of batch)
		// onto the overflow injector in one shot.
		if !b.head.CompareAndSwap(head, head+localBufHalf) {
			continue
		}
		var stolen Batch
		for i := uint32(0); i < localBufHalf; i++ {
			idx := (head + i) & localBufMask
			stolen.PushBack(b.slots[idx].Load())
		}
		stolen.PushBackBatch(batch)
		overflow.pushBatch(&stolen)
		return true
	}
	return false
}

// pop removes and returns a task from the owner side, or nil if empty. It
// races with stealers over head via CAS (spec §4.2's "ties with stealers
// are resolved by the CAS on head").
func (b *localBuffer) pop() *Task {
	for {
		head := b.head.Load()
		tail := b.tail.Load()
		if tail == head {
			return nil
		}
		t := b.slots[head&localBufMask].Load()
		if b.head.CompareAndSwap(head, head+1) {
			return t
		}
	}
}

// stealInto copies roughly half of b's contents into dst, which must be
// empty (precondition enforced by callers — self is only a steal target
// once its own buffer and injector are confirmed drained). Returns the
// last stolen task directly (it becomes the stealer's immediate return
// value) plus the count actually moved; the rest are already published in
// dst's slots with dst.tail advanced.
func (b *localBuffer) stealInto(dst *localBuffer, backoff *backoffState) (*Task, int) {
	for {
		head := b.head.Load()
		tail := b.tail.Load()
		size := tail - head
		if size == 0 {
			return nil, 0
		}
		if size > localBufCap {
			// A torn read of head/tail racing with a push; retry.
			backoff.spin()
			continue
		}
		n := (size + 1) / 2
		dstTail := dst.tail.Load()
		for i := uint32(0); i < n; i++ {
			task := b.slots[(head+i)&localBufMask].Load()
			dst.slots[(dstTail+i)&localBufMask].Store(task)
		}
		if !b.head.CompareAndSwap(head, head+n) {
			backoff.spin()
			continue
		}
		last := dst.slots[(dstTail+n-1)&localBufMask].Load()
		if n > 1 {
			dst.tail.Store(dstTail + n - 1)
		}
		return last, int(n)
	}
}

// empty reports whether the local buffer currently holds no tasks. It
// rereads tail after head to rule out a racing push landing between the
// two loads (spec §4.2's "Empty check").
func (b *localBuffer) empty() bool {
	head := b.head.Load()
	tail := b.tail.Load()
	return head == tail
}

// size returns the (approximate, racy if called concurrently with a push
// or steal) current occupancy. Used only for metrics/diagnostics.
func (b *localBuffer) size() uint32 {
	return b.tail.Load() - b.head.Load()
}
