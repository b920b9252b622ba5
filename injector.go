package wstp

import "sync/atomic"

// injector is the unbounded MPSC linked list used both as a worker's
// overflow queue and as the scheduler's global queue (spec §4.3). Nodes
// are tasks themselves, linked through Task.next.
//
// head and tail are kept on separate cache lines: head is read by whichever
// single thread currently holds the consume token, tail is swapped by every
// producer (and CAS'd to nil by the consumer that takes the last node).
type injector struct { // betteralign:ignore
	_ [64]byte
	// Instead of spec §4.3's single tagged head word (CONSUMING bit in bit
	// 0, head pointer in the rest), this keeps an atomic pointer for the
	// list head plus a separate atomic bool for the consuming flag, and
	// accepts the (documented) brief window where a
	// consumer must re-check both rather than one tagged word. This keeps
	// the same two invariants spec §4.3 cares about — "at most one
	// consumer" and "head/tail both null or both non-null" — using types
	// the language can express without an unsafe tagged pointer.
	consuming atomic.Bool
	_         [63]byte
	head      atomic.Pointer[Task]
	_         [56]byte
	tail      atomic.Pointer[Task]
	_         [56]byte
}

// pushBatch appends front..back (linked through next) to the injector.
// Implements spec §4.3's push protocol: swap tail, then either link from
// the previous tail (FIFO chaining) or, if the list was empty, publish head
// directly.
func (q *injector) pushBatch(batch *Batch) {
	if batch.Empty() {
		return
	}
	front, back := batch.head, batch.tail
	back.next = nil
	oldTail := q.tail.Swap(back)
	if oldTail != nil {
		oldTail.next = front
	} else {
		invariant(q.head.CompareAndSwap(nil, front), "injector head was non-nil while tail was nil")
	}
	*batch = Batch{}
}

// pending approximates whether the injector has unclaimed work: head is
// non-nil and no one currently holds the consume token. It is monotone
// enough for searching workers to decide whether an acquire attempt is
// worthwhile (spec §4.3's "Pending check") but is not a precise emptiness
// test — use acquireConsumer+popOne for that.
func (q *injector) pending() bool {
	return q.head.Load() != nil && !q.consuming.Load()
}

// consumerCursor is held by whichever goroutine currently owns the drain
// token for this injector.
type consumerCursor struct {
	q      *injector
	cursor *Task
}

// acquireConsumer attempts to become the sole consumer of this injector.
// Returns ok=false if another thread already holds the token, or the
// injector is empty.
func (q *injector) acquireConsumer() (consumerCursor, bool) {
	if q.head.Load() == nil {
		return consumerCursor{}, false
	}
	if !q.consuming.CompareAndSwap(false, true) {
		return consumerCursor{}, false
	}
	return consumerCursor{q: q}, true
}

// popOne returns the next task from the injector, or nil if (transiently or
// permanently) empty. Implements spec §4.3's "Pop one".
func (c *consumerCursor) popOne() *Task {
	if c.cursor == nil {
		head := c.q.head.Load()
		if head == nil {
			return nil
		}
		c.cursor = head
		c.q.head.Store(nil)
	}

	node := c.cursor
	next := node.next
	if next != nil {
		c.cursor = next
		return node
	}

	// node may be the last one: try to also clear tail.
	if c.q.tail.CompareAndSwap(node, nil) {
		c.cursor = nil
		return node
	}

	// A producer is mid-push: tail has already been swapped to a new node
	// but node.next is not yet linked. Give it one more chance to land.
	next = node.next
	if next != nil {
		c.cursor = next
		return node
	}

	// Still unlinked: leave cursor pointing at node (unchanged) and report
	// empty for now. The next popOne call re-examines this same node once
	// the racing producer finishes linking past it; advancing or clearing
	// cursor here would detach the chain the producer is about to attach,
	// losing every task it links from tail.
	return nil
}

// release gives up the consume token, publishing any remaining cursor
// position so the next consumer can resume from it.
func (c *consumerCursor) release() {
	if c.cursor != nil {
		c.q.head.Store(c.cursor)
	}
	c.q.consuming.Store(false)
	c.cursor = nil
}

// drainInto pops up to max tasks from the injector into dst's local
// buffer (spilling to dst's own overflow if dst fills up), used by the
// worker run loop's "drain X into local buffer" steps (spec §4.5 step 2
// c/d). Returns the number of tasks moved.
func (q *injector) drainInto(dst *localBuffer, dstOverflow *injector, max int) int {
	cur, ok := q.acquireConsumer()
	if !ok {
		return 0
	}
	defer cur.release()

	var batch Batch
	n := 0
	for n < max {
		t := cur.popOne()
		if t == nil {
			break
		}
		batch.PushBack(t)
		n++
	}
	if !batch.Empty() {
		dst.pushBatch(&batch, dstOverflow)
	}
	return n
}
