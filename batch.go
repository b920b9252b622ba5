package wstp

// Batch is a non-thread-safe singly linked list of tasks, threaded through
// Task.next. It exists purely to build and transfer groups of tasks in O(1)
// time; callers must synchronize externally if a Batch is shared across
// goroutines (spec §4.1).
type Batch struct {
	head, tail *Task
	size       int
}

// NewBatch returns an empty batch.
func NewBatch() Batch {
	return Batch{}
}

// BatchFromTask returns a single-task batch. t.next is reset to nil.
func BatchFromTask(t *Task) Batch {
	t.next = nil
	return Batch{head: t, tail: t, size: 1}
}

// Empty reports whether the batch holds no tasks.
func (b *Batch) Empty() bool { return b.head == nil }

// Len returns the number of tasks currently in the batch.
func (b *Batch) Len() int { return b.size }

// PushBack appends t to the end of the batch.
func (b *Batch) PushBack(t *Task) {
	t.next = nil
	if b.tail == nil {
		b.head, b.tail = t, t
	} else {
		b.tail.next = t
		b.tail = t
	}
	b.size++
}

// PushFront prepends t to the front of the batch.
func (b *Batch) PushFront(t *Task) {
	t.next = b.head
	if b.tail == nil {
		b.tail = t
	}
	b.head = t
	b.size++
}

// PushBackBatch appends other to the end of b, leaving other empty.
func (b *Batch) PushBackBatch(other *Batch) {
	if other.head == nil {
		return
	}
	if b.tail == nil {
		b.head = other.head
	} else {
		b.tail.next = other.head
	}
	b.tail = other.tail
	b.size += other.size
	*other = Batch{}
}

// PushFrontBatch prepends other to the front of b, leaving other empty.
func (b *Batch) PushFrontBatch(other *Batch) {
	if other.head == nil {
		return
	}
	if b.head == nil {
		b.tail = other.tail
	} else {
		other.tail.next = b.head
	}
	b.head = other.head
	b.size += other.size
	*other = Batch{}
}

// PopFront removes and returns the first task, or nil if the batch is empty.
func (b *Batch) PopFront() *Task {
	t := b.head
	if t == nil {
		return nil
	}
	b.head = t.next
	if b.head == nil {
		b.tail = nil
	}
	t.next = nil
	b.size--
	return t
}
