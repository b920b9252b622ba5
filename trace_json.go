package wstp

import (
	"io"
	"sync"
	"time"
	"unsafe"

	"github.com/segmentio/encoding/json"
)

// jsonTraceLine is one newline-delimited-JSON record written by
// JSONTraceSink. TaskPtr identifies a task across records within a single
// run without forcing Task to carry a serializable ID of its own — two
// records sharing a TaskPtr describe the same *Task value, though the
// address is only meaningful for the lifetime of one process.
type jsonTraceLine struct {
	Time     time.Time `json:"time"`
	Event    string    `json:"event"`
	WorkerID int       `json:"worker_id"`
	TaskPtr  string    `json:"task_ptr,omitempty"`
}

// JSONTraceSink adapts a TraceCallback into a stream of newline-delimited
// JSON records written to w — the format an external log pipeline (or
// just `jq`) can consume directly, as an alternative to wiring a bespoke
// binary trace format. Encoding uses segmentio/encoding/json rather than
// the standard library's encoding/json for the same reason the rest of
// this module favors pack-grounded libraries over stdlib equivalents
// where one is available: segmentio's encoder is a drop-in faster
// replacement with an identical Marshal surface, and nothing about this
// sink is performance-sensitive enough to need more than that.
//
// A JSONTraceSink serializes its own writes: Callback may be invoked
// concurrently by multiple worker goroutines (each trace event fires on
// its own worker's thread), and io.Writer makes no concurrency guarantee
// of its own.
type JSONTraceSink struct {
	mu  sync.Mutex
	w   io.Writer
	enc *json.Encoder
}

// NewJSONTraceSink wraps w. Use (*JSONTraceSink).Callback as the
// TraceCallback passed to WithTraceCallback.
func NewJSONTraceSink(w io.Writer) *JSONTraceSink {
	return &JSONTraceSink{w: w, enc: json.NewEncoder(w)}
}

// Callback implements TraceCallback.
func (s *JSONTraceSink) Callback(rec TraceRecord) {
	line := jsonTraceLine{
		Time:     time.Now(),
		Event:    rec.Event.String(),
		WorkerID: rec.WorkerID,
	}
	if rec.Task != nil {
		line.TaskPtr = taskPtrString(rec.Task)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(line)
}

func taskPtrString(t *Task) string {
	return "0x" + uintToHex(uint64(uintptr(unsafe.Pointer(t))))
}

func uintToHex(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}
