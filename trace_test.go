package wstp

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestTraceEventString(t *testing.T) {
	cases := map[TraceEvent]string{
		OnWorkerStart:   "worker_start",
		OnWorkerPark:    "worker_park",
		OnWorkerUnpark:  "worker_unpark",
		OnWorkerExecute: "worker_execute",
		OnWorkerStop:    "worker_stop",
		TraceEvent(99):  "unknown",
	}
	for event, want := range cases {
		if got := event.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", event, got, want)
		}
	}
}

func TestJSONTraceSinkWritesOneLinePerRecord(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONTraceSink(&buf)

	sink.Callback(TraceRecord{Event: OnWorkerStart, WorkerID: 0})
	sink.Callback(TraceRecord{Event: OnWorkerExecute, WorkerID: 0, Task: newTestTask()})
	sink.Callback(TraceRecord{Event: OnWorkerStop, WorkerID: 0})

	scanner := bufio.NewScanner(&buf)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 3 {
		t.Fatalf("wrote %d lines, want 3", len(lines))
	}
	if !strings.Contains(lines[0], `"worker_start"`) {
		t.Errorf("first line = %q, want it to mention worker_start", lines[0])
	}
	if !strings.Contains(lines[1], `"task_ptr"`) {
		t.Errorf("execute line = %q, want a task_ptr field", lines[1])
	}
	if strings.Contains(lines[0], `"task_ptr"`) {
		t.Errorf("start line = %q, should omit task_ptr when Task is nil", lines[0])
	}
}

func TestTaskPtrStringFormat(t *testing.T) {
	task := newTestTask()
	s := taskPtrString(task)
	if !strings.HasPrefix(s, "0x") {
		t.Fatalf("taskPtrString() = %q, want a 0x-prefixed address", s)
	}
}
