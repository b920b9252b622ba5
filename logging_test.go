package wstp

import (
	"errors"
	"testing"
)

type recordingLogger struct {
	entries []LogEntry
}

func (r *recordingLogger) Log(e LogEntry)         { r.entries = append(r.entries, e) }
func (r *recordingLogger) IsEnabled(LogLevel) bool { return true }

func TestNoOpLoggerDiscardsEverything(t *testing.T) {
	l := NewNoOpLogger()
	if l.IsEnabled(LevelError) {
		t.Fatal("noOpLogger reports a level as enabled")
	}
	l.Log(LogEntry{Level: LevelError, Message: "should be discarded"})
}

func TestSchedulerLogSkipsDisabledLevels(t *testing.T) {
	rl := &recordingLogger{}
	s := &Scheduler{cfg: config{Logger: disabledBelowWarn{rl}}}
	s.log(LevelDebug, 0, "worker", "should be filtered", nil)
	s.log(LevelWarn, 0, "worker", "should pass through", nil)

	if len(rl.entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(rl.entries))
	}
	if rl.entries[0].Message != "should pass through" {
		t.Fatalf("logged message = %q, want %q", rl.entries[0].Message, "should pass through")
	}
}

func TestSchedulerLogCarriesError(t *testing.T) {
	rl := &recordingLogger{}
	s := &Scheduler{cfg: config{Logger: rl}}
	cause := errors.New("spawn failed")
	s.log(LevelError, 3, "scheduler", "worker spawn failed", cause)

	if len(rl.entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(rl.entries))
	}
	if rl.entries[0].Err != cause {
		t.Fatalf("logged error = %v, want %v", rl.entries[0].Err, cause)
	}
	if rl.entries[0].WorkerID != 3 {
		t.Fatalf("logged worker id = %d, want 3", rl.entries[0].WorkerID)
	}
}

// disabledBelowWarn wraps a Logger so only LevelWarn and above are enabled,
// letting TestSchedulerLogSkipsDisabledLevels exercise Scheduler.log's
// IsEnabled short-circuit without depending on zap's own level filtering.
type disabledBelowWarn struct {
	Logger
}

func (d disabledBelowWarn) IsEnabled(level LogLevel) bool { return level >= LevelWarn }
