package wstp

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// LogLevel mirrors the teacher's structured-logging level scale
// (eventloop/logging.go), kept to the same four severities.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LogEntry is one structured log record. Category identifies which part
// of the scheduler produced it; the scheduler's own entries use
// "scheduler".
type LogEntry struct {
	Level     LogLevel
	Category  string
	WorkerID  int
	Message   string
	Err       error
	Timestamp time.Time
}

// Logger is the scheduler's structured-logging seam, mirroring the
// teacher's package-level Logger interface (eventloop/logging.go) but
// injected via Config rather than a package global, per spec §9's note
// against global mutable state.
//
// The scheduler logs its own start and stop (scheduler.go) — never
// per-task. Per-task observability is the trace
// callback's job (trace.go) and runs on every worker's hot path; logging
// at that frequency would dominate throughput.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

// noOpLogger discards everything; used as the default in tests and
// anywhere a caller doesn't want scheduler-level logging at all.
type noOpLogger struct{}

// NewNoOpLogger returns a Logger that discards every entry.
func NewNoOpLogger() Logger { return noOpLogger{} }

func (noOpLogger) Log(LogEntry) {}

func (noOpLogger) IsEnabled(LogLevel) bool { return false }

// zapLogger adapts Logger onto a *zap.Logger, the structured-logging
// library present in the corpus (tangzhangming-nova's dependency graph).
type zapLogger struct {
	z     *zap.Logger
	level atomic.Int32
}

// NewZapLogger wraps z as a Logger, logging entries at or above minLevel.
// This is the default production Logger (see resolveConfig).
func NewZapLogger(z *zap.Logger, minLevel LogLevel) Logger {
	l := &zapLogger{z: z}
	l.level.Store(int32(minLevel))
	return l
}

func (l *zapLogger) IsEnabled(level LogLevel) bool {
	return int32(level) >= l.level.Load()
}

func (l *zapLogger) Log(entry LogEntry) {
	if !l.IsEnabled(entry.Level) {
		return
	}
	fields := []zap.Field{
		zap.String("category", entry.Category),
		zap.Int("worker_id", entry.WorkerID),
		zap.Time("ts", entry.Timestamp),
	}
	if entry.Err != nil {
		fields = append(fields, zap.Error(entry.Err))
	}
	switch entry.Level {
	case LevelDebug:
		l.z.Debug(entry.Message, fields...)
	case LevelWarn:
		l.z.Warn(entry.Message, fields...)
	case LevelError:
		l.z.Error(entry.Message, fields...)
	default:
		l.z.Info(entry.Message, fields...)
	}
}

// defaultLogger builds the Logger resolveConfig falls back to when
// WithLogger isn't supplied: a production zap.Logger at Info level, or a
// no-op logger if zap construction itself fails (logging setup must
// never be the reason Run fails to start).
func defaultLogger() Logger {
	z, err := zap.NewProduction()
	if err != nil {
		return NewNoOpLogger()
	}
	return NewZapLogger(z, LevelInfo)
}

// log is a small convenience used by scheduler.go so call sites don't
// repeat the IsEnabled/Timestamp boilerplate.
func (s *Scheduler) log(level LogLevel, workerID int, category, message string, err error) {
	l := s.cfg.Logger
	if l == nil || !l.IsEnabled(level) {
		return
	}
	l.Log(LogEntry{
		Level:     level,
		Category:  category,
		WorkerID:  workerID,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
	})
}
