//go:build !wstpdebug

package wstp

// checkNotInTrace is a no-op outside the wstpdebug build tag (see
// debug_guard_debug.go).
func (w *Worker) checkNotInTrace(action string) {}
