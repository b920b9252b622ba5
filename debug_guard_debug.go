//go:build wstpdebug

package wstp

// checkNotInTrace enforces spec §6's "callback must not itself call into
// the scheduler" rule for trace callbacks, active only under the
// wstpdebug build tag so the hot path pays nothing for it by default.
func (w *Worker) checkNotInTrace(action string) {
	if w.inTrace {
		panic(&ContractViolation{Reason: "trace callback called " + action + " re-entrantly"})
	}
}
