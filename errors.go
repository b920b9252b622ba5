package wstp

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Error taxonomy (spec §7): Configuration errors are returned to callers
// (there is no Resource-class error: starting a worker goroutine cannot
// fail); Programmer-contract and Internal-invariant
// violations panic, since the spec treats them as bugs rather than
// recoverable conditions ("abort. Never surfaced.").

// ConfigError reports an invalid Run configuration (spec §7's
// Configuration class), rejected synchronously before any worker spawns.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("wstp: invalid config field %q: %s", e.Field, e.Reason)
}

// combineErrors folds multiple independent failures into one error via
// go.uber.org/multierr, preserving errors.Is/As access to each original
// error. Used by resolveConfig to report every invalid option in one Run
// call rather than just the first (spec §7's Configuration class).
func combineErrors(errs []error) error {
	return multierr.Combine(errs...)
}

// ContractViolation reports a programmer-contract violation (spec §7). It
// is raised as a panic, not returned, for a nil task or nil callback
// passed to Run or a schedule method and, under the wstpdebug build tag,
// for a Worker schedule method called from inside a trace callback.
// Scheduling a task that is already queued is not detected, and neither
// is a Worker method called from a goroutine other than that worker's.
type ContractViolation struct {
	Reason string
}

func (e *ContractViolation) Error() string {
	return "wstp: programmer contract violation: " + e.Reason
}

// invariant panics with an *InvariantError if cond is false. It guards
// spec §7's Internal-invariant class — conditions the protocol itself
// rules out — defensively rather than surfacing them as a recoverable
// error. Its one call site is injector.pushBatch's head/tail check.
func invariant(cond bool, msg string) {
	if !cond {
		panic(&InvariantError{Reason: msg})
	}
}

// InvariantError reports an internal-invariant violation (spec §7).
// Seeing one means the scheduler's own protocol has a bug; it is never
// part of this package's documented error-return surface.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return "wstp: internal invariant violated: " + e.Reason
}

// ErrShutdown reports that the scheduler has shut down. No function in
// this package returns it.
var ErrShutdown = errors.New("wstp: scheduler has shut down")
