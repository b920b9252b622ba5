package wstp

import (
	"errors"
	"testing"
)

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{Field: "max_workers", Reason: "must be positive"}
	want := `wstp: invalid config field "max_workers": must be positive`
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestCombineErrorsPreservesIndividualAccess(t *testing.T) {
	e1 := &ConfigError{Field: "a", Reason: "bad"}
	e2 := &ConfigError{Field: "b", Reason: "also bad"}
	combined := combineErrors([]error{e1, e2})
	if combined == nil {
		t.Fatal("combineErrors returned nil for two non-nil errors")
	}
	var target *ConfigError
	if !errors.As(combined, &target) {
		t.Fatal("errors.As could not recover a ConfigError from the combined error")
	}
}

func TestCombineErrorsAllNil(t *testing.T) {
	if combineErrors([]error{nil, nil}) != nil {
		t.Fatal("combineErrors of all-nil errors should be nil")
	}
	if combineErrors(nil) != nil {
		t.Fatal("combineErrors of an empty slice should be nil")
	}
}

func TestInvariantPanicsOnFalse(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("invariant(false, ...) did not panic")
		}
		if _, ok := r.(*InvariantError); !ok {
			t.Fatalf("panic value = %T, want *InvariantError", r)
		}
	}()
	invariant(false, "this should never happen")
}

func TestInvariantNoPanicOnTrue(t *testing.T) {
	invariant(true, "never triggered")
}
