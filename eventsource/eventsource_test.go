package eventsource

import "testing"

func TestIOEventsAreDistinctBits(t *testing.T) {
	all := []IOEvents{EventRead, EventWrite, EventError, EventHangup}
	seen := IOEvents(0)
	for _, e := range all {
		if seen&e != 0 {
			t.Fatalf("event bit %d overlaps a previously seen bit", e)
		}
		seen |= e
	}
}

func TestUnregisterUnknownFDReturnsError(t *testing.T) {
	src, err := NewIOEventSource()
	if err != nil {
		t.Fatalf("NewIOEventSource() error = %v", err)
	}
	defer src.Close()

	if err := src.Unregister(999999); err != ErrFDNotRegistered {
		t.Fatalf("Unregister(unknown fd) = %v, want ErrFDNotRegistered", err)
	}
}

func TestModifyUnknownFDReturnsError(t *testing.T) {
	src, err := NewIOEventSource()
	if err != nil {
		t.Fatalf("NewIOEventSource() error = %v", err)
	}
	defer src.Close()

	if err := src.Modify(999999, EventRead); err != ErrFDNotRegistered {
		t.Fatalf("Modify(unknown fd) = %v, want ErrFDNotRegistered", err)
	}
}
