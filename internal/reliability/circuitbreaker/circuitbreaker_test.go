package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestBreakerTripsAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(3, 2, 10*time.Second).WithClock(func() time.Time { return now })

	var transitions []string
	cb.SetStateChangeCallback(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("attempt %d: expected errBoom, got %v", i, err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open, got %s", cb.GetState())
	}

	called := false
	if err := cb.Execute(func() error { called = true; return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if called {
		t.Fatalf("open breaker must not call through")
	}

	now = now.Add(11 * time.Second)
	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("trial call %d: %v", i, err)
		}
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed after successful trial calls, got %s", cb.GetState())
	}

	want := []string{"closed->open", "open->half_open", "half_open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(1, 1, time.Second).WithClock(func() time.Time { return now })

	_ = cb.Execute(func() error { return errBoom })
	now = now.Add(2 * time.Second)
	if !cb.AllowRequest() || cb.GetState() != StateHalfOpen {
		t.Fatalf("expected half-open trial call to be allowed")
	}
	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatalf("expected failed trial call to reopen, got %s", cb.GetState())
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(2, 1, time.Minute)
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBoom })
	if cb.GetState() != StateClosed {
		t.Fatalf("non-consecutive failures must not trip, got %s", cb.GetState())
	}
}
