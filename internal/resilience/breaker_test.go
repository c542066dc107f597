package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errConn = errors.New("failed to connect to `host=db`: dial error")

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "spatial"})

	var calls int
	err := b.Execute(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if b.State() != Closed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "spatial", FailureThreshold: 3, ResetTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_ = b.Execute(context.Background(), func(_ context.Context) error { return errConn })
	}
	if b.State() != Open {
		t.Fatalf("expected open after 3 failures, got %s", b.State())
	}

	err := b.Execute(context.Background(), func(_ context.Context) error {
		t.Error("fn must not run while open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreaker_DomainErrorsDoNotTrip(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "spatial", FailureThreshold: 1})

	domain := errors.New("no layer for material")
	for i := 0; i < 5; i++ {
		if err := b.Execute(context.Background(), func(_ context.Context) error { return domain }); !errors.Is(err, domain) {
			t.Fatalf("expected domain error back, got %v", err)
		}
	}
	if b.State() != Closed {
		t.Errorf("expected closed, got %s", b.State())
	}
	if b.Failures() != 0 {
		t.Errorf("expected 0 failures, got %d", b.Failures())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(BreakerConfig{Name: "spatial", FailureThreshold: 1, ResetTimeout: 10 * time.Second})
	b.nowFunc = func() time.Time { return now }

	_ = b.Execute(context.Background(), func(_ context.Context) error { return errConn })
	if b.State() != Open {
		t.Fatalf("expected open, got %s", b.State())
	}

	now = now.Add(11 * time.Second)
	if b.State() != HalfOpen {
		t.Fatalf("expected half-open after reset timeout, got %s", b.State())
	}

	// A failed probe reopens the circuit.
	_ = b.Execute(context.Background(), func(_ context.Context) error { return errConn })
	if b.State() != Open {
		t.Fatalf("expected open after failed probe, got %s", b.State())
	}

	now = now.Add(11 * time.Second)
	v, err := ExecuteVal(context.Background(), b, func(_ context.Context) (float64, error) { return 4.2, nil })
	if err != nil || v != 4.2 {
		t.Fatalf("probe: got %v, %v", v, err)
	}
	if b.State() != Closed {
		t.Errorf("expected closed after successful probe, got %s", b.State())
	}
}

func TestExecuteVal_Open(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "spatial", FailureThreshold: 1, ResetTimeout: time.Hour})
	_ = b.Execute(context.Background(), func(_ context.Context) error { return errConn })

	v, err := ExecuteVal(context.Background(), b, func(_ context.Context) (int, error) { return 7, nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if v != 0 {
		t.Errorf("expected zero value, got %d", v)
	}
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{Closed: "closed", Open: "open", HalfOpen: "half-open", State(9): "unknown"} {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}
