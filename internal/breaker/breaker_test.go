package breaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestBreaker() (*Breaker, *time.Time) {
	now := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	b := NewAt(Config{FailureThreshold: 5, OpenTimeout: 60 * time.Second, HalfOpenSuccess: 2},
		func() time.Time { return now })
	return b, &now
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker()
	for i := 0; i < 4; i++ {
		b.RecordFailure()
		if b.State() != StateClosed {
			t.Fatalf("opened after %d failures", i+1)
		}
	}
	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("state = %v after 5 failures", b.State())
	}
	if b.Allow() {
		t.Fatal("OPEN breaker admitted a call")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker()
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	b.RecordSuccess()
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	if b.State() != StateClosed {
		t.Fatal("non-consecutive failures must not open the breaker")
	}
}

func TestBreaker_HalfOpenSingleProbeThenClose(t *testing.T) {
	b, now := newTestBreaker()
	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	*now = now.Add(61 * time.Second)

	if !b.Allow() {
		t.Fatal("probe not admitted after timeout")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v", b.State())
	}
	// A concurrent second call while the probe is in flight is rejected.
	if b.Allow() {
		t.Fatal("second probe admitted while first in flight")
	}

	b.RecordSuccess()
	if !b.Allow() {
		t.Fatal("second probe not admitted after first success")
	}
	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Fatalf("state = %v after two probe successes", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker()
	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	*now = now.Add(61 * time.Second)
	if !b.Allow() {
		t.Fatal("probe not admitted")
	}
	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("state = %v after probe failure", b.State())
	}
	if b.Allow() {
		t.Fatal("reopened breaker admitted a call")
	}
}

func TestBreaker_DoFallback(t *testing.T) {
	b, _ := newTestBreaker()
	boom := errors.New("upstream down")

	for i := 0; i < 5; i++ {
		err := b.Do(context.Background(), func(context.Context) error { return boom },
			func(_ context.Context, cause error) error {
				if !errors.Is(cause, boom) && !errors.Is(cause, ErrOpen) {
					t.Fatalf("unexpected cause %v", cause)
				}
				return nil
			})
		if err != nil {
			t.Fatalf("fallback swallowed error, got %v", err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v", b.State())
	}

	// The sixth call short-circuits: fn must not run.
	ran := false
	_ = b.Do(context.Background(), func(context.Context) error { ran = true; return nil },
		func(_ context.Context, cause error) error {
			if !errors.Is(cause, ErrOpen) {
				t.Fatalf("cause = %v, want ErrOpen", cause)
			}
			return nil
		})
	if ran {
		t.Fatal("OPEN breaker invoked fn")
	}
}
