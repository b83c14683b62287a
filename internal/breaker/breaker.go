// README: Circuit breaker guarding the LLM tier (CLOSED/OPEN/HALF_OPEN, CAS transitions).
package breaker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	}
	return "UNKNOWN"
}

// ErrOpen is returned when the breaker rejects a call without invoking it.
var ErrOpen = errors.New("circuit breaker open")

type Config struct {
	// FailureThreshold consecutive failures flip CLOSED to OPEN.
	FailureThreshold int
	// OpenTimeout is how long after the last failure OPEN admits a probe.
	OpenTimeout time.Duration
	// HalfOpenSuccess consecutive probe successes restore CLOSED.
	HalfOpenSuccess int
}

func DefaultConfig() Config {
	return Config{FailureThreshold: 5, OpenTimeout: 60 * time.Second, HalfOpenSuccess: 2}
}

// Breaker is process-wide and shared across concurrent callers. All state
// lives in atomics; transitions use CAS so concurrent observers agree.
type Breaker struct {
	cfg Config
	now func() time.Time

	state       atomic.Int32
	failures    atomic.Int32
	successes   atomic.Int32
	lastFailure atomic.Int64 // unix nanos
	probing     atomic.Bool  // a single HALF_OPEN probe in flight
}

func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultConfig().OpenTimeout
	}
	if cfg.HalfOpenSuccess <= 0 {
		cfg.HalfOpenSuccess = DefaultConfig().HalfOpenSuccess
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// NewAt is New with an injectable clock, for tests.
func NewAt(cfg Config, now func() time.Time) *Breaker {
	b := New(cfg)
	b.now = now
	return b
}

func (b *Breaker) State() State {
	return State(b.state.Load())
}

// Allow reports whether a call may proceed right now, flipping OPEN to
// HALF_OPEN when the timeout has elapsed. In HALF_OPEN only one probe is
// admitted at a time.
func (b *Breaker) Allow() bool {
	switch b.State() {
	case StateClosed:
		return true
	case StateOpen:
		elapsed := b.now().UnixNano() - b.lastFailure.Load()
		if elapsed < int64(b.cfg.OpenTimeout) {
			return false
		}
		if b.state.CompareAndSwap(int32(StateOpen), int32(StateHalfOpen)) {
			b.successes.Store(0)
			b.probing.Store(false)
		}
		fallthrough
	case StateHalfOpen:
		return b.probing.CompareAndSwap(false, true)
	}
	return false
}

// RecordSuccess acknowledges a successful call admitted by Allow.
func (b *Breaker) RecordSuccess() {
	switch b.State() {
	case StateClosed:
		b.failures.Store(0)
	case StateHalfOpen:
		b.probing.Store(false)
		if b.successes.Add(1) >= int32(b.cfg.HalfOpenSuccess) {
			if b.state.CompareAndSwap(int32(StateHalfOpen), int32(StateClosed)) {
				b.failures.Store(0)
			}
		}
	}
}

// RecordFailure acknowledges a failed call (or a rejected-queue event that
// must count against the upstream).
func (b *Breaker) RecordFailure() {
	b.lastFailure.Store(b.now().UnixNano())
	switch b.State() {
	case StateClosed:
		if b.failures.Add(1) >= int32(b.cfg.FailureThreshold) {
			b.state.CompareAndSwap(int32(StateClosed), int32(StateOpen))
		}
	case StateHalfOpen:
		b.probing.Store(false)
		b.state.CompareAndSwap(int32(StateHalfOpen), int32(StateOpen))
	}
}

// Do runs fn under the breaker; when the call is rejected or fails, fallback
// (if non-nil) supplies the degraded result.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error, fallback func(context.Context, error) error) error {
	if !b.Allow() {
		if fallback != nil {
			return fallback(ctx, ErrOpen)
		}
		return ErrOpen
	}
	err := fn(ctx)
	if err != nil {
		b.RecordFailure()
		if fallback != nil {
			return fallback(ctx, err)
		}
		return err
	}
	b.RecordSuccess()
	return nil
}
