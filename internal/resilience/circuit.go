// Package resilience implements C14: circuit breaker, bounded retry with
// jitter, and named timeouts. Grounded on
// _examples/Aman-CERP-amanmcp/internal/errors/{circuit,retry}.go, extended
// for spec.md §4.13's half_open_max_calls (concurrent probes) and ±25%
// retry jitter. No circuit-breaker library exists anywhere in the example
// pack, so this stays hand-rolled rather than reaching for stdlib alone —
// see DESIGN.md.
package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrOpen is returned when the circuit breaker fast-fails a call.
var ErrOpen = errors.New("circuit breaker is open")

// State is one of the three circuit breaker states.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerOption configures a CircuitBreaker.
type CircuitBreakerOption func(*CircuitBreaker)

// WithFailureThreshold sets the number of consecutive failures before the
// circuit opens.
func WithFailureThreshold(n int) CircuitBreakerOption {
	return func(cb *CircuitBreaker) { cb.failureThreshold = n }
}

// WithRecoveryTimeout sets how long the circuit stays open before admitting
// half-open probes.
func WithRecoveryTimeout(d time.Duration) CircuitBreakerOption {
	return func(cb *CircuitBreaker) { cb.recoveryTimeout = d }
}

// WithHalfOpenMaxCalls sets how many concurrent probes are admitted while
// half-open.
func WithHalfOpenMaxCalls(n int) CircuitBreakerOption {
	return func(cb *CircuitBreaker) { cb.halfOpenMaxCalls = n }
}

// OnStateChange registers a callback invoked on every state transition, used
// by callers that want the transitions logged (spec.md: "State transitions
// are logged").
func OnStateChange(fn func(name string, from, to State)) CircuitBreakerOption {
	return func(cb *CircuitBreaker) { cb.onStateChange = fn }
}

// CircuitBreaker implements the three-state breaker from spec §4.13.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	halfOpenMaxCalls int
	onStateChange    func(name string, from, to State)

	mu              sync.Mutex
	state           State
	consecutiveFail int
	lastFailure     time.Time
	halfOpenInFlight int32 // atomic probe counter while half-open
}

// NewCircuitBreaker creates a breaker with defaults of 5 consecutive
// failures, a 30s recovery timeout, and 1 half-open probe at a time.
func NewCircuitBreaker(name string, opts ...CircuitBreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:             name,
		failureThreshold: 5,
		recoveryTimeout:  30 * time.Second,
		halfOpenMaxCalls: 1,
		state:            StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

func (cb *CircuitBreaker) Name() string { return cb.name }

// State reports the current state, resolving an Open breaker whose recovery
// timeout has elapsed into HalfOpen.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && time.Since(cb.lastFailure) > cb.recoveryTimeout {
		cb.transition(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	if to != StateHalfOpen {
		atomic.StoreInt32(&cb.halfOpenInFlight, 0)
	}
	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}

// Allow reports whether a caller may proceed; HalfOpen admits at most
// halfOpenMaxCalls concurrent probes.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	state := cb.currentStateLocked()
	cb.mu.Unlock()

	switch state {
	case StateClosed:
		return true
	case StateHalfOpen:
		return atomic.AddInt32(&cb.halfOpenInFlight, 1) <= int32(cb.halfOpenMaxCalls)
	default: // StateOpen
		return false
	}
}

// RecordSuccess closes the circuit. A success during HalfOpen closes it
// immediately per spec: "one probe success returns to CLOSED".
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFail = 0
	cb.transition(StateClosed)
}

// RecordFailure increments the consecutive-failure count and opens the
// circuit once the threshold is reached, or immediately re-opens it if the
// failure happened during a HalfOpen probe.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.lastFailure = time.Now()

	if cb.state == StateHalfOpen {
		cb.transition(StateOpen)
		return
	}

	cb.consecutiveFail++
	if cb.consecutiveFail >= cb.failureThreshold {
		cb.transition(StateOpen)
	}
}

// Execute runs fn through the breaker, fast-failing with ErrOpen while open
// or while HalfOpen's probe quota is exhausted.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.Allow() {
		return ErrOpen
	}
	err := fn()
	if err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

// ExecuteWithResult runs fn through the breaker, generic over the result
// type (the teacher's Aman-CERP version is string-only; MnemoLite's callers
// need arbitrary result types).
func ExecuteWithResult[T any](cb *CircuitBreaker, fn func() (T, error), fallback func() (T, error)) (T, error) {
	if !cb.Allow() {
		return fallback()
	}
	result, err := fn()
	if err != nil {
		cb.RecordFailure()
		return fallback()
	}
	cb.RecordSuccess()
	return result, nil
}
