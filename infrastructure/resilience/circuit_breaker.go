// Package resilience implements the per-module circuit breaker the kernel
// uses to stop dispatching to a module that keeps failing.
package resilience

import (
	"errors"
	"sync"
	"time"
)

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

// ErrOpen is returned by Allow when the breaker is Open and the reset
// timeout has not yet elapsed, or when it is HalfOpen and already has a
// trial in flight.
var ErrOpen = errors.New("circuit breaker is open")

// Config controls the failure threshold and reset timeout of a breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips
	// Closed to Open.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays Open before allowing a
	// single HalfOpen trial.
	ResetTimeout  time.Duration
	OnStateChange func(from, to State)
}

// DefaultConfig mirrors the kernel's built-in policy defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		ResetTimeout:     5 * time.Second,
	}
}

// CircuitBreaker tracks one module's Closed/Open/HalfOpen state. It does not
// execute the module's task itself; the kernel calls Allow before dispatch
// and RecordSuccess/RecordFailure after harvest.
type CircuitBreaker struct {
	mu             sync.Mutex
	config         Config
	state          State
	consecutiveFails int
	lastFailure    time.Time
	halfOpenInFlight bool
}

// New creates a CircuitBreaker in the Closed state.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 5 * time.Second
	}
	return &CircuitBreaker{config: cfg, state: StateClosed}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Allow reports whether a dispatch should proceed, transitioning Open to
// HalfOpen when the reset timeout has elapsed.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.config.ResetTimeout {
			return ErrOpen
		}
		cb.setState(StateHalfOpen)
		cb.halfOpenInFlight = true
		return nil
	case StateHalfOpen:
		if cb.halfOpenInFlight {
			return ErrOpen
		}
		cb.halfOpenInFlight = true
		return nil
	default:
		return nil
	}
}

// RecordSuccess reports a successfully-harvested tick.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.halfOpenInFlight = false
		cb.setState(StateClosed)
	case StateClosed:
		cb.consecutiveFails = 0
	}
}

// RecordFailure reports a failed or timed-out tick.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailure = time.Now()

	switch cb.state {
	case StateHalfOpen:
		cb.halfOpenInFlight = false
		cb.setState(StateOpen)
	case StateClosed:
		cb.consecutiveFails++
		if cb.consecutiveFails >= cb.config.FailureThreshold {
			cb.setState(StateOpen)
		}
	}
}

// setState must be called with cb.mu held.
func (cb *CircuitBreaker) setState(newState State) {
	if cb.state == newState {
		return
	}
	old := cb.state
	cb.state = newState
	cb.consecutiveFails = 0

	if cb.config.OnStateChange != nil {
		go cb.config.OnStateChange(old, newState)
	}
}
