package errors

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by callers that check Allow and find the
// circuit tripped.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is a circuit breaker's lifecycle stage.
type State int

const (
	// StateClosed allows requests through normally.
	StateClosed State = iota
	// StateOpen blocks requests after too many consecutive failures.
	StateOpen
	// StateHalfOpen allows probe requests through to test recovery.
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

const (
	defaultMaxFailures  = 5
	defaultResetTimeout = 30 * time.Second
)

// CircuitBreaker fails fast once a dependency has failed too many
// times in a row, then lets probes through after a cooldown to test
// whether it has recovered. Callers drive it directly: check
// Allow before calling the dependency, then report the outcome with
// RecordSuccess or RecordFailure.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
}

// CircuitBreakerOption configures a CircuitBreaker at construction.
type CircuitBreakerOption func(*CircuitBreaker)

// WithMaxFailures overrides the default consecutive-failure threshold.
func WithMaxFailures(n int) CircuitBreakerOption {
	return func(cb *CircuitBreaker) { cb.maxFailures = n }
}

// WithResetTimeout overrides the default cooldown before a probe is allowed.
func WithResetTimeout(d time.Duration) CircuitBreakerOption {
	return func(cb *CircuitBreaker) { cb.resetTimeout = d }
}

// NewCircuitBreaker creates a circuit breaker named for the dependency
// it guards, defaulting to 5 consecutive failures and a 30 second cooldown.
func NewCircuitBreaker(name string, opts ...CircuitBreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:         name,
		maxFailures:  defaultMaxFailures,
		resetTimeout: defaultResetTimeout,
		state:        StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Name returns the circuit breaker's label.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// State returns the current lifecycle stage, resolving a stale open
// circuit to half-open once the cooldown has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// currentState resolves StateOpen to StateHalfOpen once resetTimeout
// has elapsed since the last failure. Caller must hold cb.mu.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen && time.Since(cb.lastFailure) > cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Allow reports whether the next request should proceed: true when
// closed or probing half-open, false while the circuit is open. A
// half-open probe is not reserved to a single caller — concurrent
// callers during that window all see Allow return true, and each
// reports its own outcome via RecordSuccess/RecordFailure.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState() != StateOpen
}

// RecordSuccess closes the circuit and resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.state = StateClosed
}

// RecordFailure counts a failure, opening the circuit once maxFailures
// consecutive failures have been recorded.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFailure = time.Now()
	if cb.failures >= cb.maxFailures {
		cb.state = StateOpen
	}
}
