package webhook

import (
	"net/url"
	"sync"
	"time"
)

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

var circuitStateNames = [...]string{"closed", "open", "half-open"}

func (s CircuitState) String() string {
	if s < 0 || int(s) >= len(circuitStateNames) {
		return "unknown"
	}
	return circuitStateNames[s]
}

// CircuitBreaker refuses requests to an endpoint after failureThreshold
// consecutive failures. After recoveryTimeout it lets probes through and
// closes again after successThreshold consecutive successes; a failed probe
// reopens it. Safe for concurrent use.
type CircuitBreaker struct {
	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration

	mu        sync.Mutex
	state     CircuitState
	failures  int
	successes int
	openedAt  time.Time
}

// NewCircuitBreaker returns a closed breaker. Non-positive arguments use
// 5 failures, 2 successes and 30 seconds.
func NewCircuitBreaker(failureThreshold, successThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: positiveOr(failureThreshold, 5),
		successThreshold: positiveOr(successThreshold, 2),
		recoveryTimeout:  positiveOr(recoveryTimeout, 30*time.Second),
	}
}

// Allow reports whether a request may be sent now.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.current() != CircuitOpen
}

// RecordSuccess registers a delivered request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.current() {
	case CircuitClosed:
		cb.failures = 0
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.state, cb.failures, cb.successes = CircuitClosed, 0, 0
		}
	}
}

// RecordFailure registers a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.current() {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.trip()
		}
	case CircuitHalfOpen:
		cb.trip()
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.current()
}

// Reset closes the breaker and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state, cb.failures, cb.successes, cb.openedAt = CircuitClosed, 0, 0, time.Time{}
}

// current moves an expired open breaker to half-open. Caller holds mu.
func (cb *CircuitBreaker) current() CircuitState {
	if cb.state == CircuitOpen && time.Since(cb.openedAt) > cb.recoveryTimeout {
		cb.state, cb.successes = CircuitHalfOpen, 0
	}
	return cb.state
}

// Caller holds mu.
func (cb *CircuitBreaker) trip() {
	cb.state, cb.successes, cb.openedAt = CircuitOpen, 0, time.Now()
}

// Breakers hands out one CircuitBreaker per endpoint host, so every user
// webhook pointing at the same receiver shares its failure budget.
type Breakers struct {
	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewBreakers creates a per-host registry; arguments as in NewCircuitBreaker.
func NewBreakers(failureThreshold, successThreshold int, recoveryTimeout time.Duration) *Breakers {
	return &Breakers{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		recoveryTimeout:  recoveryTimeout,
		breakers:         make(map[string]*CircuitBreaker),
	}
}

// For returns the breaker of rawURL's host, creating it on first use.
// Unparseable URLs get a breaker of their own.
func (b *Breakers) For(rawURL string) *CircuitBreaker {
	key := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		key = u.Host
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cb, ok := b.breakers[key]
	if !ok {
		cb = NewCircuitBreaker(b.failureThreshold, b.successThreshold, b.recoveryTimeout)
		b.breakers[key] = cb
	}
	return cb
}

func positiveOr[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
