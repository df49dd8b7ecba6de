package ai

import (
	"log/slog"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// CircuitClosed lets every call through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the cooldown has elapsed.
	CircuitOpen
	// CircuitHalfOpen lets a single probe through.
	CircuitHalfOpen
)

// String returns a string representation of the circuit state
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker short-circuits calls to the completion endpoint after consecutive failures,
// so fallbacks are served without waiting out the request timeout. A nil *CircuitBreaker
// always allows.
type CircuitBreaker struct {
	mu        sync.Mutex
	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	state         CircuitState
	failures      int
	openedAt      time.Time
	probeInFlight bool
	totalRequests int
	totalFailures int
}

// NewCircuitBreaker returns a breaker opening after threshold consecutive failures.
// threshold <= 0 disables breaking and returns nil.
func NewCircuitBreaker(name string, threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		return nil
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		state:     CircuitClosed,
	}
}

// Allow reports whether a call may be attempted. Once the cooldown of an open circuit
// has elapsed the breaker moves to half-open and admits exactly one probe.
func (cb *CircuitBreaker) Allow() bool {
	if cb == nil {
		return true
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return false
		}
		cb.state = CircuitHalfOpen
		cb.probeInFlight = true
		slog.Info("circuit breaker half-open, probing", slog.String("breaker", cb.name))
		return true
	case CircuitHalfOpen:
		if cb.probeInFlight {
			return false
		}
		cb.probeInFlight = true
		return true
	default:
		return false
	}
}

// RecordSuccess closes the circuit and resets the failure streak.
func (cb *CircuitBreaker) RecordSuccess() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++
	cb.failures = 0
	cb.probeInFlight = false
	if cb.state != CircuitClosed {
		slog.Info("circuit breaker closed after successful probe", slog.String("breaker", cb.name))
	}
	cb.state = CircuitClosed
}

// RecordFailure extends the failure streak, opening the circuit at the threshold.
// A failed half-open probe reopens it for another cooldown.
func (cb *CircuitBreaker) RecordFailure() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++
	cb.totalFailures++
	cb.failures++
	cb.probeInFlight = false

	if cb.state == CircuitHalfOpen || cb.failures >= cb.threshold {
		if cb.state != CircuitOpen {
			slog.Warn("circuit breaker opened",
				slog.String("breaker", cb.name),
				slog.Int("consecutive_failures", cb.failures),
				slog.Int("threshold", cb.threshold),
				slog.Duration("cooldown", cb.cooldown))
		}
		cb.state = CircuitOpen
		cb.openedAt = cb.now()
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	if cb == nil {
		return CircuitClosed
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns counters for diagnostics.
func (cb *CircuitBreaker) Stats() map[string]any {
	if cb == nil {
		return map[string]any{"state": CircuitClosed.String(), "enabled": false}
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return map[string]any{
		"enabled":              true,
		"name":                 cb.name,
		"state":                cb.state.String(),
		"consecutive_failures": cb.failures,
		"total_requests":       cb.totalRequests,
		"total_failures":       cb.totalFailures,
	}
}
