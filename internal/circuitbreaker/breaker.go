// Package circuitbreaker takes a bridge API out of rotation after repeated
// failures or implausible quotes, and lets it back in after a cooldown.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/bridge-fee-tracker/internal/model"
)

// State represents the current state of the circuit breaker
type State int

// Circuit breaker states
const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Tripped, fetches are skipped
	StateHalfOpen              // Probing whether the upstream has recovered
)

// String returns the state name used in logs and metric labels.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// ErrOpen is returned by Allow while the circuit is open.
var ErrOpen = errors.New("circuit breaker open")

// Thresholds defines the limits that will trip the circuit breaker
type Thresholds struct {
	// MaxConsecutiveFailures trips the circuit once this many fetches in a
	// row have failed
	MaxConsecutiveFailures int `json:"max_consecutive_failures"`

	// SuspiciousTrips counts quotes that failed plausibility validation as
	// failures when set
	SuspiciousTrips bool `json:"suspicious_trips,omitempty"`
}

// CircuitBreaker guards a single bridge API. Fetch attempts pass through
// Allow first; the outcome is reported back through one of the Record
// methods, which drive the state transitions.
type CircuitBreaker struct {
	// Protocol whose API this breaker guards
	protocol string

	// Configuration thresholds for tripping the circuit
	thresholds Thresholds

	// Current state of the circuit breaker (Closed, Open, HalfOpen)
	state State

	// Count of consecutive failed fetches
	failureCount int

	// Timestamp of the last circuit trip
	lastTrip time.Time

	// Duration before an automatic half-open probe
	resetDelay time.Duration

	// Count of consecutive successful fetches in HalfOpen state
	successCount int

	// Number of successful fetches required to close the circuit
	successThreshold int

	// Most recent quote that passed validation, kept as a fallback
	lastGood *model.FeeQuote

	// Event callback for monitoring/alerting
	onTripCallback func(protocol, reason string)

	// Mutex for thread safety
	mu sync.RWMutex
}

// New creates a new CircuitBreaker for a protocol with the provided thresholds
func New(protocol string, t Thresholds) *CircuitBreaker {
	if t.MaxConsecutiveFailures <= 0 {
		t.MaxConsecutiveFailures = 3
	}
	return &CircuitBreaker{
		protocol:         protocol,
		thresholds:       t,
		state:            StateClosed,
		resetDelay:       5 * time.Minute,
		successThreshold: 2,
	}
}

// WithResetDelay sets a custom reset delay and returns the circuit breaker
func (cb *CircuitBreaker) WithResetDelay(delay time.Duration) *CircuitBreaker {
	cb.resetDelay = delay
	return cb
}

// WithSuccessThreshold sets the number of successful fetches needed to close the circuit
func (cb *CircuitBreaker) WithSuccessThreshold(threshold int) *CircuitBreaker {
	cb.successThreshold = threshold
	return cb
}

// WithTripCallback sets a callback function that is called when the circuit trips
func (cb *CircuitBreaker) WithTripCallback(callback func(protocol, reason string)) *CircuitBreaker {
	cb.onTripCallback = callback
	return cb
}

// Allow reports whether a fetch may proceed. While the circuit is open it
// returns ErrOpen until the reset delay has passed, at which point the
// breaker moves to half-open and lets a probe through.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastTrip) <= cb.resetDelay {
			return fmt.Errorf("%w for %s", ErrOpen, cb.protocol)
		}
		cb.state = StateHalfOpen
		cb.successCount = 0
		logrus.Infof("Circuit breaker half-open for %s: probing recovery", cb.protocol)
	}
	return nil
}

// RecordSuccess notes a fetch that produced a valid quote. It clears the
// failure streak and, in half-open state, counts toward closing the circuit.
func (cb *CircuitBreaker) RecordSuccess(q model.FeeQuote) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	quote := q
	cb.lastGood = &quote

	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = StateClosed
			cb.successCount = 0
			logrus.Infof("Circuit breaker closed for %s: upstream has recovered", cb.protocol)
		}
	}
}

// RecordFailure notes a failed fetch. A failure during a half-open probe
// reopens the circuit immediately.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++

	if cb.state == StateHalfOpen {
		cb.trip(fmt.Sprintf("half-open probe failed: %v", err))
		return
	}
	if cb.failureCount >= cb.thresholds.MaxConsecutiveFailures {
		cb.trip(fmt.Sprintf("%d consecutive failures, last: %v", cb.failureCount, err))
	}
}

// RecordSuspicious notes a quote that failed plausibility validation. With
// SuspiciousTrips set it counts like a failed fetch.
func (cb *CircuitBreaker) RecordSuspicious(reason string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"protocol": cb.protocol,
		"reason":   reason,
	}).Warn("Suspicious quote recorded")

	if !cb.thresholds.SuspiciousTrips {
		return
	}

	cb.failureCount++

	if cb.state == StateHalfOpen {
		cb.trip(fmt.Sprintf("half-open probe returned a suspicious quote: %s", reason))
		return
	}
	if cb.failureCount >= cb.thresholds.MaxConsecutiveFailures {
		cb.trip(fmt.Sprintf("%d consecutive bad results, last: %s", cb.failureCount, reason))
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Protocol returns the protocol this breaker guards
func (cb *CircuitBreaker) Protocol() string {
	return cb.protocol
}

// Reset forcibly resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	logrus.Infof("Circuit breaker for %s manually reset to closed state", cb.protocol)
}

// LastGoodQuote returns the most recent quote that passed validation. The
// second return value is false if no quote has been recorded yet.
func (cb *CircuitBreaker) LastGoodQuote() (model.FeeQuote, bool) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if cb.lastGood == nil {
		return model.FeeQuote{}, false
	}
	return *cb.lastGood, true
}

// trip opens the circuit. Callers must hold the write lock.
func (cb *CircuitBreaker) trip(reason string) {
	cb.state = StateOpen
	cb.lastTrip = time.Now()
	cb.successCount = 0
	logrus.Warnf("Circuit breaker tripped for %s: %s", cb.protocol, reason)

	if cb.onTripCallback != nil {
		go cb.onTripCallback(cb.protocol, reason)
	}
}
