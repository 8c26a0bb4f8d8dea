// Package resilience guards calls to optional external systems. The Redis
// presence mirror runs behind a circuit breaker so a dead Redis degrades
// chat presence instead of stalling every status update.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"
)

// ErrCircuitOpen is returned when the breaker short-circuits a call.
var ErrCircuitOpen = errors.New("circuit open")

// State of the breaker. Closed passes calls through, open rejects them,
// half-open lets a probe trickle through after the retry timeout.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// CircuitBreakerConfig tunes one breaker instance.
type CircuitBreakerConfig struct {
	Name string
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold uint
	// SuccessThreshold probe successes close it again.
	SuccessThreshold uint
	// RetryTimeout is how long the circuit stays open before probing.
	RetryTimeout time.Duration
}

func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RetryTimeout:     60 * time.Second,
	}
}

// CircuitBreaker counts failures and successes under one mutex; Execute is
// called from request paths, so state checks stay cheap.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	log    *logger.Logger

	mu              sync.RWMutex
	state           State
	failureCount    uint
	successCount    uint
	nextAttemptTime time.Time

	totalRequests  uint64
	totalFailures  uint64
	totalSuccesses uint64
	timesOpened    uint64
}

func NewCircuitBreaker(config CircuitBreakerConfig, log *logger.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		log:    log,
	}
}

// Execute runs fn unless the circuit is open, and folds the outcome into
// the breaker's state.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allowRequest() {
		cb.log.Warn("circuit breaker rejecting call", "name", cb.config.Name, "state", string(cb.State()))
		return ErrCircuitOpen
	}

	cb.mu.Lock()
	cb.totalRequests++
	cb.mu.Unlock()

	if err := fn(); err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.RLock()
	state := cb.state
	nextAttempt := cb.nextAttemptTime
	successes := cb.successCount
	cb.mu.RUnlock()

	switch state {
	case StateClosed:
		return true
	case StateOpen:
		if !time.Now().After(nextAttempt) {
			return false
		}
		cb.mu.Lock()
		defer cb.mu.Unlock()
		// Re-check: another goroutine may have moved the state already.
		if cb.state == StateOpen && time.Now().After(cb.nextAttemptTime) {
			cb.state = StateHalfOpen
			cb.successCount = 0
			cb.log.Info("circuit breaker half-open", "name", cb.config.Name)
			return true
		}
		return cb.state == StateHalfOpen
	case StateHalfOpen:
		return successes < cb.config.SuccessThreshold
	}
	return false
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalSuccesses++
	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.successCount = 0
			cb.log.Info("circuit breaker closed", "name", cb.config.Name)
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalFailures++
	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.open()
		}
	case StateHalfOpen:
		cb.open()
	}
}

// open must be called with the mutex held.
func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.timesOpened++
	cb.nextAttemptTime = time.Now().Add(cb.config.RetryTimeout)
	cb.log.Info("circuit breaker opened",
		"name", cb.config.Name,
		"failures", cb.failureCount,
		"next_attempt", cb.nextAttemptTime.Format(time.RFC3339),
	)
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Metrics reports cumulative counters for health endpoints.
func (cb *CircuitBreaker) Metrics() map[string]interface{} {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return map[string]interface{}{
		"name":            cb.config.Name,
		"state":           string(cb.state),
		"total_requests":  cb.totalRequests,
		"total_failures":  cb.totalFailures,
		"total_successes": cb.totalSuccesses,
		"times_opened":    cb.timesOpened,
	}
}
