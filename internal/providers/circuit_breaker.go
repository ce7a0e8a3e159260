package providers

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// CircuitBreaker halts calls to a provider that is failing hard, so a dead
// upstream degrades the pipeline instead of stalling it.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration

	failures            int
	successes           int
	totalRequests       int
	consecutiveFailures int
	isOpen              bool
	lastFailureTime     time.Time

	mutex sync.Mutex
}

// NewCircuitBreaker creates a circuit breaker for one provider.
func NewCircuitBreaker(name string, failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
	}
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.successes++
	cb.totalRequests++
	cb.consecutiveFailures = 0
}

// RecordFailure records a failed request (5xx, timeout, decode error)
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.consecutiveFailures++
	cb.totalRequests++
	cb.lastFailureTime = time.Now()

	if cb.consecutiveFailures >= cb.failureThreshold {
		cb.isOpen = true
		log.Warnf("CircuitBreaker[%s]: open after %d consecutive failures, retry after %v",
			cb.name, cb.consecutiveFailures, cb.resetTimeout)
		return
	}

	// Gradual detection: check failure rate once enough requests accumulated
	if cb.totalRequests >= 20 {
		failureRate := float64(cb.failures) / float64(cb.totalRequests)
		if failureRate >= 0.40 {
			cb.isOpen = true
			log.Warnf("CircuitBreaker[%s]: open at %.1f%% failure rate (%d/%d), retry after %v",
				cb.name, failureRate*100, cb.failures, cb.totalRequests, cb.resetTimeout)
		}
	}
}

// CanProceed checks if requests are allowed
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.isOpen {
		return true
	}

	if time.Since(cb.lastFailureTime) > cb.resetTimeout {
		log.Infof("CircuitBreaker[%s]: attempting half-open state after %v", cb.name, cb.resetTimeout)
		cb.isOpen = false
		cb.failures = 0
		cb.successes = 0
		cb.totalRequests = 0
		cb.consecutiveFailures = 0
		return true
	}

	return false
}

// Status returns current breaker state
func (cb *CircuitBreaker) Status() (isOpen bool, failures int, total int) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.isOpen, cb.failures, cb.totalRequests
}
