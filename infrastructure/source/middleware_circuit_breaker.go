package source

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fsscore/zonescore/internal/domain"
	"github.com/fsscore/zonescore/internal/ports"
)

// ErrCircuitOpen indicates that the circuit breaker rejected a fetch
// without calling the backing store.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState is the current state of a circuit breaker.
type CircuitState int

// Circuit breaker states.
const (
	// StateClosed passes every fetch through.
	StateClosed CircuitState = iota

	// StateOpen rejects fetches until the cooldown expires.
	StateOpen

	// StateHalfOpen lets a single trial fetch through after the cooldown
	// and rejects the rest until it completes.
	StateHalfOpen
)

// String returns the state name used in logs and metric labels.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker opens after maxFailures consecutive failures and stays
// open for the cooldown before letting a trial call through.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        CircuitState
	failureCount int
	maxFailures  int
	cooldown     time.Duration
	lastFailure  time.Time
	trialActive  bool
	now          func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:       StateClosed,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// allow reports whether a call may proceed and whether it is the trial
// call. An expired open circuit moves to half-open and admits one trial.
func (cb *CircuitBreaker) allow() (ok, trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true, false
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.cooldown {
			return false, false
		}
		cb.state = StateHalfOpen
	}

	if cb.trialActive {
		return false, false
	}
	cb.trialActive = true
	return true, true
}

// record updates the circuit with the outcome of a call. Only retryable
// failures count toward tripping: a malformed record says nothing about
// the health of the store. A call abandoned by its caller leaves the
// circuit unchanged.
func (cb *CircuitBreaker) record(err error, trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.trialActive = false
	}

	if callerGaveUp(err) {
		return
	}
	if err == nil || !ports.IsRetryable(err) {
		cb.failureCount = 0
		cb.state = StateClosed
		return
	}

	cb.failureCount++
	cb.lastFailure = cb.now()
	if cb.state == StateHalfOpen || cb.failureCount >= cb.maxFailures {
		cb.state = StateOpen
	}
}

// callerGaveUp reports whether err comes from the caller's own
// cancellation or deadline rather than from the store.
func callerGaveUp(err error) bool {
	if err == nil || ports.IsRetryable(err) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// CircuitBreakerMiddleware creates middleware guarding the wrapped source
// with cb. Rejected fetches fail with a SourceError wrapping
// ErrCircuitOpen, which is not retryable.
func CircuitBreakerMiddleware(cb *CircuitBreaker) Middleware {
	return intercepting(func(ctx context.Context, op string, snapshotID domain.SnapshotID, fetch call) error {
		ok, trial := cb.allow()
		if !ok {
			return ports.NewSourceError(op, snapshotID, ErrCircuitOpen)
		}
		err := fetch(ctx)
		cb.record(err, trial)
		return err
	})
}
