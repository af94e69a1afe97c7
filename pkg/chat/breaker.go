package chat

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrUnavailable is returned without contacting the backend while the
// breaker is open.
var ErrUnavailable = eris.New("chat: backend unavailable")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker stops calls to a backend after threshold consecutive failures.
// Once reset has elapsed one trial call is let through; its outcome closes or
// reopens the circuit.
type breaker struct {
	threshold int
	reset     time.Duration

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time

	now func() time.Time
}

func newBreaker(threshold int, reset time.Duration) *breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if reset <= 0 {
		reset = 30 * time.Second
	}
	return &breaker{threshold: threshold, reset: reset, now: time.Now}
}

func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		if b.now().Sub(b.openedAt) < b.reset {
			return ErrUnavailable
		}
		b.transition(breakerHalfOpen)
		return nil
	case breakerHalfOpen:
		// One trial call at a time.
		return ErrUnavailable
	default:
		return nil
	}
}

func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		if b.state != breakerClosed {
			b.transition(breakerClosed)
		}
		return
	}

	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.threshold {
		b.openedAt = b.now()
		if b.state != breakerOpen {
			b.transition(breakerOpen)
		}
	}
}

// abandon releases a trial call whose caller went away without an answer. The
// next call tries again.
func (b *breaker) abandon() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openedAt = b.now().Add(-b.reset)
	}
}

func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *breaker) transition(to breakerState) {
	zap.L().Warn("chat: breaker state change",
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
		zap.Int("failures", b.failures),
	)
	b.state = to
}
