// Package resilience provides the circuit breaker guarding the remote
// exchange endpoints.
//
// The exchange contract is single-attempt: no call is ever retried. The
// breaker adds the complementary protection — after repeated consecutive
// failures against an endpoint it fails fast with [ErrOpen] instead of
// burning a network round-trip per episode, then probes the endpoint again
// after a cooldown. All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Do] while the breaker is open and the
// probe cooldown has not yet elapsed.
var ErrOpen = errors.New("resilience: circuit open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrOpen] until the cooldown elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through to decide
	// whether to close or re-open.
	StateHalfOpen
)

// String returns the human-readable name of the state.
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

// BreakerConfig holds tuning knobs for a [Breaker]. Zero values get
// defaults suitable for the exchange endpoints.
type BreakerConfig struct {
	// Name labels the breaker in log messages (usually the endpoint path).
	Name string

	// MaxFailures is the consecutive-failure count that opens the
	// breaker. Default: 3.
	MaxFailures int

	// Cooldown is how long the breaker stays open before probing.
	// Default: 15s.
	Cooldown time.Duration

	// ProbeMax is the number of half-open probe calls allowed before the
	// breaker decides. Default: 1.
	ProbeMax int
}

// Breaker is a classic three-state circuit breaker.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	probeMax    int

	mu         sync.Mutex
	state      State
	failures   int
	openedAt   time.Time
	probes     int
	probeFails int
}

// NewBreaker creates a [Breaker], replacing zero config fields with
// defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.ProbeMax <= 0 {
		cfg.ProbeMax = 1
	}
	return &Breaker{
		name:        cfg.Name,
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		probeMax:    cfg.ProbeMax,
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs fn if the breaker allows it. While open it returns [ErrOpen]
// without calling fn; in half-open a limited number of probes run. fn's
// error, if any, is returned unchanged so callers keep their own taxonomy.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if time.Since(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = StateHalfOpen
		b.probes = 0
		b.probeFails = 0
		slog.Info("circuit breaker probing", "name", b.name)
	case StateHalfOpen:
		if b.probes >= b.probeMax {
			b.mu.Unlock()
			return ErrOpen
		}
	}
	if b.state == StateHalfOpen {
		b.probes++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

// onFailure records a failed call. Must be called with b.mu held.
func (b *Breaker) onFailure() {
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.maxFailures {
			b.trip()
		}
	case StateHalfOpen:
		b.probeFails++
		if b.probeFails >= b.probeMax {
			b.trip()
		}
	}
}

// onSuccess records a successful call. Must be called with b.mu held.
func (b *Breaker) onSuccess() {
	if b.state == StateHalfOpen {
		slog.Info("circuit breaker closing", "name", b.name)
	}
	b.state = StateClosed
	b.failures = 0
}

// trip opens the breaker. Must be called with b.mu held.
func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = time.Now()
	b.failures = 0
	slog.Warn("circuit breaker opened",
		"name", b.name,
		"cooldown", b.cooldown,
	)
}
