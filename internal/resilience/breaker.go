// Package resilience provides the failover primitives the transcription
// pipeline uses to survive flaky recognition backends.
//
// [Breaker] is a three-state circuit breaker (closed, open, half-open) that
// stops the pipeline from hammering a model that keeps producing degenerate
// output. [Chain] composes the models of a fallback chain with one breaker
// per entry: a chunk that fails on the preferred model is retried once there
// and then advanced to the next model, and a model that has tripped its
// breaker is skipped outright for subsequent chunks.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Do] while the breaker is open and
// its cooldown has not yet elapsed.
var ErrBreakerOpen = errors.New("breaker is open")

// breakerState is the operating mode of a [Breaker].
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// BreakerConfig tunes a [Breaker]. Zero-value fields get defaults sized for
// chunk recognition: a model that fails three chunks in a row is benched for
// a minute before a single probe chunk is let through.
type BreakerConfig struct {
	// Name labels the breaker in log output, typically the model ID.
	Name string

	// TripAfter is the number of consecutive failures that opens the
	// breaker. Default: 3.
	TripAfter int

	// Cooldown is how long the breaker stays open before allowing a probe.
	// Default: 1m.
	Cooldown time.Duration
}

// Breaker is a minimal three-state circuit breaker. After TripAfter
// consecutive failures it rejects calls for Cooldown, then admits one probe:
// a successful probe closes the breaker, a failed one restarts the cooldown.
type Breaker struct {
	name      string
	tripAfter int
	cooldown  time.Duration

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
}

// NewBreaker creates a [Breaker] from cfg, applying defaults for zero
// fields.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.TripAfter <= 0 {
		cfg.TripAfter = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	return &Breaker{
		name:      cfg.Name,
		tripAfter: cfg.TripAfter,
		cooldown:  cfg.Cooldown,
	}
}

// Do runs fn if the breaker admits the call, returning [ErrBreakerOpen]
// otherwise. In the half-open state exactly one probe call is in flight at a
// time.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case stateOpen:
		if time.Since(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.state = stateHalfOpen
		slog.Debug("breaker admitting probe", "name", b.name)
	case stateHalfOpen:
		// A probe is already in flight; don't pile on.
		b.mu.Unlock()
		return ErrBreakerOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.fail()
	} else {
		b.succeed()
	}
	return err
}

// fail records a failed call. Caller holds b.mu.
func (b *Breaker) fail() {
	if b.state == stateHalfOpen {
		b.state = stateOpen
		b.openedAt = time.Now()
		slog.Warn("breaker re-opened after failed probe", "name", b.name)
		return
	}
	b.failures++
	if b.failures >= b.tripAfter {
		b.state = stateOpen
		b.openedAt = time.Now()
		slog.Warn("breaker opened", "name", b.name, "consecutive_failures", b.failures)
	}
}

// succeed records a successful call. Caller holds b.mu.
func (b *Breaker) succeed() {
	if b.state == stateHalfOpen {
		slog.Info("breaker closed after successful probe", "name", b.name)
	}
	b.state = stateClosed
	b.failures = 0
}

// Admitting reports whether a call made now would reach the wrapped
// function. An open breaker whose cooldown has elapsed counts as admitting
// (the transition happens on the next [Breaker.Do]).
func (b *Breaker) Admitting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == stateOpen {
		return time.Since(b.openedAt) >= b.cooldown
	}
	return b.state == stateClosed
}

// Reset forces the breaker back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = stateClosed
	b.failures = 0
}
