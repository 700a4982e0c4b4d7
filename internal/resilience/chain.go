package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrChainExhausted is returned when every entry in a [Chain] has failed or
// has an open breaker.
var ErrChainExhausted = errors.New("all chain entries failed")

// ChainConfig configures a [Chain].
type ChainConfig struct {
	// Breaker is the per-entry breaker configuration. The Name field is
	// overwritten with each entry's own name.
	Breaker BreakerConfig

	// RetriesPerEntry is how many extra attempts an entry gets before the
	// chain advances to the next one. Default: 1.
	RetriesPerEntry int
}

// chainEntry pairs a value with its dedicated breaker.
type chainEntry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Chain wraps an ordered list of interchangeable backends, most preferred
// first. A call runs against the first admitting entry; on failure the entry
// is retried up to RetriesPerEntry times and then the chain advances.
//
// Chain is safe for concurrent use once built. Append is not safe to call
// concurrently with Run.
type Chain[T any] struct {
	entries []chainEntry[T]
	cfg     ChainConfig
}

// NewChain creates an empty [Chain]. Entries are added with [Chain.Append]
// in preference order.
func NewChain[T any](cfg ChainConfig) *Chain[T] {
	if cfg.RetriesPerEntry <= 0 {
		cfg.RetriesPerEntry = 1
	}
	return &Chain[T]{cfg: cfg}
}

// Append adds an entry to the end of the chain.
func (c *Chain[T]) Append(name string, value T) {
	bCfg := c.cfg.Breaker
	bCfg.Name = name
	c.entries = append(c.entries, chainEntry[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(bCfg),
	})
}

// Len returns the number of entries in the chain.
func (c *Chain[T]) Len() int { return len(c.entries) }

// Names returns the entry names in preference order.
func (c *Chain[T]) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name
	}
	return names
}

// Run executes fn against the chain and returns the result together with the
// name of the entry that served it. Context cancellation stops the walk
// immediately instead of burning through the remaining entries.
//
// Run is a package-level function because Go does not support method-level
// type parameters.
func Run[T any, R any](ctx context.Context, c *Chain[T], fn func(context.Context, T) (R, error)) (R, string, error) {
	var (
		zero    R
		lastErr error
	)
	if len(c.entries) == 0 {
		return zero, "", fmt.Errorf("%w: empty chain", ErrChainExhausted)
	}
	for i := range c.entries {
		entry := &c.entries[i]
		for attempt := 0; attempt <= c.cfg.RetriesPerEntry; attempt++ {
			if err := ctx.Err(); err != nil {
				return zero, "", err
			}
			var result R
			err := entry.breaker.Do(func() error {
				var innerErr error
				result, innerErr = fn(ctx, entry.value)
				return innerErr
			})
			if err == nil {
				return result, entry.name, nil
			}
			lastErr = err
			if errors.Is(err, ErrBreakerOpen) {
				slog.Debug("skipping chain entry (breaker open)", "entry", entry.name)
				break
			}
			// A deadline inside fn (per-attempt timeout) is an ordinary
			// failure; only the caller's context stops the walk.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, "", ctxErr
			}
			if attempt < c.cfg.RetriesPerEntry {
				slog.Debug("chain entry failed, retrying",
					"entry", entry.name, "attempt", attempt+1, "error", err)
			} else {
				slog.Warn("chain entry exhausted, advancing",
					"entry", entry.name, "error", err)
			}
		}
	}
	return zero, "", fmt.Errorf("%w: %v", ErrChainExhausted, lastErr)
}
