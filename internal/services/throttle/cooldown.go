package throttle

import (
	"sync"
	"time"

	"github.com/minhtien379/Loto/internal/dependencies/clock"
)

// Cooldown rate-limits an action per key to once per period
type Cooldown[K comparable] struct {
	mu     sync.Mutex
	clock  clock.Clock
	period time.Duration
	last   map[K]time.Time
}

// NewCooldown creates a Cooldown
func NewCooldown[K comparable](clock clock.Clock, period time.Duration) *Cooldown[K] {
	return &Cooldown[K]{
		clock:  clock,
		period: period,
		last:   make(map[K]time.Time),
	}
}

// Allow reports whether key may act now and, if so, starts its cooldown
func (c *Cooldown[K]) Allow(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	if last, ok := c.last[key]; ok && now.Sub(last) < c.period {
		return false
	}
	c.last[key] = now
	return true
}

// Remaining returns how long key must still wait
func (c *Cooldown[K]) Remaining(key K) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.last[key]
	if !ok {
		return 0
	}
	if left := c.period - c.clock.Now().Sub(last); left > 0 {
		return left
	}
	return 0
}

// Forget clears the cooldown of one key
func (c *Cooldown[K]) Forget(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, key)
}

// Reset clears every cooldown
func (c *Cooldown[K]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.last)
}

// Period returns the configured period
func (c *Cooldown[K]) Period() time.Duration {
	return c.period
}
