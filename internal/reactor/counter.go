package reactor

import "sync"

// TimerCounter adapts a Ring's one-shot timeout into internal/clock's
// Counter interface (ticks are milliseconds; see clock.millisToTicks).
// A generation counter lets Stop invalidate an in-flight Arm whose
// timeout has already fired on the ring but not yet been delivered,
// since Ring has no cancel-by-handle primitive of its own.
type TimerCounter struct {
	ring Ring

	mu  sync.Mutex
	gen uint64
}

// NewTimerCounter builds a clock.Counter backed by ring.
func NewTimerCounter(ring Ring) *TimerCounter {
	return &TimerCounter{ring: ring}
}

// Arm implements clock.Counter.
func (c *TimerCounter) Arm(ticks int64, fire func()) {
	c.mu.Lock()
	c.gen++
	mine := c.gen
	c.mu.Unlock()

	c.ring.ArmTimeout(ticks*int64(1e6), func() {
		c.mu.Lock()
		stale := mine != c.gen
		c.mu.Unlock()
		if !stale {
			fire()
		}
	})
}

// Stop implements clock.Counter.
func (c *TimerCounter) Stop() {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
}
