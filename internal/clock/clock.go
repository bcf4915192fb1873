// Package clock implements the whole-second countdown shared by the pre-quiz
// countdown and the per-question timers.
package clock

import (
	"sync"
	"time"

	"quizcraze/internal/domain"
)

// Clock runs at most one countdown at a time.
//
// Callbacks run without the clock lock held, so they may call Start or Cancel.
// A zero event is delivered only if the countdown is still the current one
// after its final tick callback returns.
type Clock struct {
	source Source

	mu        sync.Mutex
	gen       uint64
	active    bool
	remaining int
	stop      func()
	onTick    func(remaining int)
	onZero    func()
}

func New(source Source) *Clock {
	if source == nil {
		source = RealSource{}
	}
	return &Clock{source: source}
}

// Start begins counting down from seconds, replacing any running countdown.
func (c *Clock) Start(seconds int, onTick func(remaining int), onZero func()) error {
	if seconds < 1 {
		return domain.ErrInvalidDuration
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	gen := c.gen
	c.active = true
	c.remaining = seconds
	c.onTick = onTick
	c.onZero = onZero
	c.stop = c.source.Every(time.Second, func() { c.tick(gen) })
	return nil
}

// Cancel stops the running countdown and suppresses its zero event. Safe to call repeatedly.
func (c *Clock) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

// Remaining reports the seconds left on the current countdown.
func (c *Clock) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Active reports whether a countdown is running.
func (c *Clock) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Clock) cancelLocked() {
	c.gen++
	c.active = false
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

func (c *Clock) tick(gen uint64) {
	c.mu.Lock()
	if !c.active || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.remaining--
	remaining := c.remaining
	onTick, onZero := c.onTick, c.onZero
	var stop func()
	if remaining <= 0 {
		c.active = false
		stop, c.stop = c.stop, nil
	}
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	if onTick != nil {
		onTick(remaining)
	}
	if remaining > 0 || onZero == nil {
		return
	}

	c.mu.Lock()
	current := gen == c.gen
	c.mu.Unlock()
	if current {
		onZero()
	}
}
