// Package timing provides the clocks that operations are measured against.
package timing

import (
	"sync"
	"time"
)

// TimeTeller can tell the current time.
type TimeTeller interface {
	CurrentTime() time.Time
}

// A Clock is a TimeTeller that can also let time pass.
type Clock interface {
	TimeTeller

	// Spend lets the given amount of time pass on the clock.
	Spend(d time.Duration)
}

// NewWallClock returns a Clock backed by the system's monotonic clock.
func NewWallClock() Clock {
	return wallClock{}
}

type wallClock struct{}

func (wallClock) CurrentTime() time.Time {
	return time.Now()
}

func (wallClock) Spend(d time.Duration) {
	time.Sleep(d)
}

// ManualClock is a Clock that only moves when it is told to. Spending time on
// a ManualClock returns immediately.
type ManualClock struct {
	lock sync.Mutex
	now  time.Time
}

// NewManualClock creates a ManualClock that starts at the Unix epoch.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(0, 0)}
}

// CurrentTime returns the time that the clock has been advanced to.
func (c *ManualClock) CurrentTime() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.now
}

// Advance moves the clock forward.
func (c *ManualClock) Advance(d time.Duration) {
	if d < 0 {
		panic("cannot move a clock backwards")
	}

	c.lock.Lock()
	c.now = c.now.Add(d)
	c.lock.Unlock()
}

// Spend is the same as Advance.
func (c *ManualClock) Spend(d time.Duration) {
	c.Advance(d)
}
