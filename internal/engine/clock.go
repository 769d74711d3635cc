package engine

import (
	"sync"
	"time"
)

// Clock is the time source behind point decay. Every schedules fn at a fixed
// interval until the returned stop func is called; stop never blocks on fn.
type Clock interface {
	Now() time.Time
	Every(interval time.Duration, fn func()) (stop func())
}

// RealClock runs timers on time.Ticker
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// ManualClock only moves when Advance is called. Timers fire synchronously on
// the goroutine calling Advance, in due order.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	interval time.Duration
	next     time.Time
	fn       func()
	stopped  bool
}

// NewManualClock creates a clock frozen at start
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Every(interval time.Duration, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &manualTimer{interval: interval, next: c.now.Add(interval), fn: fn}
	c.timers = append(c.timers, t)
	return func() {
		c.mu.Lock()
		t.stopped = true
		c.mu.Unlock()
	}
}

// Advance moves the clock forward by d, firing every timer that falls due
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)

	for {
		var due *manualTimer
		for _, t := range c.timers {
			if t.stopped || t.next.After(target) {
				continue
			}
			if due == nil || t.next.Before(due.next) {
				due = t
			}
		}
		if due == nil {
			break
		}

		c.now = due.next
		due.next = due.next.Add(due.interval)
		fn := due.fn

		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}

	c.now = target
	active := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped {
			active = append(active, t)
		}
	}
	c.timers = active
	c.mu.Unlock()
}

// ActiveTimers reports how many timers are still scheduled
func (c *ManualClock) ActiveTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}
