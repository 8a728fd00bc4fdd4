package clock

import (
	"sync"
	"time"
)

type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to the start of the given YYYY-MM-DD day.
func (c *FakeClock) Set(day string) error {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
	return nil
}
