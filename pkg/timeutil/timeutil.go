package timeutil

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock func() time.Time

var (
	mu    sync.RWMutex
	clock Clock = time.Now
)

// Now returns the process clock reading in UTC.
func Now() time.Time {
	mu.RLock()
	c := clock
	mu.RUnlock()
	return c().UTC()
}

// NowMillis returns Now as unix milliseconds.
func NowMillis() int64 {
	return Now().UnixMilli()
}

// SetClock overrides the process clock and returns a func restoring the previous one.
func SetClock(c Clock) func() {
	mu.Lock()
	prev := clock
	clock = c
	mu.Unlock()
	return func() {
		mu.Lock()
		clock = prev
		mu.Unlock()
	}
}

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
