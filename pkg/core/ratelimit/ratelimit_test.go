package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestNewDisabled(t *testing.T) {
	l := New(0, 10)
	for i := 0; i < 1000; i++ {
		assert.True(t, l.Allow("client"))
	}
}

func TestKeyedLimiterBurstAndRefill(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newKeyed(1, 2, clock.now)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "burst exhausted")

	// Keys are independent.
	assert.True(t, l.Allow("b"))

	clock.advance(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestKeyedLimiterSweepsIdleKeys(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newKeyed(5, 5, clock.now)

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	clock.advance(idleTTL + time.Second)
	l.Allow("c")
	assert.Equal(t, 1, l.Len())
}

func TestKeyedLimiterConcurrentUse(t *testing.T) {
	l := New(1000, 1000)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Allow("shared")
			}
		}()
	}
	wg.Wait()
}
