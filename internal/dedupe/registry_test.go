// ABOUTME: Tests for the idempotency key registry.
// ABOUTME: Covers first-claim-wins, TTL expiry, size-bound eviction, sweeping and concurrency.

package dedupe

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestRegistry_ClaimOnce(t *testing.T) {
	r := New(time.Hour, 100)
	defer r.Close()

	assert.True(t, r.Claim("k"))
	assert.False(t, r.Claim("k"))
	assert.False(t, r.Claim("k"))
	assert.True(t, r.Seen("k"))
	assert.False(t, r.Seen("other"))
}

func TestRegistry_ExpiredKeyCanBeClaimedAgain(t *testing.T) {
	clock := newClock()
	r := New(time.Minute, 100, WithClock(clock.Now))
	defer r.Close()

	assert.True(t, r.Claim("reauth:prompt-1"))

	clock.Advance(59 * time.Second)
	assert.False(t, r.Claim("reauth:prompt-1"), "live key must not be reclaimed")

	clock.Advance(time.Second)
	assert.False(t, r.Seen("reauth:prompt-1"))
	assert.True(t, r.Claim("reauth:prompt-1"))
}

func TestRegistry_ReclaimDoesNotExtendLifetime(t *testing.T) {
	clock := newClock()
	r := New(time.Minute, 100, WithClock(clock.Now))
	defer r.Close()

	r.Claim("k")
	clock.Advance(30 * time.Second)
	r.Claim("k")
	clock.Advance(30 * time.Second)

	assert.False(t, r.Seen("k"), "lifetime is measured from the first claim")
}

func TestRegistry_ZeroTTLNeverExpires(t *testing.T) {
	clock := newClock()
	r := New(0, 100, WithClock(clock.Now))
	defer r.Close()

	r.Claim("k")
	clock.Advance(365 * 24 * time.Hour)
	assert.True(t, r.Seen("k"))
}

func TestRegistry_EvictsOldestAtCapacity(t *testing.T) {
	r := New(time.Hour, 3)
	defer r.Close()

	r.Claim("first")
	r.Claim("second")
	r.Claim("third")
	r.Claim("fourth")

	assert.False(t, r.Seen("first"), "oldest key should be evicted")
	assert.True(t, r.Seen("second"))
	assert.True(t, r.Seen("third"))
	assert.True(t, r.Seen("fourth"))
	assert.Equal(t, 3, r.Len())

	r.Claim("fifth")
	assert.False(t, r.Seen("second"))
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_UnboundedWhenMaxSizeZero(t *testing.T) {
	r := New(0, 0)
	defer r.Close()

	for i := range 500 {
		r.Claim(string(rune('a'+i%26)) + time.Duration(i).String())
	}
	assert.Equal(t, 500, r.Len())
}

func TestRegistry_Forget(t *testing.T) {
	r := New(time.Hour, 10)
	defer r.Close()

	r.Claim("k")
	r.Forget("k")
	r.Forget("missing")

	assert.True(t, r.Claim("k"))
}

func TestRegistry_SweepRemovesExpired(t *testing.T) {
	clock := newClock()
	r := New(time.Minute, 100, WithClock(clock.Now))
	defer r.Close()

	r.Claim("old-1")
	r.Claim("old-2")
	clock.Advance(2 * time.Minute)
	r.Claim("fresh")

	r.sweepExpired()

	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Seen("fresh"))
}

func TestRegistry_ConcurrentClaimHasOneWinner(t *testing.T) {
	r := New(time.Hour, 100)
	defer r.Close()

	const workers = 100
	var winners atomic.Int32
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			if r.Claim("contested") {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestRegistry_CloseIsIdempotent(t *testing.T) {
	r := New(time.Millisecond, 10)
	r.Close()
	r.Close()
}
