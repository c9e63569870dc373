// ABOUTME: Thread-safe TTL and size bounded registry of idempotency keys.
// ABOUTME: The first Claim of a key wins until the key expires or is evicted.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// registration tracks when a key was first claimed and its position in the
// eviction order.
type registration struct {
	claimedAt time.Time
	element   *list.Element
}

// Registry records claimed keys. Oldest registrations sit at the front of
// order so eviction is O(1).
type Registry struct {
	mu      sync.Mutex
	keys    map[string]*registration
	order   *list.List
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates a registry. When ttl is positive a background goroutine sweeps
// expired keys once per sweep interval; call Close to stop it.
func New(ttl time.Duration, maxSize int, opts ...Option) *Registry {
	r := &Registry{
		keys:    make(map[string]*registration),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if ttl > 0 {
		go r.sweep(sweepInterval(ttl))
	}
	return r
}

// Claim registers key and reports whether this call was the first
// registration. Claiming a live key does not extend its lifetime.
func (r *Registry) Claim(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if reg, ok := r.keys[key]; ok {
		if !r.expired(reg, now) {
			return false
		}
		r.removeLocked(key, reg)
	}

	if r.maxSize > 0 && len(r.keys) >= r.maxSize {
		r.evictOldestLocked()
	}

	r.keys[key] = &registration{
		claimedAt: now,
		element:   r.order.PushBack(key),
	}
	return true
}

// Seen reports whether key is currently registered.
func (r *Registry) Seen(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.keys[key]
	return ok && !r.expired(reg, r.now())
}

// Forget drops key so that it can be claimed again. Used when the guarded
// operation failed before producing any effect.
func (r *Registry) Forget(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reg, ok := r.keys[key]; ok {
		r.removeLocked(key, reg)
	}
}

// Len returns the number of registrations, including any expired ones the
// sweeper has not reached yet.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

func (r *Registry) expired(reg *registration, now time.Time) bool {
	return r.ttl > 0 && now.Sub(reg.claimedAt) >= r.ttl
}

// removeLocked must be called with mu held.
func (r *Registry) removeLocked(key string, reg *registration) {
	r.order.Remove(reg.element)
	delete(r.keys, key)
}

// evictOldestLocked must be called with mu held.
func (r *Registry) evictOldestLocked() {
	front := r.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	r.order.Remove(front)
	delete(r.keys, key)
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return ttl
	}
	return time.Minute
}

func (r *Registry) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweepExpired()
		case <-r.done:
			return
		}
	}
}

// sweepExpired walks from the oldest registration and stops at the first
// live one, since registrations are ordered by claim time.
func (r *Registry) sweepExpired() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for e := r.order.Front(); e != nil; {
		key, _ := e.Value.(string)
		reg := r.keys[key]
		if reg == nil || !r.expired(reg, now) {
			return
		}
		next := e.Next()
		r.removeLocked(key, reg)
		e = next
	}
}

// Close stops the background sweeper. It is safe to call multiple times.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed {
		close(r.done)
		r.closed = true
	}
}
