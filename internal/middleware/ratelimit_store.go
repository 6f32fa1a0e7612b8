package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/mkarran/accessgate/internal/cache"
)

// RateStore counts requests per key inside a fixed window.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

const memorySweepInterval = time.Minute

type rateWindow struct {
	count int
	until time.Time
}

// memoryRateStore keeps counters in the process. Stale windows are swept
// opportunistically during Increment, so the store needs no background
// goroutine and is safe to abandon.
type memoryRateStore struct {
	mu        sync.Mutex
	windows   map[string]rateWindow
	lastSweep time.Time
	clock     func() time.Time
}

// NewMemoryRateStore builds a process-local RateStore. Counters are not
// shared between instances; use NewStoreRateStore for that.
func NewMemoryRateStore() RateStore {
	return &memoryRateStore{
		windows: make(map[string]rateWindow),
		clock:   time.Now,
	}
}

func (s *memoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now)

	w, ok := s.windows[key]
	if !ok || now.After(w.until) {
		w = rateWindow{until: now.Add(window)}
	}
	w.count++
	s.windows[key] = w

	return w.count, w.until.Sub(now), nil
}

// sweep drops expired windows at most once per interval. Caller holds mu.
func (s *memoryRateStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < memorySweepInterval {
		return
	}
	s.lastSweep = now
	for key, w := range s.windows {
		if now.After(w.until) {
			delete(s.windows, key)
		}
	}
}

// storeRateStore counts through the shared cache store, so limits hold
// across instances when the cache is Redis or database backed.
type storeRateStore struct {
	store cache.Store
}

// NewStoreRateStore adapts a shared cache store into a RateStore. A nil
// store yields nil, which disables limiting at the middleware.
func NewStoreRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return &storeRateStore{store: store}
}

func (s *storeRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, "ratelimit:"+key, window)
	return int(count), ttl, err
}
