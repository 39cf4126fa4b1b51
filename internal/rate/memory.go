package rate

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// DefaultMaxKeys bounds the number of live windows a MemoryStore tracks.
const DefaultMaxKeys = 100_000

// MemoryConfig configures a MemoryStore.
type MemoryConfig struct {
	MaxKeys int
	Now     func() time.Time
}

type window struct {
	key     string
	count   int
	resetAt time.Time
	index   int
}

// expiryQueue is a min-heap of windows ordered by resetAt.
type expiryQueue []*window

func (q expiryQueue) Len() int           { return len(q) }
func (q expiryQueue) Less(i, j int) bool { return q[i].resetAt.Before(q[j].resetAt) }

func (q expiryQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *expiryQueue) Push(x any) {
	w := x.(*window)
	w.index = len(*q)
	*q = append(*q, w)
}

func (q *expiryQueue) Pop() any {
	old := *q
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return w
}

// MemoryStore keeps fixed windows in a mutex-guarded map. Closed windows are
// evicted in expiry order on every hit, so a full store refuses a new key in
// O(log n) without scanning the map.
type MemoryStore struct {
	mu       sync.Mutex
	windows  map[string]*window
	expiries expiryQueue
	maxKeys  int
	now      func() time.Time
}

// NewMemoryStore returns an empty store. Zero fields take defaults.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = DefaultMaxKeys
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &MemoryStore{
		windows: make(map[string]*window),
		maxKeys: cfg.MaxKeys,
		now:     cfg.Now,
	}
}

// Hit implements Store.
func (s *MemoryStore) Hit(_ context.Context, key string, span time.Duration, maxAttempts int) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpired(now)

	w, ok := s.windows[key]
	if !ok {
		if len(s.windows) >= s.maxKeys {
			oldest := s.expiries[0].resetAt
			return Decision{
				Allowed:    false,
				RetryAfter: oldest.Sub(now),
				ResetAt:    oldest,
				Saturated:  true,
			}, nil
		}
		w = &window{key: key, resetAt: now.Add(span)}
		s.windows[key] = w
		heap.Push(&s.expiries, w)
	}

	if w.count >= maxAttempts {
		return Decision{
			Allowed:    false,
			Count:      w.count,
			RetryAfter: w.resetAt.Sub(now),
			ResetAt:    w.resetAt,
		}, nil
	}

	w.count++
	return Decision{
		Allowed:    true,
		Count:      w.count,
		RetryAfter: w.resetAt.Sub(now),
		ResetAt:    w.resetAt,
	}, nil
}

// Len returns the number of live windows.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired(s.now())
	return len(s.windows)
}

// evictExpired pops every window whose resetAt is not after now.
func (s *MemoryStore) evictExpired(now time.Time) {
	for len(s.expiries) > 0 && !now.Before(s.expiries[0].resetAt) {
		w := heap.Pop(&s.expiries).(*window)
		delete(s.windows, w.key)
	}
}
