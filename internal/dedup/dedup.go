// Package dedup suppresses change events that repeat within a short window.
// Hosts are known to fire the same post-tool hook twice for one change.
package dedup

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultWindow is how long a fingerprint suppresses repeats.
	DefaultWindow = 1000 * time.Millisecond

	// pruneThreshold is the tracked-fingerprint count above which old
	// entries are evicted.
	pruneThreshold = 100

	// evictAfter is the age, in windows, past which an entry is evicted.
	evictAfter = 10
)

// Store keeps the last time each fingerprint was seen.
type Store interface {
	LastSeen(fp string) (time.Time, bool, error)
	// TouchIfStale sets fp's last-seen time to now unless it was seen less
	// than window before now, as one atomic step. It reports whether fp was
	// recorded.
	TouchIfStale(fp string, now time.Time, window time.Duration) (bool, error)
	Len() (int, error)
	// Evict removes entries last seen strictly before cutoff.
	Evict(cutoff time.Time) error
	Close() error
}

// Window decides whether a fingerprint is a duplicate.
type Window struct {
	store  Store
	window time.Duration
	now    func() time.Time
}

// Option configures a Window.
type Option func(*Window)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Window) { w.now = now }
}

// WithWindow overrides DefaultWindow.
func WithWindow(d time.Duration) Option {
	return func(w *Window) { w.window = d }
}

// NewWindow returns a Window over store. A nil store gets a fresh MemoryStore.
func NewWindow(store Store, opts ...Option) *Window {
	if store == nil {
		store = NewMemoryStore()
	}
	w := &Window{store: store, window: DefaultWindow, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Seen reports whether fp was already seen less than one window ago. When it
// was not, fp's last-seen time is set to now and stale entries may be pruned.
func (w *Window) Seen(fp string) (bool, error) {
	now := w.now()

	recorded, err := w.store.TouchIfStale(fp, now, w.window)
	if err != nil {
		return false, fmt.Errorf("dedup update: %w", err)
	}
	if !recorded {
		return true, nil
	}

	n, err := w.store.Len()
	if err != nil {
		return false, fmt.Errorf("dedup size: %w", err)
	}
	if n > pruneThreshold {
		if err := w.store.Evict(now.Add(-evictAfter * w.window)); err != nil {
			return false, fmt.Errorf("dedup prune: %w", err)
		}
	}
	return false, nil
}

// Since returns how long ago fp was last seen, for diagnostics.
func (w *Window) Since(fp string) (time.Duration, bool) {
	last, ok, err := w.store.LastSeen(fp)
	if err != nil || !ok {
		return 0, false
	}
	return w.now().Sub(last), true
}

// Close releases the underlying store.
func (w *Window) Close() error {
	return w.store.Close()
}

// MemoryStore is a process-local Store. It only sees the events of the
// process that owns it.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]time.Time)}
}

func (m *MemoryStore) LastSeen(fp string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.seen[fp]
	return t, ok, nil
}

func (m *MemoryStore) TouchIfStale(fp string, now time.Time, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.seen[fp]; ok && now.Sub(last) < window {
		return false, nil
	}
	m.seen[fp] = now
	return true, nil
}

func (m *MemoryStore) Len() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen), nil
}

func (m *MemoryStore) Evict(cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for fp, t := range m.seen {
		if t.Before(cutoff) {
			delete(m.seen, fp)
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
