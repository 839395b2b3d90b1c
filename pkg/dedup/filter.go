package dedup

import (
	"sync"
	"time"
)

// Status is a reported state that can tell whether another report is the
// same one.
type Status[S any] interface {
	Same(other S) bool
}

type entry[S any] struct {
	status    S
	expiresAt time.Time
}

// Filter suppresses repeated status reports per device. A report is a
// duplicate while an identical status for the same device is still inside
// its window; every duplicate extends that window.
type Filter[K comparable, S Status[S]] struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	entries map[K][]entry[S]
}

type FilterOption[K comparable, S Status[S]] func(*Filter[K, S])

// WithNow replaces the time source.
func WithNow[K comparable, S Status[S]](now func() time.Time) FilterOption[K, S] {
	return func(f *Filter[K, S]) {
		if now != nil {
			f.now = now
		}
	}
}

func NewFilter[K comparable, S Status[S]](window time.Duration, opts ...FilterOption[K, S]) *Filter[K, S] {
	if window <= 0 {
		window = time.Second
	}
	f := &Filter[K, S]{window: window, now: time.Now, entries: make(map[K][]entry[S])}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Allow reports whether status should reach listeners.
func (f *Filter[K, S]) Allow(key K, status S) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	f.scrub(now)

	list := f.entries[key]
	for i := range list {
		if list[i].status.Same(status) {
			list[i].expiresAt = now.Add(f.window)
			return false
		}
	}
	f.entries[key] = append(list, entry[S]{status: status, expiresAt: now.Add(f.window)})
	return true
}

// Wrap returns a callback that only forwards non-duplicate reports.
func (f *Filter[K, S]) Wrap(listener func(K, S)) func(K, S) {
	return func(key K, status S) {
		if f.Allow(key, status) && listener != nil {
			listener(key, status)
		}
	}
}

// scrub drops expired entries for every device. Caller holds f.mu.
func (f *Filter[K, S]) scrub(now time.Time) {
	for key, list := range f.entries {
		kept := list[:0]
		for _, e := range list {
			if e.expiresAt.After(now) {
				kept = append(kept, e)
			}
		}
		for i := len(kept); i < len(list); i++ {
			list[i] = entry[S]{}
		}
		if len(kept) == 0 {
			delete(f.entries, key)
			continue
		}
		f.entries[key] = kept
	}
}

// Live returns the number of entries still inside their window.
func (f *Filter[K, S]) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrub(f.now())
	n := 0
	for _, list := range f.entries {
		n += len(list)
	}
	return n
}

// Reset forgets every entry.
func (f *Filter[K, S]) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[K][]entry[S])
}
