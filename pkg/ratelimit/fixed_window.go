package ratelimit

import (
	"sync"
	"time"
)

// FixedWindow implements per-key fixed window rate limiting.
//
// Time is divided into windows of fixed length, aligned to the epoch by
// floor division. Each key keeps a counter per window index; a request is
// admitted while the current window's count is below the limit.
//
// # Algorithm
//
//  1. windowIndex = floor(now / window)
//  2. Prune the key's counters to indices >= windowIndex-1
//  3. If count at windowIndex >= limit: deny without mutation
//  4. Otherwise: increment and admit
//
// Retaining the previous index alongside the current one bounds memory to
// two counters per key; idle keys themselves are dropped by the evictor.
//
// # Boundary Imprecision
//
// A burst of limit requests just before a window boundary followed by limit
// more just after it are all admitted: up to 2x the limit in a short span.
// This is the classic fixed window tradeoff, accepted rather than corrected
// here. SlidingWindow exists to correct it.
type FixedWindow struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	counters map[string]map[int64]int
	evictor  *keyEvictor
	clock    Clock
}

// NewFixedWindow creates a fixed window limiter admitting limit requests per
// key per window. A nil clock falls back to the system clock.
func NewFixedWindow(limit int, window time.Duration, clock Clock) *FixedWindow {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &FixedWindow{
		limit:    limit,
		window:   window,
		counters: make(map[string]map[int64]int),
		evictor:  newKeyEvictor(window, clock.Now()),
		clock:    clock,
	}
}

// Allow reports whether a request for key is admitted in the current window,
// incrementing the window's counter when it is.
func (fw *FixedWindow) Allow(key string) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	now := fw.clock.Now()
	idx := now.UnixNano() / int64(fw.window)

	fw.evictor.touch(key, now)
	fw.evictor.maybeSweep(now, func(k string) { delete(fw.counters, k) })

	wins := fw.counters[key]
	if wins == nil {
		wins = make(map[int64]int, 2)
		fw.counters[key] = wins
	}

	// Keep only the current and immediately preceding window.
	for i := range wins {
		if i < idx-1 {
			delete(wins, i)
		}
	}

	if wins[idx] >= fw.limit {
		return false
	}
	wins[idx]++
	return true
}

// Count returns the number of admissions recorded for key in the current
// window. Read-only introspection; zero for unseen keys.
func (fw *FixedWindow) Count(key string) int {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	idx := fw.clock.Now().UnixNano() / int64(fw.window)
	return fw.counters[key][idx]
}
