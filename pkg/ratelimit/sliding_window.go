package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow implements per-key sliding window log rate limiting.
//
// Each key keeps an ordered log of admission timestamps. On every check the
// log is first trimmed to entries younger than the rolling horizon, then the
// remaining length is compared against the limit. This gives request-accurate
// throttling (no boundary bursts) at the cost of per-key storage proportional
// to the limit.
//
// # Thread Safety
//
// All operations run under one mutex per instance. The work under the lock
// is a trim and a comparison, so serializing all keys through it is
// acceptable; admission decisions for a single key are totally ordered by
// their critical sections.
type SlidingWindow struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	log     map[string][]time.Time
	evictor *keyEvictor
	clock   Clock
}

// NewSlidingWindow creates a sliding window limiter admitting limit requests
// per key over the rolling window. A nil clock falls back to the system clock.
func NewSlidingWindow(limit int, window time.Duration, clock Clock) *SlidingWindow {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &SlidingWindow{
		limit:   limit,
		window:  window,
		log:     make(map[string][]time.Time),
		evictor: newKeyEvictor(window, clock.Now()),
		clock:   clock,
	}
}

// Allow reports whether a request for key is admitted, appending the current
// time to the key's log when it is. Denials do not mutate the log beyond the
// trim.
func (sw *SlidingWindow) Allow(key string) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.clock.Now()
	cutoff := now.Add(-sw.window)

	sw.evictor.touch(key, now)
	sw.evictor.maybeSweep(now, func(k string) { delete(sw.log, k) })

	entries := sw.trimLocked(key, cutoff)
	if len(entries) >= sw.limit {
		return false
	}
	sw.log[key] = append(entries, now)
	return true
}

// Remaining returns how many admissions remain for key in the current
// window without mutating the log. It never goes negative and returns the
// full limit for a never-seen key.
func (sw *SlidingWindow) Remaining(key string) int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	cutoff := sw.clock.Now().Add(-sw.window)

	live := 0
	for _, ts := range sw.log[key] {
		if ts.After(cutoff) {
			live++
		}
	}

	remaining := sw.limit - live
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Limit returns the configured admission limit.
func (sw *SlidingWindow) Limit() int {
	return sw.limit
}

// trimLocked drops entries at or before cutoff from key's log in place and
// returns the surviving slice. Entries are ascending by construction, so
// everything from the first survivor onward is kept. Caller must hold mu.
func (sw *SlidingWindow) trimLocked(key string, cutoff time.Time) []time.Time {
	entries := sw.log[key]

	first := len(entries)
	for i, ts := range entries {
		if ts.After(cutoff) {
			first = i
			break
		}
	}
	if first == 0 {
		return entries
	}

	entries = append(entries[:0], entries[first:]...)
	if len(entries) == 0 {
		delete(sw.log, key)
		return nil
	}
	sw.log[key] = entries
	return entries
}
