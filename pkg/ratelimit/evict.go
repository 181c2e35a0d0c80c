package ratelimit

import "time"

// evictionIdleWindows is how many window lengths a key may sit idle before
// its state is dropped. Sweeps run at the same cadence, so a key survives at
// most roughly twice this many windows past its last activity.
const evictionIdleWindows = 3

// keyEvictor bounds the memory of keyed algorithms by dropping state for
// keys with no recent activity. Both keyed algorithms accumulate one entry
// per distinct identity forever without it.
//
// The evictor runs inline inside the owning algorithm's critical section:
// no background goroutine, so behavior stays deterministic under ManualClock.
// Sweeps are infrequent (once per idle period) and iterate a map whose size
// the sweep itself keeps bounded, so the added latency is negligible.
type keyEvictor struct {
	idleAfter time.Duration
	lastSeen  map[string]time.Time
	lastSweep time.Time
}

func newKeyEvictor(window time.Duration, now time.Time) *keyEvictor {
	return &keyEvictor{
		idleAfter: evictionIdleWindows * window,
		lastSeen:  make(map[string]time.Time),
		lastSweep: now,
	}
}

// touch records activity for key. Caller must hold the owning algorithm's lock.
func (e *keyEvictor) touch(key string, now time.Time) {
	e.lastSeen[key] = now
}

// maybeSweep drops idle keys if an idle period has passed since the last
// sweep, invoking drop for each evicted key so the owning algorithm can
// discard its state. Caller must hold the owning algorithm's lock.
func (e *keyEvictor) maybeSweep(now time.Time, drop func(key string)) {
	if now.Sub(e.lastSweep) < e.idleAfter {
		return
	}
	e.lastSweep = now

	for key, seen := range e.lastSeen {
		if now.Sub(seen) >= e.idleAfter {
			delete(e.lastSeen, key)
			drop(key)
		}
	}
}
