// Package ratelimit implements the admission-control core for webtesttool.
//
// # Overview
//
// The package provides interchangeable rate limiting algorithms that decide,
// per logical client identity, whether a unit of work may proceed:
//
//   - Token Bucket: a single shared capacity pool with continuous refill
//   - Fixed Window: per-key counters bound to coarse time buckets
//   - Sliding Window: per-key timestamp logs over a rolling horizon
//   - Adaptive: a sliding window whose capacity follows an external load signal
//
// A Registry holds named limiter instances, each bound at construction to one
// algorithm and one configuration, and routes Check(name, key) calls to the
// bound algorithm.
//
// # Fail-Open Policy
//
// Check against an unregistered limiter name logs a warning and admits the
// request. This is deliberate: a misconfigured or missing limiter degrades to
// "allow everything" rather than blocking traffic, prioritizing availability
// over strict enforcement. Do not mistake this for a bug.
//
//	registry := ratelimit.NewRegistry()
//	err := registry.AddLimiter("scan-submit", ratelimit.Config{
//	    MaxRequests:   100,
//	    WindowSeconds: 60,
//	    Strategy:      ratelimit.StrategySlidingWindow,
//	})
//	if registry.Check("scan-submit", clientIP) {
//	    // Request allowed
//	}
//
// # Time
//
// All algorithms consult an injected Clock rather than reading time.Now
// directly, so tests can drive time deterministically with ManualClock.
// A clock that moves backward is tolerated: negative elapsed intervals are
// treated as zero and never produce negative token counts.
//
// # Thread Safety
//
// Every algorithm and the Registry are safe for concurrent use. Admission
// checks are short, bounded critical sections; no operation blocks on I/O or
// sleeps. Check-then-increment is atomic per key, so two concurrent requests
// for the same key never both claim the last remaining slot.
//
// # Memory
//
// Per-key state is created lazily on first observation of a key. Keyed
// algorithms drop state for keys with no activity for several window lengths
// during inline sweeps, bounding memory under unbounded key cardinality.
// The sweep is an internal policy and never changes caller-visible decisions.
package ratelimit
