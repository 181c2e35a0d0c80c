// Package server provides the HTTP API for submitting scans and reading
// results.
//
// # Overview
//
// The server exposes a small JSON API:
//
//   - POST /api/v1/scans submits a scan for a target URL
//   - GET /api/v1/scans lists recent scans
//   - GET /api/v1/scans/{id} returns one scan with its findings
//   - GET /healthz and GET /readyz report liveness and readiness
//   - GET /metrics serves Prometheus metrics
//
// Scan submission is gated by the admission registry: each request is
// checked against a named limiter keyed by client IP, and denied requests
// receive 429 Too Many Requests. When the named limiter is not registered
// the request is admitted.
//
// # Middleware
//
// Handlers are wrapped, innermost first, by admission control, request ID
// assignment, request logging, and panic recovery.
package server
