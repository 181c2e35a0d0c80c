// Webtesttool is a passive web security scanner with admission control.
//
// It fetches web targets, evaluates passive security checks (missing
// hardening headers, insecure cookies, version disclosure), stores the
// findings, and serves them over a small JSON API. Scan submission is
// rate limited per client, with optional load-adaptive limits.
//
// Usage:
//
//	# Start the API server with default configuration
//	webtesttool run
//
//	# Start with a custom configuration file
//	webtesttool run --config /path/to/config.yaml
//
//	# Scan a single target from the command line
//	webtesttool scan https://example.com
//
//	# Validate a configuration file
//	webtesttool validate --config config.yaml
//
//	# Show version information
//	webtesttool version
package main

func main() {
	Execute()
}
