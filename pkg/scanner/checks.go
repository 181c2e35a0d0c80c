package scanner

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/agobrik/webtesttool/pkg/storage"
)

// DefaultChecks returns the built-in passive checks.
func DefaultChecks() []Check {
	return []Check{
		&SecurityHeadersCheck{},
		&CookieFlagsCheck{},
		&ServerBannerCheck{},
	}
}

// SecurityHeadersCheck flags responses missing common hardening headers.
type SecurityHeadersCheck struct{}

func (c *SecurityHeadersCheck) Name() string { return "security-headers" }

// requiredHeaders maps header names to the severity of their absence.
var requiredHeaders = []struct {
	header   string
	severity storage.Severity
	detail   string
}{
	{"Content-Security-Policy", storage.SeverityMedium, "Without a CSP the browser will execute any injected script."},
	{"X-Content-Type-Options", storage.SeverityLow, "Responses may be MIME-sniffed into executable types."},
	{"X-Frame-Options", storage.SeverityLow, "Pages can be framed by other origins, enabling clickjacking."},
	{"Strict-Transport-Security", storage.SeverityMedium, "Clients may be downgraded to plain HTTP on later visits."},
}

func (c *SecurityHeadersCheck) Inspect(resp *http.Response) []storage.Finding {
	var findings []storage.Finding
	for _, req := range requiredHeaders {
		if resp.Header.Get(req.header) != "" {
			continue
		}
		findings = append(findings, storage.Finding{
			Severity: req.severity,
			Title:    fmt.Sprintf("Missing %s header", req.header),
			Detail:   req.detail,
		})
	}
	return findings
}

// CookieFlagsCheck flags Set-Cookie headers without Secure or HttpOnly.
type CookieFlagsCheck struct{}

func (c *CookieFlagsCheck) Name() string { return "cookie-flags" }

func (c *CookieFlagsCheck) Inspect(resp *http.Response) []storage.Finding {
	var findings []storage.Finding
	for _, cookie := range resp.Cookies() {
		if !cookie.Secure {
			findings = append(findings, storage.Finding{
				Severity: storage.SeverityMedium,
				Title:    fmt.Sprintf("Cookie %q set without Secure flag", cookie.Name),
				Detail:   "The cookie can be transmitted over unencrypted connections.",
			})
		}
		if !cookie.HttpOnly {
			findings = append(findings, storage.Finding{
				Severity: storage.SeverityLow,
				Title:    fmt.Sprintf("Cookie %q set without HttpOnly flag", cookie.Name),
				Detail:   "The cookie is readable from page scripts.",
			})
		}
	}
	return findings
}

// ServerBannerCheck flags responses that disclose server software versions.
type ServerBannerCheck struct{}

func (c *ServerBannerCheck) Name() string { return "server-banner" }

func (c *ServerBannerCheck) Inspect(resp *http.Response) []storage.Finding {
	var findings []storage.Finding
	for _, header := range []string{"Server", "X-Powered-By"} {
		value := resp.Header.Get(header)
		if value == "" {
			continue
		}
		// Bare product names are common; only version strings are flagged.
		if !strings.ContainsAny(value, "0123456789") {
			continue
		}
		findings = append(findings, storage.Finding{
			Severity: storage.SeverityInfo,
			Title:    fmt.Sprintf("%s header discloses version information", header),
			Detail:   fmt.Sprintf("Header value %q reveals software versions useful for targeted attacks.", value),
		})
	}
	return findings
}
