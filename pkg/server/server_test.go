package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agobrik/webtesttool/pkg/config"
	"github.com/agobrik/webtesttool/pkg/ratelimit"
	"github.com/agobrik/webtesttool/pkg/scanner"
	"github.com/agobrik/webtesttool/pkg/storage"
	"github.com/agobrik/webtesttool/pkg/telemetry/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testServer wires a server around an in-memory backend and a target that
// responds with no hardening headers.
func testServer(t *testing.T, limiterCfg *ratelimit.Config) (*Server, *httptest.Server, storage.Backend) {
	t.Helper()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(target.Close)

	registry := ratelimit.NewRegistry(ratelimit.WithLogger(discardLogger()))
	if limiterCfg != nil {
		if err := registry.AddLimiter(ScanLimiterName, *limiterCfg); err != nil {
			t.Fatal(err)
		}
	}

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	backend := storage.NewMemoryBackend()
	sc := scanner.NewScanner(scanner.Config{}, scanner.DefaultChecks(), backend, nil, discardLogger())

	srv := NewServer(config.ServerConfig{
		ListenAddress:   "127.0.0.1:0",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: time.Second,
	}, registry, sc, backend, m, promReg, discardLogger())

	return srv, target, backend
}

func submitScan(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"target": target})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", bytes.NewReader(body))
	req.RemoteAddr = "192.0.2.10:4242"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestServer_SubmitScan(t *testing.T) {
	srv, target, backend := testServer(t, nil)
	handler := srv.Handler()

	w := submitScan(t, handler, target.URL)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var scan storage.ScanResult
	if err := json.Unmarshal(w.Body.Bytes(), &scan); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if scan.Status != storage.StatusCompleted {
		t.Errorf("status = %q", scan.Status)
	}
	if len(scan.Findings) == 0 {
		t.Error("expected findings for unhardened target")
	}

	if _, err := backend.GetScan(t.Context(), scan.ID); err != nil {
		t.Errorf("scan not persisted: %v", err)
	}

	// The API and the webhook share one wire shape: snake_case keys.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode raw response: %v", err)
	}
	for _, key := range []string{"id", "target", "status", "started_at", "finished_at", "findings"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("response missing key %q", key)
		}
	}
	if _, ok := raw["StartedAt"]; ok {
		t.Error("response leaked Go-cased field names")
	}
}

func TestServer_SubmitValidation(t *testing.T) {
	srv, _, _ := testServer(t, nil)
	handler := srv.Handler()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"missing target", `{}`},
		{"relative url", `{"target": "example.com/path"}`},
		{"bad scheme", `{"target": "ftp://example.com"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", strings.NewReader(tt.body))
			req.RemoteAddr = "192.0.2.10:4242"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestServer_AdmissionDenies(t *testing.T) {
	srv, target, _ := testServer(t, &ratelimit.Config{
		MaxRequests:   2,
		WindowSeconds: 60,
		Strategy:      ratelimit.StrategySlidingWindow,
	})
	handler := srv.Handler()

	for i := 0; i < 2; i++ {
		if w := submitScan(t, handler, target.URL); w.Code != http.StatusCreated {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}

	w := submitScan(t, handler, target.URL)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestServer_AdmissionKeyedByClientIP(t *testing.T) {
	srv, target, _ := testServer(t, &ratelimit.Config{
		MaxRequests:   1,
		WindowSeconds: 60,
		Strategy:      ratelimit.StrategySlidingWindow,
	})
	handler := srv.Handler()

	body, _ := json.Marshal(map[string]string{"target": target.URL})
	for i, addr := range []string{"192.0.2.1:1000", "192.0.2.2:1000"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", bytes.NewReader(body))
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Errorf("client %d status = %d, want 201", i, w.Code)
		}
	}
}

func TestServer_UnregisteredLimiterAdmits(t *testing.T) {
	srv, target, _ := testServer(t, nil)
	handler := srv.Handler()

	for i := 0; i < 5; i++ {
		if w := submitScan(t, handler, target.URL); w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want open admission", w.Code)
		}
	}
}

func TestServer_GetAndListScans(t *testing.T) {
	srv, target, _ := testServer(t, nil)
	handler := srv.Handler()

	w := submitScan(t, handler, target.URL)
	var created storage.ScanResult
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scans/"+created.ID, nil)
	got := httptest.NewRecorder()
	handler.ServeHTTP(got, req)
	if got.Code != http.StatusOK {
		t.Fatalf("get status = %d", got.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/scans/missing", nil)
	got = httptest.NewRecorder()
	handler.ServeHTTP(got, req)
	if got.Code != http.StatusNotFound {
		t.Errorf("missing scan status = %d, want 404", got.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/scans", nil)
	got = httptest.NewRecorder()
	handler.ServeHTTP(got, req)
	if got.Code != http.StatusOK {
		t.Fatalf("list status = %d", got.Code)
	}
	var scans []storage.ScanResult
	if err := json.Unmarshal(got.Body.Bytes(), &scans); err != nil {
		t.Fatal(err)
	}
	if len(scans) != 1 {
		t.Errorf("scans = %d, want 1", len(scans))
	}
}

func TestServer_HealthAndMetricsEndpoints(t *testing.T) {
	srv, _, _ := testServer(t, nil)
	handler := srv.Handler()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, w.Code)
		}
	}
}

func TestServer_RequestIDAssigned(t *testing.T) {
	srv, _, _ := testServer(t, nil)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated request ID")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "caller-supplied" {
		t.Errorf("request ID = %q, want caller-supplied preserved", got)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr", "192.0.2.7:5511", "", "192.0.2.7"},
		{"forwarded single", "10.0.0.1:80", "203.0.113.9", "203.0.113.9"},
		{"forwarded chain", "10.0.0.1:80", "203.0.113.9, 10.0.0.2", "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServer_RecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(fmt.Errorf("boom"))
	})
	handler := RecoveryMiddleware(discardLogger())(panicking)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
