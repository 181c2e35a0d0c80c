package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/agobrik/webtesttool/pkg/scanner"
	"github.com/agobrik/webtesttool/pkg/storage"
)

// defaultListLimit bounds GET /api/v1/scans responses.
const defaultListLimit = 50

// scanRequest is the POST /api/v1/scans body.
type scanRequest struct {
	Target string `json:"target"`
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// ScanHandler serves the scan API endpoints.
type ScanHandler struct {
	scanner *scanner.Scanner
	backend storage.Backend
	logger  *slog.Logger
}

// NewScanHandler creates the scan API handler.
func NewScanHandler(sc *scanner.Scanner, backend storage.Backend, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{scanner: sc, backend: backend, logger: logger}
}

// Submit handles POST /api/v1/scans. The scan runs synchronously and the
// completed result is returned.
func (h *ScanHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := validateTarget(req.Target); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	scan, err := h.scanner.Scan(r.Context(), req.Target)
	if err != nil {
		h.logger.Warn("scan failed",
			"target", req.Target,
			"request_id", RequestID(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "target fetch failed"})
		return
	}

	writeJSON(w, http.StatusCreated, scan)
}

// Get handles GET /api/v1/scans/{id}.
func (h *ScanHandler) Get(w http.ResponseWriter, r *http.Request) {
	scan, err := h.backend.GetScan(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrScanNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "scan not found"})
			return
		}
		h.logger.Error("failed to load scan", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage error"})
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

// List handles GET /api/v1/scans.
func (h *ScanHandler) List(w http.ResponseWriter, r *http.Request) {
	scans, err := h.backend.ListScans(r.Context(), defaultListLimit)
	if err != nil {
		h.logger.Error("failed to list scans", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage error"})
		return
	}
	writeJSON(w, http.StatusOK, scans)
}

// validateTarget accepts absolute http and https URLs only.
func validateTarget(target string) error {
	if target == "" {
		return errors.New("target is required")
	}
	u, err := url.Parse(target)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("target must be an absolute http or https URL")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
