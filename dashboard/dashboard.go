// Package dashboard serves the operator status and report endpoints.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strings"
	"time"

	"gbv_reporter/logging"
	"gbv_reporter/report"
	"gbv_reporter/storage"
)

// StatsSource is satisfied by *storage.ReportStore.
type StatsSource interface {
	Stats(ctx context.Context) (storage.ReportStats, error)
}

// ReportFinder is satisfied by *storage.ReportStore.
type ReportFinder interface {
	FindByReference(ctx context.Context, ref string) (*report.Incident, error)
}

// StatusUpdater is satisfied by *storage.ReportStore.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, ref string, status report.Status) error
}

// Status is the body of GET /dashboard.
type Status struct {
	Uptime     string               `json:"uptime"`
	Goroutines int                  `json:"goroutines"`
	Status     string               `json:"status"`
	Reports    *storage.ReportStats `json:"reports,omitempty"`
	Error      string               `json:"error,omitempty"`
}

var startedAt = time.Now()

// Handler reports process health and report counts. A failing stats
// query turns the status into "degraded" with 503.
func Handler(stats StatsSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := Status{
			Uptime:     time.Since(startedAt).Round(time.Second).String(),
			Goroutines: runtime.NumGoroutine(),
			Status:     "ok",
		}
		code := http.StatusOK

		if stats != nil {
			s, err := stats.Stats(r.Context())
			if err != nil {
				logging.FromContext(r.Context()).Error("failed to load report stats", "error", err)
				status.Status = "degraded"
				status.Error = "report statistics unavailable"
				code = http.StatusServiceUnavailable
			} else {
				status.Reports = &s
			}
		}
		writeJSON(w, code, status)
	})
}

// ReportHandler serves GET /api/reports/{ref}.
func ReportHandler(finder ReportFinder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimSpace(r.PathValue("ref"))
		if ref == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing reference id"})
			return
		}

		inc, err := finder.FindByReference(r.Context(), ref)
		switch {
		case errors.Is(err, report.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found"})
		case err != nil:
			logging.FromContext(r.Context()).Error("failed to load report", "reference_id", ref, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		default:
			writeJSON(w, http.StatusOK, inc)
		}
	})
}

type statusRequest struct {
	Status report.Status `json:"status"`
}

// StatusHandler serves PUT /api/reports/{ref}/status, where operators
// record case progress (InProgress, Closed, Aborted).
func StatusHandler(updater StatusUpdater) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimSpace(r.PathValue("ref"))
		var req statusRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil || ref == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expected {\"status\": ...}"})
			return
		}

		err := updater.UpdateStatus(r.Context(), ref, req.Status)
		switch {
		case errors.Is(err, report.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
		case errors.Is(err, report.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found"})
		case err != nil:
			logging.FromContext(r.Context()).Error("failed to update report status", "reference_id", ref, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		default:
			logging.FromContext(r.Context()).Info("report status changed", "reference_id", ref, "status", req.Status)
			writeJSON(w, http.StatusOK, map[string]string{"referenceId": ref, "status": string(req.Status)})
		}
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
