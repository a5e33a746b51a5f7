package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gbv_reporter/report"
	"gbv_reporter/storage"
)

type fakeStats struct {
	stats storage.ReportStats
	err   error
}

func (f fakeStats) Stats(context.Context) (storage.ReportStats, error) { return f.stats, f.err }

type fakeFinder map[string]*report.Incident

func (f fakeFinder) FindByReference(_ context.Context, ref string) (*report.Incident, error) {
	if ref == "GBV-broken" {
		return nil, errors.New("connection reset")
	}
	inc, ok := f[ref]
	if !ok {
		return nil, report.ErrNotFound
	}
	return inc, nil
}

func TestHandlerOK(t *testing.T) {
	src := fakeStats{stats: storage.ReportStats{
		Total:          3,
		ByStatus:       map[string]int{"Submitted": 2, "Escalated": 1},
		ByViolenceType: map[string]int{"Physical_Assault": 3},
	}}
	rec := httptest.NewRecorder()
	Handler(src).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got Status
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "ok" || got.Reports == nil || got.Reports.Total != 3 || got.Reports.ByStatus["Escalated"] != 1 {
		t.Errorf("body = %+v", got)
	}
	if got.Goroutines < 1 {
		t.Errorf("goroutines = %d", got.Goroutines)
	}
}

func TestHandlerDegraded(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(fakeStats{err: errors.New("db down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var got Status
	_ = json.NewDecoder(rec.Body).Decode(&got)
	if got.Status != "degraded" || got.Reports != nil {
		t.Errorf("body = %+v", got)
	}
}

func TestReportHandler(t *testing.T) {
	finder := fakeFinder{"GBV-1-ABCDEF12": {ReferenceID: "GBV-1-ABCDEF12", Status: report.StatusEscalated}}
	mux := http.NewServeMux()
	mux.Handle("GET /api/reports/{ref}", ReportHandler(finder))

	tests := []struct {
		path string
		want int
	}{
		{"/api/reports/GBV-1-ABCDEF12", http.StatusOK},
		{"/api/reports/GBV-404", http.StatusNotFound},
		{"/api/reports/GBV-broken", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/GBV-1-ABCDEF12", nil))
	var inc report.Incident
	if err := json.NewDecoder(rec.Body).Decode(&inc); err != nil {
		t.Fatal(err)
	}
	if inc.Status != report.StatusEscalated {
		t.Errorf("status = %q", inc.Status)
	}
}

func TestStatusHandler(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryReports()
	ref, err := store.SaveReport(ctx, report.Incident{ReferenceID: "GBV-1-ABCDEF12", Status: report.StatusEscalated})
	if err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	mux.Handle("PUT /api/reports/{ref}/status", StatusHandler(store))

	tests := []struct {
		name, ref, body string
		want            int
	}{
		{"in progress", ref, `{"status":"InProgress"}`, http.StatusOK},
		{"unknown status", ref, `{"status":"Lost"}`, http.StatusBadRequest},
		{"bad body", ref, `status=Closed`, http.StatusBadRequest},
		{"missing report", "GBV-404", `{"status":"Closed"}`, http.StatusNotFound},
		{"aborted", ref, `{"status":"Aborted"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/api/reports/"+tt.ref+"/status", strings.NewReader(tt.body))
			mux.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("PUT %s = %d, want %d (%s)", tt.body, rec.Code, tt.want, rec.Body)
			}
		})
	}

	inc, err := store.FindByReference(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if inc.Status != report.StatusAborted {
		t.Errorf("status = %q, want Aborted", inc.Status)
	}
}
