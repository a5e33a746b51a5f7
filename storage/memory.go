package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"gbv_reporter/report"
)

// MemoryReports keeps reports in process. It backs the console chat
// and tests, and offers the same methods as ReportStore.
type MemoryReports struct {
	mu          sync.Mutex
	reports     map[string]report.Incident
	escalations map[string][]report.Escalation
}

// NewMemoryReports returns an empty store.
func NewMemoryReports() *MemoryReports {
	return &MemoryReports{
		reports:     make(map[string]report.Incident),
		escalations: make(map[string][]report.Escalation),
	}
}

// SaveReport stores a copy of inc under its reference id.
func (m *MemoryReports) SaveReport(_ context.Context, inc report.Incident) (string, error) {
	if inc.ReferenceID == "" {
		return "", errors.New("report has no reference id")
	}
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	if inc.Status == "" {
		inc.Status = report.StatusSubmitted
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[inc.ReferenceID]; ok {
		return "", errors.New("duplicate reference id " + inc.ReferenceID)
	}
	m.reports[inc.ReferenceID] = inc.Clone()
	return inc.ReferenceID, nil
}

// FindByReference returns a copy of the report.
func (m *MemoryReports) FindByReference(_ context.Context, ref string) (*report.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inc, ok := m.reports[ref]
	if !ok {
		return nil, ErrReportNotFound
	}
	c := inc.Clone()
	return &c, nil
}

// SetFollowUp records the follow-up preference.
func (m *MemoryReports) SetFollowUp(_ context.Context, ref string, want bool) error {
	return m.update(ref, func(inc *report.Incident) { inc.FollowUp = &want })
}

// UpdateStatus moves the report to status.
func (m *MemoryReports) UpdateStatus(_ context.Context, ref string, status report.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", report.ErrInvalidStatus, status)
	}
	return m.update(ref, func(inc *report.Incident) { inc.Status = status })
}

// LogEscalation appends e to the report's escalation log.
func (m *MemoryReports) LogEscalation(_ context.Context, ref string, e report.Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[ref]; !ok {
		return ErrReportNotFound
	}
	m.escalations[ref] = append(m.escalations[ref], e)
	return nil
}

// Escalations returns the escalations logged for ref.
func (m *MemoryReports) Escalations(ref string) []report.Escalation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]report.Escalation(nil), m.escalations[ref]...)
}

// Stats counts the stored reports.
func (m *MemoryReports) Stats(_ context.Context) (ReportStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := ReportStats{ByStatus: map[string]int{}, ByViolenceType: map[string]int{}}
	for _, inc := range m.reports {
		stats.Total++
		stats.ByStatus[string(inc.Status)]++
		vt := inc.ViolenceType
		if vt == "" {
			vt = "Not specified"
		}
		stats.ByViolenceType[vt]++
	}
	return stats, nil
}

func (m *MemoryReports) update(ref string, fn func(*report.Incident)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inc, ok := m.reports[ref]
	if !ok {
		return ErrReportNotFound
	}
	fn(&inc)
	m.reports[ref] = inc
	return nil
}
