// Package escalation decides which agencies must be told about a report
// and records that they were.
package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gbv_reporter/jobs"
	"gbv_reporter/logging"
	"gbv_reporter/report"
)

// Agencies reports are routed to.
const (
	AgencyFCTA     = "FCTA Women's Affairs Secretariat"
	AgencyNAPTIP   = "NAPTIP"
	AgencyNSCDC    = "NSCDC"
	AgencyShelters = "Partner Shelters"
)

// MethodDashboard marks escalations delivered through the back-office
// dashboard rather than an outbound channel.
const MethodDashboard = "Dashboard"

// Route lists the agencies inc must be escalated to, without duplicates.
// The FCTA secretariat is always first.
func Route(inc report.Incident) []string {
	agencies := []string{AgencyFCTA}
	add := func(a string) {
		for _, have := range agencies {
			if have == a {
				return
			}
		}
		agencies = append(agencies, a)
	}

	if inc.ViolenceType == "Trafficking" {
		add(AgencyNAPTIP)
	}
	if inc.ViolenceType == "Physical_Assault" || inc.RequestsService("Police_Security") {
		add(AgencyNSCDC)
	}
	if inc.RequestsService("Shelter_Safe_Home") {
		add(AgencyShelters)
	}
	return agencies
}

// Store is the part of the report store escalation needs.
type Store interface {
	FindByReference(ctx context.Context, ref string) (*report.Incident, error)
	LogEscalation(ctx context.Context, ref string, e report.Escalation) error
	UpdateStatus(ctx context.Context, ref string, status report.Status) error
}

// Service escalates stored reports.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService escalates the reports kept in store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Escalate logs one escalation per routed agency and marks the report
// Escalated. Reports already escalated are skipped.
func (s *Service) Escalate(ctx context.Context, ref string) error {
	inc, err := s.store.FindByReference(ctx, ref)
	if err != nil {
		return fmt.Errorf("escalate %s: %w", ref, err)
	}
	log := logging.FromContext(ctx).With("reference_id", ref)
	if inc.Status == report.StatusEscalated {
		log.Info("report already escalated")
		return nil
	}

	agencies := Route(*inc)
	for _, agency := range agencies {
		entry := report.Escalation{
			Agency:     agency,
			Method:     MethodDashboard,
			Status:     "Pending",
			NotifiedAt: s.now(),
		}
		if err := s.store.LogEscalation(ctx, ref, entry); err != nil {
			return fmt.Errorf("log escalation of %s to %s: %w", ref, agency, err)
		}
	}
	if err := s.store.UpdateStatus(ctx, ref, report.StatusEscalated); err != nil {
		return fmt.Errorf("mark %s escalated: %w", ref, err)
	}

	log.Info("report escalated", "agencies", agencies)
	return nil
}

type taskData struct {
	ReferenceID string `json:"referenceId"`
}

// HandleTask is the jobs.HandlerFunc for escalate_report tasks.
func (s *Service) HandleTask(ctx context.Context, data json.RawMessage) error {
	var td taskData
	if err := json.Unmarshal(data, &td); err != nil {
		return fmt.Errorf("decode escalation task: %w", err)
	}
	if td.ReferenceID == "" {
		return errors.New("escalation task has no reference id")
	}
	return s.Escalate(ctx, td.ReferenceID)
}

// Publisher is satisfied by *jobs.Publisher.
type Publisher interface {
	Publish(ctx context.Context, task jobs.Task) error
}

// QueueNotifier queues an escalate_report task for every submitted report.
type QueueNotifier struct {
	Publisher Publisher
}

// ReportSubmitted queues the escalation and returns without waiting for it.
func (n QueueNotifier) ReportSubmitted(ctx context.Context, inc report.Incident) error {
	return n.Publisher.Publish(ctx, jobs.Task{
		Type: jobs.TaskEscalateReport,
		Data: taskData{ReferenceID: inc.ReferenceID},
	})
}

// InlineNotifier escalates in the calling goroutine. It is used when no
// queue is configured.
type InlineNotifier struct {
	Service *Service
}

// ReportSubmitted escalates inc before returning.
func (n InlineNotifier) ReportSubmitted(ctx context.Context, inc report.Incident) error {
	return n.Service.Escalate(ctx, inc.ReferenceID)
}
