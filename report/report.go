// Package report holds the incident record produced when a dialogue is submitted.
package report

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"gbv_reporter/i18n"
	"gbv_reporter/session"
)

// Status is the lifecycle state of a stored report.
type Status string

const (
	StatusSubmitted  Status = "Submitted"
	StatusEscalated  Status = "Escalated"
	StatusInProgress Status = "InProgress"
	StatusClosed     Status = "Closed"
	StatusAborted    Status = "Aborted"
)

// Valid reports whether s is one of the lifecycle states above.
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusEscalated, StatusInProgress, StatusClosed, StatusAborted:
		return true
	}
	return false
}

var (
	ErrNotFound      = errors.New("report not found")
	ErrInvalidStatus = errors.New("invalid report status")
)

// Incident is the snapshot of a session's answers handed to the report sink.
type Incident struct {
	ID           string        `json:"id"`
	ReferenceID  string        `json:"referenceId"`
	SourceUserID string        `json:"sourceUserId"`
	Language     i18n.Language `json:"language"`

	IsAnonymous   bool   `json:"isAnonymous"`
	ReporterName  string `json:"reporterName,omitempty"`
	ReporterPhone string `json:"reporterPhone,omitempty"`

	IncidentDate      string `json:"incidentDate,omitempty"`
	IncidentTime      string `json:"incidentTime,omitempty"`
	Location          string `json:"location,omitempty"`
	ExactLocationType string `json:"exactLocationType,omitempty"`
	ViolenceType      string `json:"violenceType,omitempty"`

	PerpetratorKnown        *bool  `json:"perpetratorKnown,omitempty"`
	PerpetratorRelationship string `json:"perpetratorRelationship,omitempty"`
	PerpetratorCount        string `json:"perpetratorCount,omitempty"`
	Description             string `json:"description,omitempty"`

	MediaAttached bool     `json:"mediaAttached"`
	MediaIDs      []string `json:"mediaIds,omitempty"`

	ServicesRequested      []string `json:"servicesRequested,omitempty"`
	IsDirectServiceRequest bool     `json:"isDirectServiceRequest"`
	ConsentGiven           bool     `json:"consentGiven"`

	Status    Status    `json:"status"`
	FollowUp  *bool     `json:"followUp,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromSession builds a new Submitted incident from the data collected in s.
// A reporter who never answered the anonymity question is treated as anonymous.
func FromSession(s *session.Session, now time.Time) Incident {
	d := s.ReportData
	inc := Incident{
		ID:                      uuid.NewString(),
		ReferenceID:             d.ReferenceID,
		SourceUserID:            s.UserID,
		Language:                s.Language.OrDefault(),
		IsAnonymous:             d.IsAnonymous == nil || *d.IsAnonymous,
		ReporterName:            d.ReporterName,
		ReporterPhone:           d.ReporterPhone,
		IncidentDate:            d.IncidentDate,
		IncidentTime:            d.IncidentTime,
		Location:                d.LocationText,
		ExactLocationType:       d.ExactLocationType,
		ViolenceType:            d.ViolenceType,
		PerpetratorRelationship: d.PerpetratorRelationship,
		PerpetratorCount:        d.PerpetratorCount,
		Description:             d.Description,
		MediaAttached:           d.MediaAttached,
		MediaIDs:                slices.Clone(d.MediaIDs),
		ServicesRequested:       slices.Clone(d.ServicesRequested),
		IsDirectServiceRequest:  d.IsDirectServiceRequest,
		ConsentGiven:            d.ConsentGiven != nil && *d.ConsentGiven,
		Status:                  StatusSubmitted,
		CreatedAt:               now,
	}
	if d.PerpetratorKnown != nil {
		known := *d.PerpetratorKnown
		inc.PerpetratorKnown = &known
	}
	return inc
}

// Clone returns a deep copy of i.
func (i Incident) Clone() Incident {
	c := i
	c.MediaIDs = slices.Clone(i.MediaIDs)
	c.ServicesRequested = slices.Clone(i.ServicesRequested)
	if i.PerpetratorKnown != nil {
		v := *i.PerpetratorKnown
		c.PerpetratorKnown = &v
	}
	if i.FollowUp != nil {
		v := *i.FollowUp
		c.FollowUp = &v
	}
	return c
}

// RequestsService reports whether id is among the requested services.
func (i Incident) RequestsService(id string) bool {
	return slices.Contains(i.ServicesRequested, id)
}

// Escalation records that an agency was told about a report.
type Escalation struct {
	Agency     string    `json:"agency"`
	Method     string    `json:"method"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	NotifiedAt time.Time `json:"notifiedAt"`
}
