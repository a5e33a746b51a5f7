package session

import (
	"context"
	"errors"
	"slices"
	"time"

	"gbv_reporter/i18n"
)

// StepStart is the step every new session begins at.
const StepStart = "start"

var ErrNotFound = errors.New("session not found")

// ErrCorrupt is returned by Get when the stored record cannot be decoded.
// The record is left in place; callers decide whether to discard it.
var ErrCorrupt = errors.New("stored session is unreadable")

// Session is the persisted state of one user's dialogue.
type Session struct {
	UserID      string        `json:"userId"`
	CurrentStep string        `json:"currentStep"`
	Language    i18n.Language `json:"language,omitempty"`
	ReportData  ReportData    `json:"reportData"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ReportData accumulates the answers collected so far. Fields are only
// ever set or appended to while a dialogue is in progress.
type ReportData struct {
	IsAnonymous   *bool  `json:"isAnonymous,omitempty"`
	ReporterName  string `json:"reporterName,omitempty"`
	ReporterPhone string `json:"reporterPhone,omitempty"`

	IncidentDate      string `json:"incidentDate,omitempty"`
	IncidentTime      string `json:"incidentTime,omitempty"`
	LocationText      string `json:"locationText,omitempty"`
	ExactLocationType string `json:"exactLocationType,omitempty"`
	ViolenceType      string `json:"violenceType,omitempty"`

	PerpetratorKnown        *bool  `json:"perpetratorKnown,omitempty"`
	PerpetratorRelationship string `json:"perpetratorRelationship,omitempty"`
	PerpetratorCount        string `json:"perpetratorCount,omitempty"`
	Description             string `json:"description,omitempty"`

	MediaAttached bool     `json:"mediaAttached,omitempty"`
	MediaIDs      []string `json:"mediaIds,omitempty"`

	ServicesRequested      []string `json:"servicesRequested,omitempty"`
	IsDirectServiceRequest bool     `json:"isDirectServiceRequest,omitempty"`

	ConsentGiven *bool  `json:"consentGiven,omitempty"`
	ReferenceID  string `json:"referenceId,omitempty"`
}

// Store persists sessions keyed by user id.
//
// Update overwrites the whole record. Updating a session that does not
// exist (for example one deleted earlier in the same turn) is a no-op.
// Delete is idempotent.
type Store interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Create(ctx context.Context, userID string) (*Session, error)
	Update(ctx context.Context, userID string, s *Session) error
	Delete(ctx context.Context, userID string) error
}

// New returns a session at StepStart with no language and no data.
func New(userID string, now time.Time) *Session {
	return &Session{
		UserID:      userID,
		CurrentStep: StepStart,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.ReportData = s.ReportData.Clone()
	return &out
}

// Clone returns a copy that shares no slices with d.
func (d ReportData) Clone() ReportData {
	out := d
	out.IsAnonymous = cloneBool(d.IsAnonymous)
	out.PerpetratorKnown = cloneBool(d.PerpetratorKnown)
	out.ConsentGiven = cloneBool(d.ConsentGiven)
	out.MediaIDs = slices.Clone(d.MediaIDs)
	out.ServicesRequested = slices.Clone(d.ServicesRequested)
	return out
}

// Bool returns a pointer to v, for the optional flags of ReportData.
func Bool(v bool) *bool {
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
