package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gbv_reporter/i18n"
	"gbv_reporter/report"
)

//go:embed schema.sql
var schema string

// ErrReportNotFound is returned when no report has the reference id.
var ErrReportNotFound = report.ErrNotFound

const reportColumns = `id, reference_id, source_user_id, language, is_anonymous,
	reporter_name, reporter_phone, incident_date, incident_time, location,
	exact_location_type, violence_type, perpetrator_known, perpetrator_relationship,
	perpetrator_count, description, media_attached, media_ids, services_requested,
	is_direct_service_request, consent_given, status, follow_up, created_at`

// ReportStore keeps submitted incident reports and their escalation log
// in PostgreSQL.
type ReportStore struct {
	db *sql.DB
}

// NewReportStore wraps db. Call Migrate before first use.
func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

// Migrate creates the tables if they do not exist.
func (s *ReportStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// SaveReport inserts inc and returns its reference id.
func (s *ReportStore) SaveReport(ctx context.Context, inc report.Incident) (string, error) {
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	if inc.ReferenceID == "" {
		return "", errors.New("report has no reference id")
	}
	if inc.Status == "" {
		inc.Status = report.StatusSubmitted
	}

	var ref string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO incident_reports (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24)
		RETURNING reference_id`,
		inc.ID, inc.ReferenceID, inc.SourceUserID, string(inc.Language), inc.IsAnonymous,
		inc.ReporterName, inc.ReporterPhone, inc.IncidentDate, inc.IncidentTime, inc.Location,
		inc.ExactLocationType, inc.ViolenceType, nullBool(inc.PerpetratorKnown), inc.PerpetratorRelationship,
		inc.PerpetratorCount, inc.Description, inc.MediaAttached, pq.Array(nonNil(inc.MediaIDs)),
		pq.Array(nonNil(inc.ServicesRequested)), inc.IsDirectServiceRequest, inc.ConsentGiven,
		string(inc.Status), nullBool(inc.FollowUp), inc.CreatedAt,
	).Scan(&ref)
	if err != nil {
		return "", fmt.Errorf("insert report %s: %w", inc.ReferenceID, err)
	}
	return ref, nil
}

// FindByReference loads the report with the given reference id.
func (s *ReportStore) FindByReference(ctx context.Context, ref string) (*report.Incident, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM incident_reports WHERE reference_id = $1`, ref)

	var (
		inc      report.Incident
		lang     string
		status   string
		known    sql.NullBool
		followUp sql.NullBool
		mediaIDs []string
		services []string
	)
	err := row.Scan(
		&inc.ID, &inc.ReferenceID, &inc.SourceUserID, &lang, &inc.IsAnonymous,
		&inc.ReporterName, &inc.ReporterPhone, &inc.IncidentDate, &inc.IncidentTime, &inc.Location,
		&inc.ExactLocationType, &inc.ViolenceType, &known, &inc.PerpetratorRelationship,
		&inc.PerpetratorCount, &inc.Description, &inc.MediaAttached, pq.Array(&mediaIDs),
		pq.Array(&services), &inc.IsDirectServiceRequest, &inc.ConsentGiven,
		&status, &followUp, &inc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query report %s: %w", ref, err)
	}

	inc.Language = i18n.Language(lang)
	inc.Status = report.Status(status)
	inc.PerpetratorKnown = boolPtr(known)
	inc.FollowUp = boolPtr(followUp)
	inc.MediaIDs = mediaIDs
	inc.ServicesRequested = services
	return &inc, nil
}

// SetFollowUp records whether the reporter wants periodic updates.
func (s *ReportStore) SetFollowUp(ctx context.Context, ref string, want bool) error {
	return s.updateOne(ctx, ref,
		`UPDATE incident_reports SET follow_up = $1, updated_at = now() WHERE reference_id = $2`,
		want, ref)
}

// UpdateStatus moves the report to status.
func (s *ReportStore) UpdateStatus(ctx context.Context, ref string, status report.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", report.ErrInvalidStatus, status)
	}
	return s.updateOne(ctx, ref,
		`UPDATE incident_reports SET status = $1, updated_at = now() WHERE reference_id = $2`,
		string(status), ref)
}

// LogEscalation appends an entry to the report's escalation log.
func (s *ReportStore) LogEscalation(ctx context.Context, ref string, e report.Escalation) error {
	return s.updateOne(ctx, ref, `
		INSERT INTO escalation_logs (report_id, agency, method, status, notes, notified_at)
		SELECT id, $2, $3, $4, $5, $6 FROM incident_reports WHERE reference_id = $1`,
		ref, e.Agency, e.Method, e.Status, e.Notes, e.NotifiedAt)
}

func (s *ReportStore) updateOne(ctx context.Context, ref, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update report %s: %w", ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update report %s: %w", ref, err)
	}
	if n == 0 {
		return ErrReportNotFound
	}
	return nil
}

// ReportStats summarises stored reports for the dashboard.
type ReportStats struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"byStatus"`
	ByViolenceType map[string]int `json:"byViolenceType"`
}

// Stats counts reports by status and by violence type. Direct service
// requests without a violence type are counted as "Not specified".
func (s *ReportStore) Stats(ctx context.Context) (ReportStats, error) {
	stats := ReportStats{ByStatus: map[string]int{}, ByViolenceType: map[string]int{}}

	if err := s.countBy(ctx, "status", stats.ByStatus); err != nil {
		return stats, err
	}
	if err := s.countBy(ctx, "violence_type", stats.ByViolenceType); err != nil {
		return stats, err
	}
	if n, ok := stats.ByViolenceType[""]; ok {
		delete(stats.ByViolenceType, "")
		stats.ByViolenceType["Not specified"] += n
	}
	for _, n := range stats.ByStatus {
		stats.Total += n
	}
	return stats, nil
}

func (s *ReportStore) countBy(ctx context.Context, column string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM incident_reports GROUP BY `+column)
	if err != nil {
		return fmt.Errorf("count reports by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		into[key] = n
	}
	return rows.Err()
}

func nullBool(p *bool) sql.NullBool {
	if p == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *p, Valid: true}
}

func boolPtr(n sql.NullBool) *bool {
	if !n.Valid {
		return nil
	}
	v := n.Bool
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
