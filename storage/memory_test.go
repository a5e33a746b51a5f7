package storage

import (
	"context"
	"errors"
	"testing"

	"gbv_reporter/report"
)

func TestMemoryReports(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryReports()

	inc := report.Incident{ReferenceID: "GBV-1-AAAAAAAA", ServicesRequested: []string{"Medical"}}
	ref, err := m.SaveReport(ctx, inc)
	if err != nil || ref != inc.ReferenceID {
		t.Fatalf("SaveReport() = %q, %v", ref, err)
	}
	if _, err := m.SaveReport(ctx, inc); err == nil {
		t.Error("duplicate reference id accepted")
	}
	if _, err := m.SaveReport(ctx, report.Incident{}); err == nil {
		t.Error("report without reference id accepted")
	}
	if _, err := m.SaveReport(ctx, report.Incident{ReferenceID: "GBV-2-BBBBBBBB", ViolenceType: "Trafficking"}); err != nil {
		t.Fatal(err)
	}

	got, err := m.FindByReference(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != report.StatusSubmitted || got.ID == "" {
		t.Errorf("stored = %+v", got)
	}
	got.ServicesRequested[0] = "changed"
	again, _ := m.FindByReference(ctx, ref)
	if again.ServicesRequested[0] != "Medical" {
		t.Error("FindByReference returned shared slice")
	}

	if err := m.SetFollowUp(ctx, ref, true); err != nil {
		t.Fatal(err)
	}
	if err := m.UpdateStatus(ctx, ref, report.StatusEscalated); err != nil {
		t.Fatal(err)
	}
	if err := m.LogEscalation(ctx, ref, report.Escalation{Agency: "NSCDC"}); err != nil {
		t.Fatal(err)
	}
	got, _ = m.FindByReference(ctx, ref)
	if got.FollowUp == nil || !*got.FollowUp || got.Status != report.StatusEscalated {
		t.Errorf("updated = %+v", got)
	}
	if esc := m.Escalations(ref); len(esc) != 1 || esc[0].Agency != "NSCDC" {
		t.Errorf("escalations = %+v", esc)
	}

	for name, err := range map[string]error{
		"find":     func() error { _, err := m.FindByReference(ctx, "nope"); return err }(),
		"followup": m.SetFollowUp(ctx, "nope", false),
		"status":   m.UpdateStatus(ctx, "nope", report.StatusClosed),
		"escalate": m.LogEscalation(ctx, "nope", report.Escalation{}),
	} {
		if !errors.Is(err, report.ErrNotFound) {
			t.Errorf("%s on missing report: %v", name, err)
		}
	}

	stats, _ := m.Stats(ctx)
	if stats.Total != 2 || stats.ByStatus["Escalated"] != 1 || stats.ByViolenceType["Not specified"] != 1 || stats.ByViolenceType["Trafficking"] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
