package services

import (
	"context"
	"testing"
	"time"

	domain "github.com/lojafacil/api/internal/domain"
)

type stubHealthRepository struct {
	report domain.SystemHealthReport
	err    error
}

func (r *stubHealthRepository) Collect(ctx context.Context) (domain.SystemHealthReport, error) {
	if r.err != nil {
		return domain.SystemHealthReport{}, r.err
	}
	return r.report, nil
}

func TestSystemHealthFillsGeneratedAt(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: &stubHealthRepository{report: domain.SystemHealthReport{
			Status: domain.HealthStatusOK,
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK},
			},
		}},
		Clock: func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	report, err := svc.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Fatalf("expected GeneratedAt %v, got %v", now, report.GeneratedAt)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("unexpected status %q", report.Status)
	}
}

func TestSystemHealthRequiresRepository(t *testing.T) {
	if _, err := NewSystemService(SystemServiceDeps{}); err == nil {
		t.Fatal("expected constructor error without health repository")
	}
}
