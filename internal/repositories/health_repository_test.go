package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/lojafacil/api/internal/domain"
)

func TestDependencyHealthRepositoryAllHealthy(t *testing.T) {
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: "firestore", Check: func(context.Context) error { return nil }},
		{Name: "functions", Check: func(context.Context) error { return nil }},
	})
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected ok status, got %s", report.Status)
	}
	if len(report.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(report.Checks))
	}
}

func TestDependencyHealthRepositoryDegraded(t *testing.T) {
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: "firestore", Check: func(context.Context) error { return nil }},
		{Name: "functions", Check: func(context.Context) error { return errors.New("upstream 503") }},
	})
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("expected degraded status, got %s", report.Status)
	}
	if report.Checks["functions"].Error != "upstream 503" {
		t.Fatalf("expected check error to surface, got %q", report.Checks["functions"].Error)
	}
}

func TestDependencyHealthRepositoryTimeout(t *testing.T) {
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{
			Name:    "slow",
			Timeout: 10 * time.Millisecond,
			Check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	})
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusError {
		t.Fatalf("expected error status, got %s", report.Status)
	}
	if report.Checks["slow"].Detail != "timeout" {
		t.Fatalf("expected timeout detail, got %q", report.Checks["slow"].Detail)
	}
}

func TestDependencyHealthRepositoryRequiresChecks(t *testing.T) {
	if _, err := NewDependencyHealthRepository(nil); err == nil {
		t.Fatalf("expected error for empty check set")
	}
}
