package repositories

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewProbeHealthRepositoryValidation(t *testing.T) {
	if _, err := NewProbeHealthRepository(nil); err == nil {
		t.Fatalf("expected error for empty probe set")
	}

	_, err := NewProbeHealthRepository([]DependencyProbe{{Name: " ", Check: func(context.Context) error { return nil }}})
	if err == nil {
		t.Fatalf("expected error for unnamed probe")
	}

	_, err = NewProbeHealthRepository([]DependencyProbe{{Name: "firestore"}})
	if err == nil {
		t.Fatalf("expected error for probe without check function")
	}
}

func TestProbeHealthRepositoryCollectAllHealthy(t *testing.T) {
	repo, err := NewProbeHealthRepository([]DependencyProbe{
		{Name: "storage", Check: func(context.Context) error { return nil }},
		{Name: "firestore", Check: func(context.Context) error { return nil }},
	})
	if err != nil {
		t.Fatalf("NewProbeHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !report.Healthy {
		t.Fatalf("expected healthy report, got %+v", report)
	}
	if len(report.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(report.Dependencies))
	}
	if report.Dependencies[0].Name != "firestore" || report.Dependencies[1].Name != "storage" {
		t.Fatalf("expected dependencies sorted by name, got %+v", report.Dependencies)
	}
	for _, dep := range report.Dependencies {
		if !dep.Healthy || dep.Detail != "ok" {
			t.Fatalf("unexpected dependency status: %+v", dep)
		}
	}
}

func TestProbeHealthRepositoryCollectFailure(t *testing.T) {
	repo, err := NewProbeHealthRepository([]DependencyProbe{
		{Name: "firestore", Check: func(context.Context) error { return nil }},
		{Name: "pubsub", Check: func(context.Context) error { return errors.New("broker unavailable") }},
	})
	if err != nil {
		t.Fatalf("NewProbeHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Healthy {
		t.Fatalf("expected unhealthy report")
	}

	var found bool
	for _, dep := range report.Dependencies {
		if dep.Name == "pubsub" {
			found = true
			if dep.Healthy {
				t.Fatalf("expected pubsub to be unhealthy")
			}
			if dep.Detail != "broker unavailable" {
				t.Fatalf("unexpected detail %q", dep.Detail)
			}
		}
	}
	if !found {
		t.Fatalf("pubsub dependency missing from report")
	}
}

func TestProbeHealthRepositoryCollectTimeout(t *testing.T) {
	repo, err := NewProbeHealthRepository([]DependencyProbe{
		{
			Name:    "smtp",
			Timeout: 10 * time.Millisecond,
			Check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	})
	if err != nil {
		t.Fatalf("NewProbeHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Healthy {
		t.Fatalf("expected unhealthy report after timeout")
	}
	if report.Dependencies[0].Detail != "timeout" {
		t.Fatalf("expected timeout detail, got %q", report.Dependencies[0].Detail)
	}
}
