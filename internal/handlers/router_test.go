package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/freightdesk/api/internal/domain"
)

func TestRouterHealthz(t *testing.T) {
	router := NewRouter()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var envelope map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if success, ok := envelope["success"].(bool); !ok || !success {
		t.Fatalf("expected success envelope, got %s", resp.Body.String())
	}
}

func TestRouterReadyz_UnhealthyDependency(t *testing.T) {
	system := &stubSystemService{
		report: domain.SystemHealthReport{
			Healthy: false,
			Dependencies: []domain.DependencyStatus{
				{Name: "firestore", Healthy: false, Detail: "deadline exceeded"},
			},
		},
	}
	router := NewRouter(WithHealthHandlers(NewHealthHandlers(system)))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", resp.Code)
	}
}

func TestRouterNotFoundEnvelope(t *testing.T) {
	router := NewRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}

	var envelope map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("expected JSON error envelope: %v", err)
	}
	if success, ok := envelope["success"].(bool); !ok || success {
		t.Fatalf("expected success:false, got %v", envelope["success"])
	}
	if envelope["error"] != "route_not_found" {
		t.Fatalf("unexpected error code %v", envelope["error"])
	}
}

func TestRouterUnconfiguredGroupReturnsNotImplemented(t *testing.T) {
	router := NewRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotations", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotImplemented {
		t.Fatalf("expected status 501, got %d", resp.Code)
	}
}

func TestRouterProtectedMiddlewareSkipsAuthGroup(t *testing.T) {
	var protectedHits int
	guard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protectedHits++
			next.ServeHTTP(w, r)
		})
	}

	ok := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}

	router := NewRouter(
		WithAuthRoutes(func(r chi.Router) { r.Post("/login", ok) }),
		WithCustomerRoutes(func(r chi.Router) { r.Get("/", ok) }),
		WithProtectedMiddlewares(guard),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	if protectedHits != 0 {
		t.Fatalf("expected auth group to bypass protected middleware")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/customers/", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	if protectedHits != 1 {
		t.Fatalf("expected protected middleware to run once, got %d", protectedHits)
	}
}

type stubSystemService struct {
	report domain.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(ctx context.Context) (domain.SystemHealthReport, error) {
	if s.err != nil {
		return domain.SystemHealthReport{}, s.err
	}
	return s.report, nil
}
