package handlers

import (
	"net/http"
	"time"

	domain "github.com/freightdesk/api/internal/domain"
	"github.com/freightdesk/api/internal/platform/httpx"
	"github.com/freightdesk/api/internal/services"
)

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	system services.SystemService
	now    func() time.Time
}

// NewHealthHandlers constructs the probe handler set. The system service is
// optional; without it /readyz reports ready unconditionally.
func NewHealthHandlers(system services.SystemService) *HealthHandlers {
	return &HealthHandlers{
		system: system,
		now:    time.Now,
	}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, "ok", map[string]any{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

type dependencyPayload struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	Detail    string `json:"detail,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
	CheckedAt string `json:"checked_at,omitempty"`
}

type readinessPayload struct {
	Ready        bool                `json:"ready"`
	Dependencies []dependencyPayload `json:"dependencies,omitempty"`
	GeneratedAt  string              `json:"generated_at,omitempty"`
}

// Readyz probes downstream dependencies and reports readiness.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.system == nil {
		httpx.WriteJSON(w, http.StatusOK, "ready", readinessPayload{Ready: true})
		return
	}

	report, err := h.system.HealthReport(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("not_ready", "readiness check failed", http.StatusServiceUnavailable))
		return
	}

	payload := readinessPayload{
		Ready:        report.Healthy,
		Dependencies: buildDependencyPayloads(report.Dependencies),
		GeneratedAt:  formatTime(report.GeneratedAt),
	}
	if !report.Healthy {
		httpx.WriteError(ctx, w, httpx.NewError("not_ready", "one or more dependencies are unhealthy", http.StatusServiceUnavailable).
			WithDetails(map[string]any{"dependencies": payload.Dependencies}))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "ready", payload)
}

func buildDependencyPayloads(deps []domain.DependencyStatus) []dependencyPayload {
	if len(deps) == 0 {
		return nil
	}
	out := make([]dependencyPayload, 0, len(deps))
	for _, dep := range deps {
		out = append(out, dependencyPayload{
			Name:      dep.Name,
			Healthy:   dep.Healthy,
			Detail:    dep.Detail,
			LatencyMs: dep.LatencyMs,
			CheckedAt: formatTime(dep.CheckedAt),
		})
	}
	return out
}
