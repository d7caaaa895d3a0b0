package handler

import (
	"context"
	"net/http"
	"time"
)

// Checker verifies one dependency. Ping implementations of the storage
// and pub/sub clients satisfy it.
type Checker func(ctx context.Context) error

type HealthResponse struct {
	Status        string            `json:"status"`
	CachedPlayers int               `json:"cached_players"`
	Lifecycle     string            `json:"lifecycle,omitempty"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// HealthHandler reports process health and the state of optional dependencies.
type HealthHandler struct {
	cache     interface{ Len() int }
	lifecycle LifecycleService
	checks    map[string]Checker
	timeout   time.Duration
}

// NewHealthHandler creates a HealthHandler. lifecycle and checks may be nil.
func NewHealthHandler(cache interface{ Len() int }, lifecycle LifecycleService, checks map[string]Checker) *HealthHandler {
	return &HealthHandler{
		cache:     cache,
		lifecycle: lifecycle,
		checks:    checks,
		timeout:   2 * time.Second,
	}
}

// Health handles GET /health. Any failing check turns the response into 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		CachedPlayers: h.cache.Len(),
	}
	if h.lifecycle != nil {
		resp.Lifecycle = string(h.lifecycle.State())
	}

	status := http.StatusOK
	if len(h.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		resp.Checks = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	JSON(w, status, resp)
}
