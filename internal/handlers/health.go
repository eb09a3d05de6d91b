package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/otcheredev/clinic-core/internal/httpx"
	"github.com/otcheredev/clinic-core/pkg/logger"
)

const pingTimeout = 2 * time.Second

// Pinger is a dependency the health endpoints check. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	db     Pinger
	checks map[string]Pinger
}

// NewHealthHandler checks db for readiness. extra dependencies only affect /health.
func NewHealthHandler(db Pinger, extra map[string]Pinger) *HealthHandler {
	checks := map[string]Pinger{"database": db}
	for name, p := range extra {
		checks[name] = p
	}
	return &HealthHandler{db: db, checks: checks}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Services:  make(map[string]string, len(h.checks)),
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ping(r.Context(), h.checks[name]); err != nil {
			logger.Ctx(r.Context()).Warn().Err(err).Str("service", name).Msg("health check failed")
			response.Services[name] = "unhealthy"
			response.Status = "degraded"
			continue
		}
		response.Services[name] = "healthy"
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := ping(r.Context(), h.db); err != nil {
		http.Error(w, "Service not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func ping(ctx context.Context, p Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.PingContext(ctx)
}
