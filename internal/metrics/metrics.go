// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	authzDecisionsTotal *prometheus.CounterVec
	slotConflictsTotal  *prometheus.CounterVec
	permCacheTotal      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
// (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{}
	var err error
	if m.httpRequestsTotal, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests processed",
	}, []string{"method", "route", "status"})); err != nil {
		return nil, err
	}
	if m.httpRequestDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})); err != nil {
		return nil, err
	}
	// decision: allowed|tenant_required|unauthenticated|tenant_mismatch|insufficient_permissions|error
	if m.authzDecisionsTotal, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_decisions_total",
		Help: "Authorization gate decisions by outcome",
	}, []string{"decision"})); err != nil {
		return nil, err
	}
	if m.slotConflictsTotal, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appointment_slot_conflicts_total",
		Help: "Appointment writes rejected because the slot was taken",
	}, []string{"operation"})); err != nil {
		return nil, err
	}
	if m.permCacheTotal, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_permission_cache_total",
		Help: "Permission cache lookups by result",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	return m, nil
}

// register returns the collector already registered under the same
// descriptor, if any, so New can be called more than once per registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// AuthzDecision counts a gate outcome.
func (m *Metrics) AuthzDecision(decision string) {
	if m == nil {
		return
	}
	m.authzDecisionsTotal.WithLabelValues(decision).Inc()
}

// SlotConflict counts a rejected appointment write.
func (m *Metrics) SlotConflict(operation string) {
	if m == nil {
		return
	}
	m.slotConflictsTotal.WithLabelValues(operation).Inc()
}

// PermissionCache counts a permission cache lookup.
func (m *Metrics) PermissionCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.permCacheTotal.WithLabelValues(result).Inc()
}
