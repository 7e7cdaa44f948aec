package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the application.
type Metrics struct {
	CheckIns           *prometheus.CounterVec
	MembersRegistered  prometheus.Counter
	AllocationRetries  prometheus.Counter
	DashboardCacheHits *prometheus.CounterVec
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CheckIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fellowship_checkins_total",
			Help: "Check-in attempts by kind (member, guest) and outcome",
		}, []string{"kind", "outcome"}),
		MembersRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "fellowship_members_registered_total",
			Help: "Total number of members registered",
		}),
		AllocationRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "fellowship_allocation_retries_total",
			Help: "Fellowship number allocations retried after a uniqueness conflict",
		}),
		DashboardCacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fellowship_dashboard_cache_total",
			Help: "Dashboard summary lookups by cache result (hit, miss)",
		}, []string{"result"}),
	}
}

// ObserveCheckIn counts a check-in outcome. Safe on a nil receiver.
func (m *Metrics) ObserveCheckIn(kind, outcome string) {
	if m == nil {
		return
	}
	m.CheckIns.WithLabelValues(kind, outcome).Inc()
}

// IncrementMembersRegistered counts a completed registration.
func (m *Metrics) IncrementMembersRegistered() {
	if m == nil {
		return
	}
	m.MembersRegistered.Inc()
}

// IncrementAllocationRetries counts one retried allocation.
func (m *Metrics) IncrementAllocationRetries() {
	if m == nil {
		return
	}
	m.AllocationRetries.Inc()
}

// ObserveDashboardCache counts a dashboard cache hit or miss.
func (m *Metrics) ObserveDashboardCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.DashboardCacheHits.WithLabelValues(result).Inc()
}
