package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the Prometheus instruments for the dashboard layer.
type Collector struct {
	upstreamRequests     *prometheus.CounterVec
	flowSubmissions      *prometheus.CounterVec
	sessionInvalidations prometheus.Counter
	syncSuppressions     prometheus.Counter
}

// New registers the collectors on reg and returns the collector. Tests pass
// their own registry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		upstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "revlens_upstream_requests_total",
			Help: "Requests to the analytics backend by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		flowSubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "revlens_flow_submissions_total",
			Help: "Connection flow submissions by platform and result.",
		}, []string{"platform", "result"}),
		sessionInvalidations: factory.NewCounter(prometheus.CounterOpts{
			Name: "revlens_session_invalidations_total",
			Help: "Sessions cleared after a 401 from the analytics backend.",
		}),
		syncSuppressions: factory.NewCounter(prometheus.CounterOpts{
			Name: "revlens_sync_suppressions_total",
			Help: "Sync triggers suppressed by the in-flight guard.",
		}),
	}
}

// ObserveUpstreamRequest records one analytics-backend call.
func (c *Collector) ObserveUpstreamRequest(endpoint, outcome string) {
	c.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveFlowSubmission records one connection-flow submission.
func (c *Collector) ObserveFlowSubmission(platform, result string) {
	c.flowSubmissions.WithLabelValues(platform, result).Inc()
}

// ObserveSessionInvalidated records one 401-driven session clear.
func (c *Collector) ObserveSessionInvalidated() {
	c.sessionInvalidations.Inc()
}

// ObserveSyncSuppressed records one suppressed duplicate sync trigger.
func (c *Collector) ObserveSyncSuppressed() {
	c.syncSuppressions.Inc()
}
