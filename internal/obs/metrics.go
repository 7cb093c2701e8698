package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the Prometheus collectors of the service.
type Metrics struct {
	CalculationsTotal   *prometheus.CounterVec
	CalculationDuration prometheus.Histogram
	ExemptionsTotal     *prometheus.CounterVec
	LookupFailures      *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which tests rely on.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CalculationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tax_calculations_total",
			Help:      "Count of tax calculations by jurisdiction and outcome.",
		}, []string{"jurisdiction", "result"}),
		CalculationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tax_calculation_duration_seconds",
			Help:      "Latency of tax calculations including configuration lookups.",
			Buckets:   prometheus.DefBuckets,
		}),
		ExemptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tax_exemptions_applied_total",
			Help:      "Count of line items exempted, by rule name.",
		}, []string{"jurisdiction", "rule"}),
		LookupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tax_config_lookup_failures_total",
			Help:      "Count of configuration store failures seen by the engine.",
		}, []string{"operation"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.CalculationsTotal,
			m.CalculationDuration,
			m.ExemptionsTotal,
			m.LookupFailures,
			m.HTTPRequestsTotal,
			m.HTTPRequestDuration,
		)
	}
	return m
}
