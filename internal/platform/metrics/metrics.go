package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application-level Prometheus metrics. Hot-path package
// metrics (dispatch latency, OTP issuance) register themselves locally with
// promauto.
type Metrics struct {
	AccountsCreated prometheus.Counter
	ReportsCreated  prometheus.Counter
	RequestLatency  *prometheus.HistogramVec
}

// New creates and registers all application metrics. Call once per process;
// promauto panics on duplicate registration.
func New() *Metrics {
	return newWith(promauto.NewCounter, promauto.NewHistogramVec)
}

// NewNop creates unregistered metrics for tests, which construct services
// many times per process.
func NewNop() *Metrics {
	return newWith(prometheus.NewCounter, prometheus.NewHistogramVec)
}

func newWith(
	counter func(prometheus.CounterOpts) prometheus.Counter,
	histogramVec func(prometheus.HistogramOpts, []string) *prometheus.HistogramVec,
) *Metrics {
	return &Metrics{
		AccountsCreated: counter(prometheus.CounterOpts{
			Name: "vigil_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		ReportsCreated: counter(prometheus.CounterOpts{
			Name: "vigil_reports_created_total",
			Help: "Total number of incident reports persisted",
		}),
		RequestLatency: histogramVec(prometheus.HistogramOpts{
			Name:    "vigil_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
