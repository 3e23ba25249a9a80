package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the application's metric
// families.
type MetricsService struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	logins       *prometheus.CounterVec
	tokensIssued prometheus.Counter
	authzDenials *prometheus.CounterVec
	reminders    prometheus.Counter
	certificates prometheus.Counter
}

// NewMetricsService registers the metric families on a fresh registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &MetricsService{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Successful logins by role.",
		}, []string{"role"}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_tokens_issued_total",
			Help: "Session credentials issued.",
		}),
		authzDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authz_denials_total",
			Help: "Authorization denials by action.",
		}, []string{"action"}),
		reminders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reminders_dispatched_total",
			Help: "Study reminders dispatched by the background queue.",
		}),
		certificates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "certificates_issued_total",
			Help: "Completion certificates issued.",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.logins,
		m.tokensIssued,
		m.authzDenials,
		m.reminders,
		m.certificates,
	)
	return m
}

// ObserveHTTPRequest records one completed request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncLogin counts a successful login.
func (m *MetricsService) IncLogin(role string) {
	m.logins.WithLabelValues(role).Inc()
}

// IncTokenIssued counts an issued session credential.
func (m *MetricsService) IncTokenIssued() {
	m.tokensIssued.Inc()
}

// IncAuthzDenial counts a policy denial.
func (m *MetricsService) IncAuthzDenial(action string) {
	m.authzDenials.WithLabelValues(action).Inc()
}

// IncReminderDispatched counts a dispatched reminder.
func (m *MetricsService) IncReminderDispatched() {
	m.reminders.Inc()
}

// IncCertificateIssued counts an issued certificate.
func (m *MetricsService) IncCertificateIssued() {
	m.certificates.Inc()
}

// Handler exposes the registry for scraping.
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
