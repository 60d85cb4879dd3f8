package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the collectors the
// API reports on.
type MetricsService struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	syncTotal       *prometheus.CounterVec
	assignmentTotal *prometheus.CounterVec
	emailsSent      prometheus.Counter
}

// NewMetricsService creates a registry with the standard Go and process
// collectors plus the application's own.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "path", "status"})

	syncTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workbook_sync_total",
		Help: "Workbook sync attempts by direction and outcome.",
	}, []string{"direction", "outcome"})

	assignmentTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "advisor_assignments_total",
		Help: "Advisor assignment mutations by kind and action.",
	}, []string{"kind", "action"})

	emailsSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_emails_sent_total",
		Help: "Notification emails delivered.",
	})

	registry.MustRegister(requestDuration, requestTotal, syncTotal, assignmentTotal, emailsSent)

	return &MetricsService{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		syncTotal:       syncTotal,
		assignmentTotal: assignmentTotal,
		emailsSent:      emailsSent,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveSync records one workbook sync attempt. Outcome is one of
// "success", "cached", or "failed".
func (s *MetricsService) ObserveSync(direction, outcome string) {
	if s == nil {
		return
	}
	s.syncTotal.WithLabelValues(direction, outcome).Inc()
}

// ObserveAssignment records an assignment mutation, e.g. ("nrt", "assign").
func (s *MetricsService) ObserveAssignment(kind, action string) {
	if s == nil {
		return
	}
	s.assignmentTotal.WithLabelValues(kind, action).Inc()
}

// ObserveEmailSent increments the delivered email counter.
func (s *MetricsService) ObserveEmailSent() {
	if s == nil {
		return
	}
	s.emailsSent.Inc()
}
