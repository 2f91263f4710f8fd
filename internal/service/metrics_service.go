package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/grievance-box-api/internal/models"
)

// Login outcomes recorded by MetricsService.
const (
	LoginOutcomeSuccess      = "success"
	LoginOutcomeUnknownEmail = "unknown_email"
	LoginOutcomeBadPassword  = "bad_password"
	LoginOutcomeUnregistered = "unregistered"
	LoginOutcomeError        = "error"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	loginAttempts   *prometheus.CounterVec
	lettersFiled    prometheus.Counter
	letterUpdates   *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	loginAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_login_attempts_total",
		Help: "Login attempts by role and outcome",
	}, []string{"role", "outcome"})

	lettersFiled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grievance_letters_filed_total",
		Help: "Grievance letters filed by students",
	})

	letterUpdates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_letter_updates_total",
		Help: "Letter update requests by whether any field changed",
	}, []string{"changed"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, loginAttempts, lettersFiled, letterUpdates, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		loginAttempts:   loginAttempts,
		lettersFiled:    lettersFiled,
		letterUpdates:   letterUpdates,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordLogin counts a login attempt for the role.
func (m *MetricsService) RecordLogin(role models.Role, outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(string(role), outcome).Inc()
}

// RecordLetterFiled counts a newly filed letter.
func (m *MetricsService) RecordLetterFiled() {
	if m == nil {
		return
	}
	m.lettersFiled.Inc()
}

// RecordLetterUpdate counts an update request.
func (m *MetricsService) RecordLetterUpdate(changed bool) {
	if m == nil {
		return
	}
	m.letterUpdates.WithLabelValues(fmt.Sprintf("%t", changed)).Inc()
}
