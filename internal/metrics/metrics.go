// Package metrics exposes Prometheus metrics for the HTTP surface and the
// authentication flow. A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes
const (
	LoginSuccess     = "success"
	LoginBadPassword = "bad_password"
	LoginUnknownUser = "unknown_user"
	LoginLocked      = "locked"
	LoginInactive    = "inactive"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	LoginsTotal           *prometheus.CounterVec
	RegistrationsTotal    prometheus.Counter
	LockoutsTotal         prometheus.Counter
	TokenRevocationsTotal *prometheus.CounterVec
}

// New creates the metrics and registers them, plus the Go and process
// collectors, on a private registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echolearn_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "echolearn_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echolearn_auth_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		RegistrationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "echolearn_auth_registrations_total",
				Help: "Accounts created",
			},
		),
		LockoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "echolearn_auth_lockouts_total",
				Help: "Accounts locked after repeated failed logins",
			},
		),
		TokenRevocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echolearn_auth_token_revocations_total",
				Help: "Session tokens revoked before expiry",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.RegistrationsTotal,
		m.LockoutsTotal,
		m.TokenRevocationsTotal,
	)
	return m
}

// Registry returns the registry the metrics live in
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveLogin counts a login attempt by outcome
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRegistration counts a new account
func (m *Metrics) ObserveRegistration() {
	if m == nil {
		return
	}
	m.RegistrationsTotal.Inc()
}

// ObserveLockout counts an account lock
func (m *Metrics) ObserveLockout() {
	if m == nil {
		return
	}
	m.LockoutsTotal.Inc()
}

// ObserveRevocations counts n revoked tokens
func (m *Metrics) ObserveRevocations(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TokenRevocationsTotal.WithLabelValues(reason).Add(float64(n))
}

// Middleware records request counts and latency per route pattern
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else if s, ok := err.(interface{ Status() int }); ok {
				status = s.Status()
			}
		}

		path := c.Route().Path
		method := c.Method()
		m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
