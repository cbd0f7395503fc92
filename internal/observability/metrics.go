// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Warden Prometheus collectors. It satisfies the metrics
// recorder interfaces of the auth service and the delivery dispatcher.
type Metrics struct {
	AuthOperations *prometheus.CounterVec
	CodeDeliveries *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_auth_operations_total",
				Help: "Authentication operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		CodeDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_code_deliveries_total",
				Help: "Reset code deliveries by outcome",
			},
			[]string{"outcome"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_http_requests_total",
				Help: "HTTP requests by method, route pattern and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warden_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route pattern",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(m.AuthOperations, m.CodeDeliveries, m.HTTPRequests, m.HTTPDuration)
	return m
}

// RecordAuthOperation counts one auth operation outcome.
func (m *Metrics) RecordAuthOperation(operation, outcome string) {
	m.AuthOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordDelivery counts one reset code delivery outcome.
func (m *Metrics) RecordDelivery(outcome string) {
	m.CodeDeliveries.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest records a finished HTTP request. route is the matched
// pattern, never the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
