// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application collectors.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	AuthAttemptsTotal   *prometheus.CounterVec
	PresenceConnections prometheus.Gauge
	PresenceDropped     *prometheus.CounterVec
}

// NewMetrics creates the application collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deckhall_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deckhall_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deckhall_auth_attempts_total",
				Help: "Total number of login and signup attempts by outcome",
			},
			[]string{"strategy", "state"},
		),
		PresenceConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "deckhall_presence_connections",
				Help: "Number of sockets connected to the games namespace",
			},
		),
		PresenceDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deckhall_presence_dropped_total",
				Help: "Total number of presence frames dropped because a client queue was full",
			},
			[]string{"type"},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.AuthAttemptsTotal,
		m.PresenceConnections,
		m.PresenceDropped,
	)
	return m
}

// ObserveRequest records one completed HTTP request. route is the matched
// route template, not the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// AuthAttempt records the final state of a login or signup.
func (m *Metrics) AuthAttempt(strategy, state string) {
	m.AuthAttemptsTotal.WithLabelValues(strategy, state).Inc()
}

// ConnectionsChanged adjusts the presence connection gauge.
func (m *Metrics) ConnectionsChanged(delta int) {
	m.PresenceConnections.Add(float64(delta))
}

// FrameDropped counts a presence frame that was not delivered.
func (m *Metrics) FrameDropped(event string) {
	m.PresenceDropped.WithLabelValues(event).Inc()
}
