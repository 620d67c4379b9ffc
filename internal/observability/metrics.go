// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Auth outcome labels.
const (
	ResultSuccess  = "success"
	ResultConflict = "conflict"
	ResultDenied   = "denied"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// Metrics contains the service's custom Prometheus collectors.
// A nil *Metrics records nothing.
type Metrics struct {
	HTTPRequestsTotal *prometheus.CounterVec
	AuthOutcomesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the custom collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		AuthOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_auth_outcomes_total",
				Help: "Total number of account operations by operation and result",
			},
			[]string{"operation", "result"},
		),
	}

	reg.MustRegister(m.HTTPRequestsTotal)
	reg.MustRegister(m.AuthOutcomesTotal)

	return m
}

// RecordRequest counts one handled HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// RecordAuth counts one account operation outcome, e.g. ("login", ResultDenied).
func (m *Metrics) RecordAuth(operation, result string) {
	if m == nil {
		return
	}
	m.AuthOutcomesTotal.WithLabelValues(operation, result).Inc()
}
