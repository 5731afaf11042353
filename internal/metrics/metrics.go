// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	ProfileResolutions *prometheus.CounterVec
	ListSkipped        *prometheus.CounterVec
	FormRejections     *prometheus.CounterVec
	FlowCalls          *prometheus.CounterVec
}

// New registers every collector on a fresh registry so tests can build
// independent instances.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloodlink",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bloodlink",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		ProfileResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloodlink",
			Name:      "profile_resolutions_total",
			Help:      "Profile sync resolutions by outcome.",
		}, []string{"outcome"}),
		ListSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloodlink",
			Name:      "list_documents_skipped_total",
			Help:      "Stored documents dropped from a list for missing display fields.",
		}, []string{"list"}),
		FormRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloodlink",
			Name:      "form_rejections_total",
			Help:      "Form submissions rejected before reaching the store.",
		}, []string{"form", "field"}),
		FlowCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloodlink",
			Name:      "ai_flow_calls_total",
			Help:      "AI flow invocations by flow and outcome.",
		}, []string{"flow", "outcome"}),
	}
	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.ProfileResolutions,
		m.ListSkipped,
		m.FormRejections,
		m.FlowCalls,
		collectors.NewGoCollector(),
	)
	return m
}

// The methods below are nil-safe so components can run without metrics.

func (m *Metrics) ProfileResolved(outcome string) {
	if m == nil {
		return
	}
	m.ProfileResolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) DocumentSkipped(list string) {
	if m == nil {
		return
	}
	m.ListSkipped.WithLabelValues(list).Inc()
}

func (m *Metrics) FormRejected(form, field string) {
	if m == nil {
		return
	}
	m.FormRejections.WithLabelValues(form, field).Inc()
}

func (m *Metrics) FlowCalled(flow, outcome string) {
	if m == nil {
		return
	}
	m.FlowCalls.WithLabelValues(flow, outcome).Inc()
}
