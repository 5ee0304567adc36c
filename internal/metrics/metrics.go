// Package metrics defines the Prometheus collectors for concilia.
//
// All methods are safe on a nil *Metrics, so callers that run without
// metrics can pass nil.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agentstation/concilia/pkg/reconcile"
)

const namespace = "concilia"

// Metrics holds the collectors.
type Metrics struct {
	// Toggles counts manual toggles by action (created, removed, claimed).
	Toggles *prometheus.CounterVec

	// Imports counts import batches by outcome (previewed, committed,
	// empty, failed).
	Imports *prometheus.CounterVec

	// MergedPayments counts merge decisions on payments (added, replaced, kept,
	// rejected).
	MergedPayments *prometheus.CounterVec

	// MergedClients counts merge decisions on clients (added, skipped).
	MergedClients *prometheus.CounterVec

	// ExtractDuration measures extraction calls.
	ExtractDuration prometheus.Histogram

	// HTTPRequests counts API requests by method, route and status.
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration measures API requests by route.
	HTTPDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Toggles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "toggles_total",
			Help:      "Manual toggles by action.",
		}, []string{"action"}),
		Imports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Import batches by outcome.",
		}, []string{"outcome"}),
		MergedPayments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "payments_total",
			Help:      "Merge decisions on incoming payments.",
		}, []string{"decision"}),
		MergedClients: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "clients_total",
			Help:      "Merge decisions on candidate clients.",
		}, []string{"decision"}),
		ExtractDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "duration_seconds",
			Help:      "Duration of document extraction calls.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 60, 90, 120},
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ObserveToggle counts one toggle.
func (m *Metrics) ObserveToggle(action reconcile.ToggleAction) {
	if m == nil {
		return
	}
	m.Toggles.WithLabelValues(string(action)).Inc()
}

// ObserveImport counts one import outcome.
func (m *Metrics) ObserveImport(outcome string) {
	if m == nil {
		return
	}
	m.Imports.WithLabelValues(outcome).Inc()
}

// ObserveMerge counts the decisions of a committed merge.
func (m *Metrics) ObserveMerge(res *reconcile.Result) {
	if m == nil || res == nil || res.Changeset == nil {
		return
	}
	s := res.Changeset.Summary()
	m.MergedPayments.WithLabelValues("added").Add(float64(s.PaymentsAdded))
	m.MergedPayments.WithLabelValues("replaced").Add(float64(s.PaymentsReplaced))
	m.MergedPayments.WithLabelValues("kept").Add(float64(s.PaymentsKept))
	m.MergedPayments.WithLabelValues("rejected").Add(float64(s.PaymentsRejected))
	m.MergedClients.WithLabelValues("added").Add(float64(s.ClientsAdded))
	m.MergedClients.WithLabelValues("skipped").Add(float64(s.ClientsSkipped))
}

// ObserveExtract records the duration of one extraction call.
func (m *Metrics) ObserveExtract(d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractDuration.Observe(d.Seconds())
}

// ObserveRequest records one API request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
