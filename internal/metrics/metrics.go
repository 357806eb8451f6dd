// Package metrics provides Prometheus metrics for the patient pipeline and
// the HTTP layer.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the service exports.
type Metrics struct {
	predictionsTotal        *prometheus.CounterVec
	patientsCreatedTotal    prometheus.Counter
	patientsDeletedTotal    prometheus.Counter
	persistenceErrorsTotal  *prometheus.CounterVec
	validationFailuresTotal *prometheus.CounterVec
	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them with registry.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		predictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diabcare_predictions_total",
			Help: "Predictions made, by outcome (diabetic, non_diabetic, unavailable).",
		}, []string{"outcome"}),
		patientsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diabcare_patients_created_total",
			Help: "Patients persisted.",
		}),
		patientsDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diabcare_patients_deleted_total",
			Help: "Patients deleted.",
		}),
		persistenceErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diabcare_persistence_errors_total",
			Help: "Failed store operations, by operation.",
		}, []string{"operation"}),
		validationFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diabcare_validation_failures_total",
			Help: "Rejected patient submissions, by field.",
		}, []string{"field"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diabcare_http_requests_total",
			Help: "HTTP requests, by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diabcare_http_request_duration_seconds",
			Help:    "HTTP request latency, by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.predictionsTotal,
		m.patientsCreatedTotal,
		m.patientsDeletedTotal,
		m.persistenceErrorsTotal,
		m.validationFailuresTotal,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// RecordPrediction counts a prediction outcome.
func (m *Metrics) RecordPrediction(outcome string) {
	if m == nil {
		return
	}
	m.predictionsTotal.WithLabelValues(outcome).Inc()
}

// RecordPatientCreated counts a persisted patient.
func (m *Metrics) RecordPatientCreated() {
	if m == nil {
		return
	}
	m.patientsCreatedTotal.Inc()
}

// RecordPatientDeleted counts a deleted patient.
func (m *Metrics) RecordPatientDeleted() {
	if m == nil {
		return
	}
	m.patientsDeletedTotal.Inc()
}

// RecordPersistenceError counts a failed store operation.
func (m *Metrics) RecordPersistenceError(operation string) {
	if m == nil {
		return
	}
	m.persistenceErrorsTotal.WithLabelValues(operation).Inc()
}

// RecordValidationFailure counts a rejected submission.
func (m *Metrics) RecordValidationFailure(field string) {
	if m == nil {
		return
	}
	m.validationFailuresTotal.WithLabelValues(field).Inc()
}

// RecordHTTPRequest counts a served request and observes its latency.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
}
