// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups business and HTTP collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	DocumentsIssued          *prometheus.CounterVec
	InvoiceStatusTransitions *prometheus.CounterVec
	PaymentsRecorded         *prometheus.CounterVec
	PaymentsDeleted          prometheus.Counter
	Overpayments             prometheus.Counter
	OverdueSwept             prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DocumentsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicing_documents_issued_total",
			Help: "Estimates and invoices created, by kind",
		}, []string{"kind"}),

		InvoiceStatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicing_invoice_status_transitions_total",
			Help: "Invoice status changes, by source and target status",
		}, []string{"from", "to"}),

		PaymentsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicing_payments_recorded_total",
			Help: "Payments recorded, by mode",
		}, []string{"mode"}),

		PaymentsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "invoicing_payments_deleted_total",
			Help: "Payments removed from invoices",
		}),

		Overpayments: factory.NewCounter(prometheus.CounterOpts{
			Name: "invoicing_overpayments_total",
			Help: "Payments that pushed an invoice above its total",
		}),

		OverdueSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "invoicing_overdue_swept_total",
			Help: "Invoices moved to OVERDUE by the periodic sweep",
		}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicing_http_requests_total",
			Help: "HTTP requests, by method, route and status code",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "invoicing_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) DocumentIssued(kind string) {
	if m == nil {
		return
	}
	m.DocumentsIssued.WithLabelValues(kind).Inc()
}

func (m *Metrics) InvoiceTransition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.InvoiceStatusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) PaymentRecorded(mode string, overpaid bool) {
	if m == nil {
		return
	}
	m.PaymentsRecorded.WithLabelValues(mode).Inc()
	if overpaid {
		m.Overpayments.Inc()
	}
}

func (m *Metrics) PaymentDeleted() {
	if m == nil {
		return
	}
	m.PaymentsDeleted.Inc()
}

func (m *Metrics) OverdueMarked(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.OverdueSwept.Add(float64(n))
}
