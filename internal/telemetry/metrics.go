package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec
	WebhooksTotal     *prometheus.CounterVec
	UnmappedCarriers  *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atlas_shipping_operations_total",
				Help: "Total shipment operations by operation, carrier, region, and status",
			},
			[]string{"operation", "carrier", "region", "status"},
		),
		OperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "atlas_shipping_operation_duration_seconds",
				Help:    "Shipment operation duration in seconds by operation and carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "carrier"},
		),
		OperationErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atlas_shipping_operation_errors_total",
				Help: "Total operation errors by operation, carrier, region, and error kind",
			},
			[]string{"operation", "carrier", "region", "error_kind"},
		),
		WebhooksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atlas_shipping_webhooks_total",
				Help: "Total inbound carrier webhooks by carrier and outcome",
			},
			[]string{"carrier", "outcome"},
		),
		UnmappedCarriers: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atlas_shipping_webhook_unmapped_carrier_total",
				Help: "Webhooks received for carriers with no region mapping",
			},
			[]string{"carrier"},
		),
	}
}

// RecordOperation records a completed operation.
func (m *Metrics) RecordOperation(operation, carrier, region, status string, duration float64) {
	m.OperationsTotal.WithLabelValues(operation, carrier, region, status).Inc()
	m.OperationDuration.WithLabelValues(operation, carrier).Observe(duration)
}

// RecordError records an operation failure by error kind.
func (m *Metrics) RecordError(operation, carrier, region, kind string) {
	m.OperationErrors.WithLabelValues(operation, carrier, region, kind).Inc()
}

// RecordWebhook records an inbound webhook outcome.
func (m *Metrics) RecordWebhook(carrier, outcome string) {
	m.WebhooksTotal.WithLabelValues(carrier, outcome).Inc()
}

// RecordUnmappedCarrier records a webhook whose carrier has no region mapping.
func (m *Metrics) RecordUnmappedCarrier(carrier string) {
	m.UnmappedCarriers.WithLabelValues(carrier).Inc()
}
