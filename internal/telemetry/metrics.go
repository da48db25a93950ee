package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the connector.
type Metrics struct {
	FilesProcessed  *prometheus.CounterVec
	Shipments       *prometheus.CounterVec
	CarrierRequests *prometheus.CounterVec
	CarrierDuration *prometheus.HistogramVec
	ActiveFiles     prometheus.Gauge
	LockConflicts   prometheus.Counter
	EventsDropped   prometheus.Counter
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		FilesProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "garpconnect_files_processed_total",
				Help: "Total number of order files processed by outcome",
			},
			[]string{"outcome"},
		),
		Shipments: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "garpconnect_shipments_total",
				Help: "Total number of shipments booked by carrier and outcome",
			},
			[]string{"carrier", "outcome"},
		),
		CarrierRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "garpconnect_carrier_requests_total",
				Help: "Total carrier API requests by carrier, operation, and status",
			},
			[]string{"carrier", "operation", "status"},
		),
		CarrierDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "garpconnect_carrier_request_duration_seconds",
				Help:    "Carrier API request duration in seconds by carrier and operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"carrier", "operation"},
		),
		ActiveFiles: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "garpconnect_active_files",
				Help: "Number of order files currently being processed",
			},
		),
		LockConflicts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "garpconnect_lock_conflicts_total",
				Help: "Total number of files skipped because another instance held the lock",
			},
		),
		EventsDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "garpconnect_events_dropped_total",
				Help: "Total number of pipeline events dropped due to a full buffer",
			},
		),
	}
}

// RecordFile records the outcome of one processed order file.
func (m *Metrics) RecordFile(outcome string) {
	if m == nil {
		return
	}
	m.FilesProcessed.WithLabelValues(outcome).Inc()
}

// RecordShipment records the outcome of one shipment booking.
func (m *Metrics) RecordShipment(carrier, outcome string) {
	if m == nil {
		return
	}
	m.Shipments.WithLabelValues(carrier, outcome).Inc()
}

// RecordCarrierRequest records a carrier API call.
func (m *Metrics) RecordCarrierRequest(carrier, operation, status string, duration float64) {
	if m == nil {
		return
	}
	m.CarrierRequests.WithLabelValues(carrier, operation, status).Inc()
	m.CarrierDuration.WithLabelValues(carrier, operation).Observe(duration)
}

// FileStarted marks an order file as in flight.
func (m *Metrics) FileStarted() {
	if m == nil {
		return
	}
	m.ActiveFiles.Inc()
}

// FileFinished marks an order file as no longer in flight.
func (m *Metrics) FileFinished() {
	if m == nil {
		return
	}
	m.ActiveFiles.Dec()
}

// RecordLockConflict records a file skipped because its lock was held.
func (m *Metrics) RecordLockConflict() {
	if m == nil {
		return
	}
	m.LockConflicts.Inc()
}

// RecordEventDropped records an event lost to a full subscriber buffer.
func (m *Metrics) RecordEventDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}
