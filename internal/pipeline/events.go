package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/felixwingard/garp-shipping-connector/internal/telemetry"
)

// Event types published by the orchestrator.
const (
	EventShipmentOK    = "shipment_ok"
	EventShipmentError = "shipment_error"
	EventFileDone      = "file_done"
	EventFileError     = "file_error"
)

// Event is one observable step in file processing.
type Event struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Time     time.Time `json:"time"`
	OrderNo  string    `json:"orderNo,omitempty"`
	Tracking string    `json:"tracking,omitempty"`
	Carrier  string    `json:"carrier,omitempty"`
	Filename string    `json:"filename,omitempty"`
	Err      string    `json:"error,omitempty"`
}

// Bus fans events from the orchestrator to the status store. Publishing
// never blocks: when the buffer is full the event is dropped and counted.
type Bus struct {
	events  chan Event
	logger  *otelzap.Logger
	metrics *telemetry.Metrics
}

// NewBus creates an event bus with the given buffer capacity.
func NewBus(buffer int, logger *otelzap.Logger, metrics *telemetry.Metrics) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{
		events:  make(chan Event, buffer),
		logger:  logger,
		metrics: metrics,
	}
}

// Publish stamps the event with an ID and timestamp and enqueues it. A nil
// bus discards events, so one-shot runs need no wiring.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Time = time.Now()
	select {
	case b.events <- event:
	default:
		b.metrics.RecordEventDropped()
		b.logger.Warn("Event buffer full, dropping event",
			zap.String("type", event.Type),
			zap.String("order_no", event.OrderNo),
			zap.String("filename", event.Filename),
		)
	}
}

// Events returns the consumer side of the bus.
func (b *Bus) Events() <-chan Event {
	return b.events
}

// Close closes the event channel. No Publish may follow.
func (b *Bus) Close() {
	close(b.events)
}
