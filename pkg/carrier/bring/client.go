// Package bring reserves the registry slot for Bring (Norway). Booking is
// not wired up yet; every operation fails with a NOT_IMPLEMENTED carrier
// error so a BRING service code in an order file is reported instead of
// silently dropped.
package bring

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"

	"github.com/felixwingard/garp-shipping-connector/pkg/carrier"
	"github.com/felixwingard/garp-shipping-connector/pkg/garp"
)

const carrierName = "BRING"

// Client is a placeholder carrier. It registers under "BRING" when enabled
// so routing works end to end, but it cannot book shipments.
type Client struct {
	logger *otelzap.Logger
}

// New creates a new Bring placeholder client.
func New(logger *otelzap.Logger) *Client {
	return &Client{logger: logger}
}

// Name returns the carrier identifier.
func (c *Client) Name() string {
	return carrierName
}

// CreateShipment always fails; Bring booking is not implemented.
func (c *Client) CreateShipment(ctx context.Context, shipment *garp.Shipment) (*carrier.CreateResult, error) {
	c.logger.Ctx(ctx).Warn("Bring booking requested but not implemented")
	return nil, carrier.NewCarrierError(carrierName, "NOT_IMPLEMENTED", "Bring booking is not implemented").
		WithCause(carrier.ErrNotImplemented)
}

// GetLabel always fails; Bring booking is not implemented.
func (c *Client) GetLabel(ctx context.Context, shipmentID string, format string) ([]byte, error) {
	return nil, carrier.NewCarrierError(carrierName, "NOT_IMPLEMENTED", "Bring labels are not implemented").
		WithCause(carrier.ErrNotImplemented)
}

var _ carrier.Carrier = (*Client)(nil)
