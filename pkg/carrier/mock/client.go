// Package mock provides an in-memory carrier for tests and offline runs.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/felixwingard/garp-shipping-connector/pkg/carrier"
	"github.com/felixwingard/garp-shipping-connector/pkg/garp"
)

// Client is a mock carrier. By default every operation succeeds with
// generated identifiers and canned documents; individual operations can
// be overridden per test through the On hooks.
type Client struct {
	name string

	OnCreateShipment    func(ctx context.Context, shipment *garp.Shipment) (*carrier.CreateResult, error)
	OnGetLabel          func(ctx context.Context, shipmentID, format string) ([]byte, error)
	OnGetShipmentList   func(ctx context.Context, shipmentID string) ([]byte, error)
	OnRequestPickup     func(ctx context.Context, shipmentID, pickupDate string) error
	OnFindServicePoints func(ctx context.Context, postalCode, countryCode string, limit int) ([]carrier.ServicePoint, error)
}

var (
	_ carrier.Carrier            = (*Client)(nil)
	_ carrier.DocumentLister     = (*Client)(nil)
	_ carrier.PickupBooker       = (*Client)(nil)
	_ carrier.ServicePointFinder = (*Client)(nil)
)

// New creates a new mock carrier.
func New(name string) *Client {
	return &Client{name: name}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// CreateShipment books a mock shipment. The result carries no label
// data, so callers exercise the separate GetLabel path.
func (c *Client) CreateShipment(ctx context.Context, shipment *garp.Shipment) (*carrier.CreateResult, error) {
	if c.OnCreateShipment != nil {
		return c.OnCreateShipment(ctx, shipment)
	}
	now := time.Now().UnixNano()
	return &carrier.CreateResult{
		ShipmentID:     fmt.Sprintf("%s-shipment-%d", c.name, now),
		TrackingNumber: fmt.Sprintf("%s%09d", c.name, now%1000000000),
		LabelFormat:    "pdf",
	}, nil
}

// GetLabel returns a mock PDF label.
func (c *Client) GetLabel(ctx context.Context, shipmentID, format string) ([]byte, error) {
	if c.OnGetLabel != nil {
		return c.OnGetLabel(ctx, shipmentID, format)
	}
	return []byte("%PDF-1.4\nmock label " + shipmentID + "\n"), nil
}

// GetShipmentList returns no secondary document unless overridden.
func (c *Client) GetShipmentList(ctx context.Context, shipmentID string) ([]byte, error) {
	if c.OnGetShipmentList != nil {
		return c.OnGetShipmentList(ctx, shipmentID)
	}
	return nil, nil
}

// RequestPickup accepts every pickup request unless overridden.
func (c *Client) RequestPickup(ctx context.Context, shipmentID, pickupDate string) error {
	if c.OnRequestPickup != nil {
		return c.OnRequestPickup(ctx, shipmentID, pickupDate)
	}
	return nil
}

// FindServicePoints returns canned service points.
func (c *Client) FindServicePoints(ctx context.Context, postalCode, countryCode string, limit int) ([]carrier.ServicePoint, error) {
	if c.OnFindServicePoints != nil {
		return c.OnFindServicePoints(ctx, postalCode, countryCode, limit)
	}
	points := []carrier.ServicePoint{
		{ID: "1001", Name: c.name + " Service Point Central", Address: "Storgatan 1", PostalCode: postalCode, City: "STOCKHOLM", CountryCode: countryCode},
		{ID: "1002", Name: c.name + " Service Point South", Address: "Kungsgatan 5", PostalCode: postalCode, City: "STOCKHOLM", CountryCode: countryCode},
	}
	if limit > 0 && limit < len(points) {
		points = points[:limit]
	}
	return points, nil
}
