// Package carrier provides an abstraction layer for parcel carriers.
package carrier

import (
	"context"

	"github.com/felixwingard/garp-shipping-connector/pkg/garp"
)

// Carrier defines the interface every carrier client must implement.
type Carrier interface {
	// Name returns the carrier identifier (e.g. "DHL", "PN").
	Name() string

	// CreateShipment books a shipment with the carrier.
	CreateShipment(ctx context.Context, shipment *garp.Shipment) (*CreateResult, error)

	// GetLabel retrieves the shipping label for a booked shipment.
	GetLabel(ctx context.Context, shipmentID, format string) ([]byte, error)
}

// DocumentLister is implemented by carriers that can produce a
// secondary shipment list document. Absence of the document is a
// normal condition, not an error.
type DocumentLister interface {
	GetShipmentList(ctx context.Context, shipmentID string) ([]byte, error)
}

// PickupBooker is implemented by carriers that accept pickup requests.
type PickupBooker interface {
	RequestPickup(ctx context.Context, shipmentID, pickupDate string) error
}

// ServicePointFinder is implemented by carriers that can locate parcel
// service points near a postal code.
type ServicePointFinder interface {
	FindServicePoints(ctx context.Context, postalCode, countryCode string, limit int) ([]ServicePoint, error)
}

// CreateResult is the outcome of a successful booking.
type CreateResult struct {
	ShipmentID     string
	TrackingNumber string

	// LabelData is set when the carrier returns the label in the
	// booking response itself; otherwise fetch it with GetLabel.
	LabelData   []byte
	LabelFormat string
}

// ServicePoint is a parcel pickup/drop-off location.
type ServicePoint struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	PostalCode  string `json:"postalCode"`
	City        string `json:"city"`
	CountryCode string `json:"countryCode"`
}

// Sender is the consignor identity stamped on every booking. Carrier
// customer numbers are configured per carrier client, not here.
type Sender struct {
	Name        string
	Address     string
	PostalCode  string
	City        string
	CountryCode string
	Phone       string
	Email       string

	// Reference is used when a shipment carries no reference of its own.
	Reference string
}
