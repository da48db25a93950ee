package postnord

import (
	"context"
)

// APIClient defines the interface for PostNord API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// CreateBooking books a shipment and renders its label in one call
	CreateBooking(ctx context.Context, req *BookingRequest) (*BookingResponse, error)

	// GetLabel fetches the label for an already booked shipment
	GetLabel(ctx context.Context, shipmentID, format string) ([]byte, error)

	// FindServicePoints locates the nearest PostNord service points
	FindServicePoints(ctx context.Context, postalCode, countryCode string, maxResults int) (*ServicePointsResponse, error)
}

// ============================================================================
// API Request/Response Types (match PostNord Booking API v3 structure)
// ============================================================================

// BookingRequest is the Booking API v3 payload.
// POST /shipment/v3/booking
type BookingRequest struct {
	Shipment    BookingShipment `json:"shipment"`
	PrintConfig PrintConfig     `json:"printConfig"`
}

// BookingShipment carries the shipment portion of a booking.
type BookingShipment struct {
	Service        BookingService `json:"service"`
	Parties        BookingParties `json:"parties"`
	Parcels        []Parcel       `json:"parcels"`
	OrderReference string         `json:"orderReference"`
	CustomerNumber string         `json:"customerNumber"`
}

// BookingService selects the PostNord product and addons.
type BookingService struct {
	BasicServiceCode      string   `json:"basicServiceCode"`
	AdditionalServiceCode []string `json:"additionalServiceCode"`
}

// BookingParties holds sender and receiver.
type BookingParties struct {
	Sender   BookingParty `json:"sender"`
	Receiver BookingParty `json:"receiver"`
}

// BookingParty is one side of the booking.
type BookingParty struct {
	Name1        string  `json:"name1"`
	AddressLine1 string  `json:"addressLine1"`
	AddressLine2 string  `json:"addressLine2,omitempty"`
	PostalCode   string  `json:"postalCode"`
	City         string  `json:"city"`
	CountryCode  string  `json:"countryCode"`
	Contact      Contact `json:"contact"`
}

// Contact holds notification details for a party.
type Contact struct {
	Name         string `json:"name,omitempty"`
	EmailAddress string `json:"emailAddress"`
	PhoneNo      string `json:"phoneNo"`
}

// Parcel is one parcel line in a booking.
type Parcel struct {
	Weight           Measurement `json:"weight"`
	Volume           Measurement `json:"volume"`
	Contents         string      `json:"contents"`
	NumberOfPackages int         `json:"numberOfPackages"`
}

// Measurement is a value with its unit ("kg", "m3").
type Measurement struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// PrintConfig selects the label rendering target.
type PrintConfig struct {
	Target PrintTarget `json:"target"`
}

// PrintTarget names the label media, e.g. "PDF".
type PrintTarget struct {
	Media string `json:"media"`
}

// BookingResponse is the Booking API v3 response.
type BookingResponse struct {
	Shipments []BookedShipment `json:"shipments"`
}

// BookedShipment is one booked shipment with its items.
type BookedShipment struct {
	ShipmentID string       `json:"shipmentId"`
	Items      []BookedItem `json:"items"`
}

// BookedItem is a single parcel with its tracking id and label.
type BookedItem struct {
	ItemID    string `json:"itemId"`
	LabelData string `json:"labelData"` // Base64-encoded PDF
}

// ServicePointsResponse is the business location API response.
// GET /businesslocation/v5/servicepoints/nearest
type ServicePointsResponse struct {
	ServicePointInformationResponse ServicePointInformation `json:"servicePointInformationResponse"`
}

// ServicePointInformation wraps the service point list.
type ServicePointInformation struct {
	ServicePoints []ServicePointInfo `json:"servicePoints"`
}

// ServicePointInfo describes a single PostNord service point.
type ServicePointInfo struct {
	ServicePointID  string       `json:"servicePointId"`
	Name            string       `json:"name"`
	VisitingAddress PointAddress `json:"visitingAddress"`
}

// PointAddress is the visiting address of a service point.
type PointAddress struct {
	StreetName   string `json:"streetName"`
	StreetNumber string `json:"streetNumber"`
	PostalCode   string `json:"postalCode"`
	City         string `json:"city"`
	CountryCode  string `json:"countryCode"`
}
