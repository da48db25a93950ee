package postnord

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/felixwingard/garp-shipping-connector/pkg/carrier"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateBooking     func(ctx context.Context, req *BookingRequest) (*BookingResponse, error)
	OnGetLabel          func(ctx context.Context, shipmentID, format string) ([]byte, error)
	OnFindServicePoints func(ctx context.Context, postalCode, countryCode string, maxResults int) (*ServicePointsResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// CreateBooking books a mock shipment with an inline label.
func (m *MockAPIClient) CreateBooking(ctx context.Context, req *BookingRequest) (*BookingResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, carrier.NewCarrierError(carrierName, "MOCK_ERROR", "Simulated API error")
	}

	if m.OnCreateBooking != nil {
		return m.OnCreateBooking(ctx, req)
	}

	now := time.Now().UnixNano()
	shipmentID := fmt.Sprintf("PN%012d", now%1000000000000)
	itemID := fmt.Sprintf("373323%011d", now%100000000000)
	label := []byte("%PDF-1.4\nmock PostNord label\n%%EOF\n")

	return &BookingResponse{
		Shipments: []BookedShipment{
			{
				ShipmentID: shipmentID,
				Items: []BookedItem{
					{
						ItemID:    itemID,
						LabelData: base64.StdEncoding.EncodeToString(label),
					},
				},
			},
		},
	}, nil
}

// GetLabel returns a mock label.
func (m *MockAPIClient) GetLabel(ctx context.Context, shipmentID, format string) ([]byte, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, carrier.NewCarrierError(carrierName, "MOCK_ERROR", "Simulated API error")
	}

	if m.OnGetLabel != nil {
		return m.OnGetLabel(ctx, shipmentID, format)
	}

	return []byte("%PDF-1.4\nmock PostNord label " + shipmentID + "\n%%EOF\n"), nil
}

// FindServicePoints returns mock service points near the given postal code.
func (m *MockAPIClient) FindServicePoints(ctx context.Context, postalCode, countryCode string, maxResults int) (*ServicePointsResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, carrier.NewCarrierError(carrierName, "MOCK_ERROR", "Simulated API error")
	}

	if m.OnFindServicePoints != nil {
		return m.OnFindServicePoints(ctx, postalCode, countryCode, maxResults)
	}

	points := []ServicePointInfo{
		{
			ServicePointID: "716791",
			Name:           "Hemkop Stigbergstorget",
			VisitingAddress: PointAddress{
				StreetName:   "Stigbergstorget",
				StreetNumber: "4",
				PostalCode:   postalCode,
				City:         "Goteborg",
				CountryCode:  countryCode,
			},
		},
		{
			ServicePointID: "716802",
			Name:           "Willys Kungssten",
			VisitingAddress: PointAddress{
				StreetName:   "Kustgatan",
				StreetNumber: "8",
				PostalCode:   postalCode,
				City:         "Goteborg",
				CountryCode:  countryCode,
			},
		},
	}
	if maxResults > 0 && maxResults < len(points) {
		points = points[:maxResults]
	}

	return &ServicePointsResponse{
		ServicePointInformationResponse: ServicePointInformation{
			ServicePoints: points,
		},
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
