package dhl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/felixwingard/garp-shipping-connector/pkg/carrier"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnSendTransportInstruction func(ctx context.Context, req *TransportInstruction) (*TransportInstructionResponse, error)
	OnPrintDocuments           func(ctx context.Context, req *PrintRequest) (*PrintResponse, error)
	OnPrintDocumentsByID       func(ctx context.Context, req *PrintByIDRequest) (*PrintResponse, error)
	OnFindServicePoints        func(ctx context.Context, postalCode, countryCode string, maxResults int) (*ServicePointsResponse, error)
	OnRequestPickup            func(ctx context.Context, req *PickupRequest) (*PickupResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// SendTransportInstruction books a mock shipment. The response echoes the
// request with an assigned instruction ID and piece barcode, wrapped the
// way the sandbox wraps it.
func (m *MockAPIClient) SendTransportInstruction(ctx context.Context, req *TransportInstruction) (*TransportInstructionResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, carrier.NewCarrierError(carrierName, "MOCK_ERROR", "Simulated API error")
	}

	if m.OnSendTransportInstruction != nil {
		return m.OnSendTransportInstruction(ctx, req)
	}

	instr := *req
	instr.ID = fmt.Sprintf("%d", 400000000+time.Now().UnixNano()%100000000)
	barcode := fmt.Sprintf("JJD%011d", time.Now().UnixNano()%100000000000)
	if len(instr.Pieces) > 0 {
		pieces := make([]Piece, len(instr.Pieces))
		copy(pieces, instr.Pieces)
		pieces[0].ID = []string{barcode}
		instr.Pieces = pieces
	}

	raw, err := json.Marshal(&instr)
	if err != nil {
		return nil, err
	}

	result := &TransportInstructionResponse{
		Status:               "Success",
		TransportInstruction: raw,
	}
	envelope, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	result.Raw = envelope

	return result, nil
}

// PrintDocuments returns a mock document envelope.
func (m *MockAPIClient) PrintDocuments(ctx context.Context, req *PrintRequest) (*PrintResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, carrier.NewCarrierError(carrierName, "MOCK_ERROR", "Simulated API error")
	}

	if m.OnPrintDocuments != nil {
		return m.OnPrintDocuments(ctx, req)
	}

	docType := "Label"
	if req.Options.ShipmentList {
		docType = "ShipmentList"
	}
	return mockPrintResponse(docType)
}

// PrintDocumentsByID returns a mock label envelope.
func (m *MockAPIClient) PrintDocumentsByID(ctx context.Context, req *PrintByIDRequest) (*PrintResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, carrier.NewCarrierError(carrierName, "MOCK_ERROR", "Simulated API error")
	}

	if m.OnPrintDocumentsByID != nil {
		return m.OnPrintDocumentsByID(ctx, req)
	}

	return mockPrintResponse("Label")
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
			ID:   "SE-100101",
			Name: "ICA Supermarket City",
			Address: Address{
				Street:      "Storgatan 12",
				CityName:    "Stockholm",
				PostalCode:  postalCode,
				CountryCode: countryCode,
			},
		},
		{
			ID:   "SE-100205",
			Name: "Coop Konsum Centrum",
			Address: Address{
				Street:      "Kungsgatan 4",
				CityName:    "Stockholm",
				PostalCode:  postalCode,
				CountryCode: countryCode,
			},
		},
	}
	if maxResults > 0 && maxResults < len(points) {
		points = points[:maxResults]
	}

	return &ServicePointsResponse{ServicePoints: points}, nil
}

// RequestPickup books a mock pickup.
func (m *MockAPIClient) RequestPickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, carrier.NewCarrierError(carrierName, "MOCK_ERROR", "Simulated API error")
	}

	if m.OnRequestPickup != nil {
		return m.OnRequestPickup(ctx, req)
	}

	return &PickupResponse{
		ConfirmationID: fmt.Sprintf("PICKUP-%d", time.Now().UnixNano()%1000000),
		Status:         "Booked",
	}, nil
}

// mockPrintResponse builds a JSON report envelope carrying a small PDF stub.
func mockPrintResponse(docType string) (*PrintResponse, error) {
	pdf := []byte("%PDF-1.4\nmock " + docType + "\n%%EOF\n")
	envelope := printReportsEnvelope{
		Reports: []printReport{
			{
				Name:        strings.ToLower(docType) + ".pdf",
				Content:     base64.StdEncoding.EncodeToString(pdf),
				ContentType: "application/pdf",
				Type:        docType,
				Valid:       true,
			},
		},
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	return &PrintResponse{ContentType: "application/json", Body: body}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
