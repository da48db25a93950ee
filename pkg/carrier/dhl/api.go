package dhl

import (
	"context"
	"encoding/json"
)

// APIClient defines the interface for DHL Freight API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// SendTransportInstruction books a shipment via the TransportInstruction API
	SendTransportInstruction(ctx context.Context, req *TransportInstruction) (*TransportInstructionResponse, error)

	// PrintDocuments generates documents from full shipment data
	PrintDocuments(ctx context.Context, req *PrintRequest) (*PrintResponse, error)

	// PrintDocumentsByID generates documents for an already booked shipment
	PrintDocumentsByID(ctx context.Context, req *PrintByIDRequest) (*PrintResponse, error)

	// FindServicePoints locates the nearest DHL parcel shops
	FindServicePoints(ctx context.Context, postalCode, countryCode string, maxResults int) (*ServicePointsResponse, error)

	// RequestPickup books a pickup for a created shipment
	RequestPickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error)
}

// ============================================================================
// API Request/Response Types (match DHL Freight REST API structure)
// ============================================================================

// TransportInstruction is the booking payload for the TransportInstruction API.
// POST /transportinstructionapi/v1/transportinstruction/sendtransportinstruction
//
// Field shapes verified against the DHL sandbox:
//   - parties[].address is a nested object (street, cityName, postalCode, countryCode)
//   - references is a plain string array, never null
//   - additionalServices is an object with bool values, e.g. {"notification": true}
//   - pieces[].id is a string array, [""] on create
type TransportInstruction struct {
	ID                  string          `json:"id"` // Empty on create, assigned by DHL
	ProductCode         string          `json:"productCode"`
	ShippingDate        string          `json:"shippingDate"` // YYYY-MM-DD
	DeliveryInstruction string          `json:"deliveryInstruction"`
	PickupInstruction   string          `json:"pickupInstruction"`
	TotalNumberOfPieces int             `json:"totalNumberOfPieces"`
	TotalWeight         float64         `json:"totalWeight"`
	TotalVolume         float64         `json:"totalVolume"`
	PayerCode           PayerCode       `json:"payerCode"`
	Parties             []Party         `json:"parties"`
	AdditionalServices  map[string]bool `json:"additionalServices"`
	Pieces              []Piece         `json:"pieces"`
}

// PayerCode identifies who pays the freight. Code "1" is the consignor.
type PayerCode struct {
	Code     string `json:"code"`
	Location string `json:"location"`
}

// Party is the consignor or consignee of a transport instruction.
type Party struct {
	ID         string   `json:"id,omitempty"` // DHL customer number, consignor only
	Type       string   `json:"type"`         // "Consignor" or "Consignee"
	Name       string   `json:"name"`
	References []string `json:"references"`
	Address    Address  `json:"address"`
	Phone      string   `json:"phone"`
	Email      string   `json:"email"`
}

// Address is the nested address object used by parties and service points.
type Address struct {
	Street      string `json:"street"`
	CityName    string `json:"cityName"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
}

// Piece is a single package line in a transport instruction.
type Piece struct {
	ID             []string `json:"id"`
	PackageType    string   `json:"packageType"`
	NumberOfPieces int      `json:"numberOfPieces"`
	Weight         float64  `json:"weight"` // kg
	Volume         float64  `json:"volume"` // m3
	Length         float64  `json:"length,omitempty"`
	Width          float64  `json:"width,omitempty"`
	Height         float64  `json:"height,omitempty"`
}

// TransportInstructionResponse is the booking response. Depending on the
// gateway version the created instruction arrives nested beside a status
// field or as the top-level object itself.
type TransportInstructionResponse struct {
	Status               string          `json:"status"`
	TransportInstruction json.RawMessage `json:"transportInstruction"`

	// Raw is the unparsed response body. The Print API wants the created
	// instruction re-sent verbatim, so the exact bytes are kept around.
	Raw json.RawMessage `json:"-"`
}

// Instruction returns the created transport-instruction document:
// the nested object when the response is wrapped, otherwise the full body.
func (r *TransportInstructionResponse) Instruction() json.RawMessage {
	if len(r.TransportInstruction) > 0 && string(r.TransportInstruction) != "null" {
		return r.TransportInstruction
	}
	return r.Raw
}

// instructionDoc is the subset of a returned instruction the client reads
// back. IDs arrive as JSON numbers or strings depending on the endpoint
// version, hence json.RawMessage.
type instructionDoc struct {
	ID     json.RawMessage    `json:"id"`
	Pieces []instructionPiece `json:"pieces"`
}

type instructionPiece struct {
	ID        json.RawMessage `json:"id"`
	BarcodeID string          `json:"barcodeId"`
}

// PrintRequest generates documents from full shipment data.
// POST /printapi/v1/print/printdocuments
type PrintRequest struct {
	Shipment json.RawMessage `json:"shipment"` // Transport instruction exactly as returned by booking
	Options  PrintOptions    `json:"options"`
}

// PrintByIDRequest generates documents for a previously booked shipment.
// POST /printapi/v1/print/printdocumentsbyid
type PrintByIDRequest struct {
	TransportInstructionID string       `json:"transportInstructionId"`
	Options                PrintOptions `json:"options"`
}

// PrintOptions selects which documents to generate.
type PrintOptions struct {
	Label        bool `json:"label,omitempty"`
	ShipmentList bool `json:"shipmentList,omitempty"`
}

// PrintResponse carries a raw Print API response. The API answers with
// JSON reports on the happy path but has been observed returning PDF
// bytes directly, so the content type travels with the body.
type PrintResponse struct {
	ContentType string
	Body        []byte
}

// printReportsEnvelope is the JSON form of a Print API response.
type printReportsEnvelope struct {
	Reports []printReport `json:"reports"`
}

// printReport is a single generated document.
type printReport struct {
	Name        string `json:"name"`
	Content     string `json:"content"` // Base64-encoded document data
	ContentType string `json:"contentType"`
	Type        string `json:"type"` // "Label", "ShipmentList", ...
	Valid       bool   `json:"valid"`
}

// ServicePointsResponse is the ServicePointLocator API response.
// GET /servicepointlocatorapi/v1/servicepoint/findnearestservicepoints
type ServicePointsResponse struct {
	ServicePoints []ServicePointInfo `json:"servicePoints"`
}

// ServicePointInfo describes a single DHL service point.
type ServicePointInfo struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address Address `json:"address"`
}

// PickupRequest books a pickup for a created shipment.
// POST /pickuprequestapi/v1/pickuprequest/pickuprequest
type PickupRequest struct {
	TransportInstructionID string `json:"transportInstructionId"`
	PickupDate             string `json:"pickupDate"` // YYYY-MM-DD
}

// PickupResponse is the pickup booking confirmation.
type PickupResponse struct {
	ConfirmationID string `json:"confirmationId,omitempty"`
	Status         string `json:"status,omitempty"`
}
