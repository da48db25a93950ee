// Package dhl provides integration with the DHL Freight APIs:
// TransportInstruction for booking, Print for documents,
// ServicePointLocator for parcel shops and PickupRequest for pickups.
package dhl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/felixwingard/garp-shipping-connector/pkg/carrier"
	"github.com/felixwingard/garp-shipping-connector/pkg/garp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "DHL"

// instructionCacheLimit bounds the per-client booking cache.
const instructionCacheLimit = 512

// addonMapping translates addon tokens from export files to
// additionalServices codes. The selected code is sent as {"<code>": true}.
// Unknown tokens pass through unchanged.
var addonMapping = map[string]string{
	"AVIS":                 "notification",
	"notification":         "notification",
	"preAdviceDelivery":    "preAdviceDelivery",
	"tailLiftUnloading":    "tailLiftUnloading",
	"tailLiftLoading":      "tailLiftLoading",
	"indoorDelivery":       "indoorDelivery",
	"dangerousGoods":       "dangerousGoods",
	"insurance":            "insurance",
	"collectionAtTerminal": "collectionAtTerminal",
	"nonStackable":         "nonStackable",
}

// packageTypeDefaults maps product codes to their default package type.
// Product 210 (pallet) books as 701, the EUR pallet. Everything else
// falls back to PKT, the standard parcel.
var packageTypeDefaults = map[string]string{
	"210": "701",
}

// Config holds DHL configuration.
type Config struct {
	APIKey         string
	BaseURL        string
	CustomerNumber string // consignor party id on bookings
	Sender         carrier.Sender
	UseMock        bool // When true, uses mock API client
	HTTP           carrier.HTTPClientConfig
}

// Client is the DHL Freight carrier client.
// It implements the carrier.Carrier interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer

	// cache keeps booked instruction documents around because the
	// Print API's preferred endpoint wants the full document re-sent.
	cache *instructionCache
}

// New creates a new DHL client.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			HTTP:    cfg.HTTP,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
		cache:     newInstructionCache(instructionCacheLimit),
	}
}

// NewWithAPIClient creates a new DHL client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
		cache:     newInstructionCache(instructionCacheLimit),
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// CreateShipment books a shipment via the TransportInstruction API.
// The returned instruction document is cached for label printing.
func (c *Client) CreateShipment(ctx context.Context, shipment *garp.Shipment) (*carrier.CreateResult, error) {
	if shipment == nil || shipment.Receiver == nil || shipment.Service == nil {
		return nil, carrier.NewCarrierError(carrierName, "INVALID_SHIPMENT", "shipment has no receiver or service").
			WithCause(carrier.ErrInvalidShipment)
	}

	c.logger.Info("Creating DHL shipment",
		zap.String("order_no", shipment.OrderNo),
		zap.String("product_code", shipment.Service.ProductCode),
	)

	req := c.buildTransportInstruction(shipment)

	apiResp, err := c.apiClient.SendTransportInstruction(ctx, req)
	if err != nil {
		c.logger.Error("DHL API error", zap.Error(err))
		return nil, err
	}

	instruction := apiResp.Instruction()

	var doc instructionDoc
	if err := json.Unmarshal(instruction, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode transport instruction: %w", err)
	}

	shipmentID := rawToString(doc.ID)
	tracking := extractTracking(doc.Pieces)

	c.cache.put(shipmentID, instruction)

	c.logger.Info("DHL shipment created",
		zap.String("order_no", shipment.OrderNo),
		zap.String("shipment_id", shipmentID),
		zap.String("tracking_number", tracking),
	)

	return &carrier.CreateResult{
		ShipmentID:     shipmentID,
		TrackingNumber: tracking,
	}, nil
}

// GetLabel retrieves the shipping label. The Print API always renders
// PDF; format is accepted for interface compatibility and ignored.
//
// Retrieval is two-tiered: printdocuments with the cached instruction
// document first, printdocumentsbyid as fallback.
func (c *Client) GetLabel(ctx context.Context, shipmentID, format string) ([]byte, error) {
	c.logger.Info("Fetching DHL label", zap.String("shipment_id", shipmentID))

	var lastErr error

	if instruction, ok := c.cache.get(shipmentID); ok {
		resp, err := c.apiClient.PrintDocuments(ctx, &PrintRequest{
			Shipment: instruction,
			Options:  PrintOptions{Label: true},
		})
		if err == nil {
			label, extractErr := c.extractLabel(resp, "printdocuments")
			if extractErr == nil {
				return label, nil
			}
			err = extractErr
		}
		lastErr = err
		c.logger.Warn("DHL printdocuments failed, trying printdocumentsbyid",
			zap.String("shipment_id", shipmentID),
			zap.Error(err),
		)
	}

	resp, err := c.apiClient.PrintDocumentsByID(ctx, &PrintByIDRequest{
		TransportInstructionID: shipmentID,
		Options:                PrintOptions{Label: true},
	})
	if err == nil {
		label, extractErr := c.extractLabel(resp, "printdocumentsbyid")
		if extractErr == nil {
			return label, nil
		}
		err = extractErr
	}
	lastErr = err

	c.logger.Error("DHL label unavailable",
		zap.String("shipment_id", shipmentID),
		zap.Error(lastErr),
	)

	return nil, carrier.NewCarrierError(carrierName, "LABEL_UNAVAILABLE",
		fmt.Sprintf("shipment %s: printdocuments and printdocumentsbyid both failed: %v", shipmentID, lastErr)).
		WithCause(carrier.ErrLabelUnavailable)
}

// GetShipmentList fetches the shipment list document for products that
// provide one. Absence is a normal condition: a cache miss, a missing
// report or a print failure all return (nil, nil).
func (c *Client) GetShipmentList(ctx context.Context, shipmentID string) ([]byte, error) {
	instruction, ok := c.cache.get(shipmentID)
	if !ok {
		c.logger.Debug("No cached instruction for shipment list",
			zap.String("shipment_id", shipmentID),
		)
		return nil, nil
	}

	resp, err := c.apiClient.PrintDocuments(ctx, &PrintRequest{
		Shipment: instruction,
		Options:  PrintOptions{ShipmentList: true},
	})
	if err != nil {
		c.logger.Debug("No shipment list available",
			zap.String("shipment_id", shipmentID),
			zap.Error(err),
		)
		return nil, nil
	}

	doc := extractDocument(resp, "ShipmentList")
	if doc == nil {
		c.logger.Debug("No shipment list in print response",
			zap.String("shipment_id", shipmentID),
		)
		return nil, nil
	}

	c.logger.Info("DHL shipment list received",
		zap.String("shipment_id", shipmentID),
		zap.Int("bytes", len(doc)),
	)
	return doc, nil
}

// RequestPickup books a pickup for a created shipment.
func (c *Client) RequestPickup(ctx context.Context, shipmentID, pickupDate string) error {
	c.logger.Info("Booking DHL pickup",
		zap.String("shipment_id", shipmentID),
		zap.String("pickup_date", pickupDate),
	)

	_, err := c.apiClient.RequestPickup(ctx, &PickupRequest{
		TransportInstructionID: shipmentID,
		PickupDate:             pickupDate,
	})
	if err != nil {
		c.logger.Error("DHL pickup booking failed", zap.Error(err))
		return err
	}

	c.logger.Info("DHL pickup booked", zap.String("shipment_id", shipmentID))
	return nil
}

// FindServicePoints locates the nearest DHL parcel shops.
func (c *Client) FindServicePoints(ctx context.Context, postalCode, countryCode string, limit int) ([]carrier.ServicePoint, error) {
	if countryCode == "" {
		countryCode = "SE"
	}
	if limit <= 0 {
		limit = 5
	}

	apiResp, err := c.apiClient.FindServicePoints(ctx, postalCode, countryCode, limit)
	if err != nil {
		c.logger.Error("DHL service point lookup failed", zap.Error(err))
		return nil, err
	}

	points := make([]carrier.ServicePoint, len(apiResp.ServicePoints))
	for i, p := range apiResp.ServicePoints {
		points[i] = carrier.ServicePoint{
			ID:          p.ID,
			Name:        p.Name,
			Address:     p.Address.Street,
			PostalCode:  p.Address.PostalCode,
			City:        p.Address.CityName,
			CountryCode: p.Address.CountryCode,
		}
	}

	return points, nil
}

// ============================================================================
// Conversion helpers: Garp models -> API models
// ============================================================================

// buildTransportInstruction assembles the booking payload. The first
// container drives piece and total fields; a shipment without containers
// books a single default parcel.
func (c *Client) buildTransportInstruction(shipment *garp.Shipment) *TransportInstruction {
	recv := shipment.Receiver
	product := shipment.Service.ProductCode

	var container *garp.Container
	if len(shipment.Containers) > 0 {
		container = &shipment.Containers[0]
	}

	weight := 1.0
	volume := 0.001
	copies := 1
	if container != nil {
		weight = container.Weight
		volume = container.Volume
		copies = container.Copies
	}
	// The API rejects zero volume
	if volume <= 0 {
		volume = 0.001
	}

	shippingDate := time.Now().Format("2006-01-02")
	if b := shipment.Service.Booking; b != nil && b.PickupDate != "" {
		shippingDate = b.PickupDate
	}

	sender := c.config.Sender
	senderCountry := sender.CountryCode
	if senderCountry == "" {
		senderCountry = "SE"
	}

	reference := shipment.Reference
	if reference == "" {
		reference = sender.Reference
	}
	references := []string{}
	if reference != "" {
		references = []string{reference}
	}

	parties := []Party{
		{
			ID:         c.config.CustomerNumber,
			Type:       "Consignor",
			Name:       sender.Name,
			References: references,
			Address: Address{
				Street:      sender.Address,
				CityName:    sender.City,
				PostalCode:  cleanPostalCode(sender.PostalCode),
				CountryCode: senderCountry,
			},
			Phone: sender.Phone,
			Email: sender.Email,
		},
		{
			Type:       "Consignee",
			Name:       recv.Name,
			References: []string{},
			Address: Address{
				Street:      recv.Address1,
				CityName:    recv.City,
				PostalCode:  cleanPostalCode(recv.Zipcode),
				CountryCode: recv.Country,
			},
			Phone: recv.Phone,
			Email: recv.Email,
		},
	}

	var packageType string
	switch {
	case container != nil && container.PackageCode != "":
		packageType = container.PackageCode
	case packageTypeDefaults[product] != "":
		packageType = packageTypeDefaults[product]
	default:
		packageType = "PKT"
	}

	piece := Piece{
		ID:             []string{""},
		PackageType:    packageType,
		NumberOfPieces: copies,
		Weight:         weight,
		Volume:         volume,
	}
	if container != nil {
		if container.Length > 0 {
			piece.Length = container.Length
		}
		if container.Width > 0 {
			piece.Width = container.Width
		}
		if container.Height > 0 {
			piece.Height = container.Height
		}
	}

	additionalServices := map[string]bool{}
	if addon := shipment.Service.Addon; addon != "" {
		code, ok := addonMapping[addon]
		if !ok {
			code = addon
		}
		additionalServices[code] = true
	}

	return &TransportInstruction{
		ID:                  "",
		ProductCode:         product,
		ShippingDate:        shippingDate,
		DeliveryInstruction: shipment.DeliveryInstruction,
		PickupInstruction:   "",
		TotalNumberOfPieces: copies,
		TotalWeight:         weight,
		TotalVolume:         volume,
		PayerCode:           PayerCode{Code: "1", Location: ""}, // 1 = consignor pays
		Parties:             parties,
		AdditionalServices:  additionalServices,
		Pieces:              []Piece{piece},
	}
}

// cleanPostalCode strips a country prefix from a postal code. Export
// files sometimes carry codes like "DK-5220" or "NO-1234"; the API
// wants the bare code.
func cleanPostalCode(code string) string {
	cleaned := strings.TrimSpace(code)
	if len(cleaned) > 3 && cleaned[2] == '-' && isAlpha(cleaned[0]) && isAlpha(cleaned[1]) {
		return cleaned[3:]
	}
	return cleaned
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// ============================================================================
// Response extraction helpers
// ============================================================================

// extractLabel pulls the label bytes out of a Print API response.
func (c *Client) extractLabel(resp *PrintResponse, endpoint string) ([]byte, error) {
	contentType := resp.ContentType

	// Direct binary response
	if strings.Contains(contentType, "application/pdf") || strings.Contains(contentType, "application/octet-stream") {
		c.logger.Info("DHL label received",
			zap.String("endpoint", endpoint),
			zap.Int("bytes", len(resp.Body)),
		)
		return resp.Body, nil
	}

	// JSON report envelope (normal flow)
	if strings.Contains(contentType, "json") {
		var envelope printReportsEnvelope
		if err := json.Unmarshal(resp.Body, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
		}

		if len(envelope.Reports) == 0 {
			return nil, carrier.NewCarrierError(carrierName, "NO_DOCUMENTS",
				fmt.Sprintf("%s returned 200 with no reports: %s", endpoint, truncate(string(resp.Body), 200))).
				WithCause(carrier.ErrNoDocuments)
		}

		report := envelope.Reports[0]
		for _, r := range envelope.Reports {
			if r.Type == "Label" {
				report = r
				break
			}
		}

		if report.Content == "" {
			return nil, carrier.NewCarrierError(carrierName, "NO_DOCUMENTS",
				fmt.Sprintf("%s report %q has empty content", endpoint, report.Name)).
				WithCause(carrier.ErrNoDocuments)
		}

		label, err := base64.StdEncoding.DecodeString(report.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s report content: %w", endpoint, err)
		}

		c.logger.Info("DHL label received",
			zap.String("endpoint", endpoint),
			zap.Int("bytes", len(label)),
			zap.String("content_type", report.ContentType),
		)
		return label, nil
	}

	// Unknown content type, hand back the raw body
	c.logger.Warn("DHL print response has unexpected content type",
		zap.String("endpoint", endpoint),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(resp.Body)),
	)
	return resp.Body, nil
}

// extractDocument returns the decoded report with the given type, or nil
// when the response carries no such report.
func extractDocument(resp *PrintResponse, docType string) []byte {
	if !strings.Contains(resp.ContentType, "json") {
		return nil
	}

	var envelope printReportsEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil
	}

	for _, report := range envelope.Reports {
		if report.Type != docType || report.Content == "" {
			continue
		}
		doc, err := base64.StdEncoding.DecodeString(report.Content)
		if err != nil {
			continue
		}
		return doc
	}
	return nil
}

// extractTracking finds the parcel number in the returned pieces: the
// first piece id when assigned, the barcode id otherwise.
func extractTracking(pieces []instructionPiece) string {
	if len(pieces) == 0 {
		return ""
	}

	var ids []string
	if err := json.Unmarshal(pieces[0].ID, &ids); err == nil && len(ids) > 0 {
		return ids[0]
	}
	return pieces[0].BarcodeID
}

// rawToString renders a JSON scalar that arrives as either a string or
// a number.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return strings.Trim(string(raw), `"`)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// ============================================================================
// Instruction cache
// ============================================================================

// instructionCache is a bounded FIFO of booked instruction documents,
// keyed by shipment id. Entries live for the lifetime of the client;
// the oldest entry is evicted when the cap is reached.
type instructionCache struct {
	mu    sync.Mutex
	limit int
	order []string
	docs  map[string]json.RawMessage
}

func newInstructionCache(limit int) *instructionCache {
	return &instructionCache{
		limit: limit,
		docs:  make(map[string]json.RawMessage),
	}
}

func (c *instructionCache) put(id string, doc json.RawMessage) {
	if id == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = doc

	for len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.docs, oldest)
	}
}

func (c *instructionCache) get(id string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, ok := c.docs[id]
	return doc, ok
}

// Interface conformance
var (
	_ carrier.Carrier            = (*Client)(nil)
	_ carrier.DocumentLister     = (*Client)(nil)
	_ carrier.PickupBooker       = (*Client)(nil)
	_ carrier.ServicePointFinder = (*Client)(nil)
)
