// Package postnord provides integration with the PostNord Booking API.
// Booking and label rendering happen in a single call; the business
// location API serves service point lookups.
package postnord

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/felixwingard/garp-shipping-connector/pkg/carrier"
	"github.com/felixwingard/garp-shipping-connector/pkg/garp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "PN"

// Config holds PostNord configuration.
type Config struct {
	APIKey         string
	BaseURL        string
	CustomerNumber string // booking customerNumber
	Sender         carrier.Sender
	UseMock        bool // When true, uses mock API client
	HTTP           carrier.HTTPClientConfig
}

// Client is the PostNord carrier client.
// It implements the carrier.Carrier interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer

	// labels holds labels that arrived inline with a booking, keyed by
	// shipment id, so a later GetLabel needs no second API call.
	mu     sync.Mutex
	labels map[string][]byte
}

// New creates a new PostNord client.
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
		labels:    make(map[string][]byte),
	}
}

// NewWithAPIClient creates a new PostNord client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
		labels:    make(map[string][]byte),
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// CreateShipment books a shipment via the Booking API. The label
// usually arrives inline in the response; it is decoded, cached and
// returned with the result.
func (c *Client) CreateShipment(ctx context.Context, shipment *garp.Shipment) (*carrier.CreateResult, error) {
	if shipment == nil || shipment.Receiver == nil || shipment.Service == nil {
		return nil, carrier.NewCarrierError(carrierName, "INVALID_SHIPMENT", "shipment has no receiver or service").
			WithCause(carrier.ErrInvalidShipment)
	}

	c.logger.Info("Creating PostNord shipment",
		zap.String("order_no", shipment.OrderNo),
		zap.String("service_code", shipment.Service.ProductCode),
	)

	req := c.buildBookingRequest(shipment)

	apiResp, err := c.apiClient.CreateBooking(ctx, req)
	if err != nil {
		c.logger.Error("PostNord API error", zap.Error(err))
		return nil, err
	}

	if len(apiResp.Shipments) == 0 {
		return nil, carrier.NewCarrierError(carrierName, "EMPTY_RESPONSE", "booking response contained no shipments")
	}

	booked := apiResp.Shipments[0]

	tracking := ""
	var label []byte
	if len(booked.Items) > 0 {
		item := booked.Items[0]
		tracking = item.ItemID
		if item.LabelData != "" {
			label, err = base64.StdEncoding.DecodeString(item.LabelData)
			if err != nil {
				return nil, fmt.Errorf("failed to decode label data: %w", err)
			}
		}
	}

	c.storeLabel(booked.ShipmentID, label)

	c.logger.Info("PostNord shipment created",
		zap.String("order_no", shipment.OrderNo),
		zap.String("shipment_id", booked.ShipmentID),
		zap.String("tracking_number", tracking),
		zap.Int("label_bytes", len(label)),
	)

	return &carrier.CreateResult{
		ShipmentID:     booked.ShipmentID,
		TrackingNumber: tracking,
		LabelData:      label,
		LabelFormat:    "pdf",
	}, nil
}

// GetLabel returns the label for a booked shipment: the inline label
// from the booking response when one was cached, a label API call
// otherwise.
func (c *Client) GetLabel(ctx context.Context, shipmentID, format string) ([]byte, error) {
	if label, ok := c.cachedLabel(shipmentID); ok {
		c.logger.Debug("Serving PostNord label from booking response",
			zap.String("shipment_id", shipmentID),
		)
		return label, nil
	}

	c.logger.Info("Fetching PostNord label", zap.String("shipment_id", shipmentID))

	if format == "" {
		format = "pdf"
	}

	label, err := c.apiClient.GetLabel(ctx, shipmentID, format)
	if err != nil {
		c.logger.Error("PostNord label fetch failed", zap.Error(err))
		return nil, err
	}

	return label, nil
}

// FindServicePoints locates the nearest PostNord service points.
func (c *Client) FindServicePoints(ctx context.Context, postalCode, countryCode string, limit int) ([]carrier.ServicePoint, error) {
	if countryCode == "" {
		countryCode = "SE"
	}
	if limit <= 0 {
		limit = 5
	}

	apiResp, err := c.apiClient.FindServicePoints(ctx, postalCode, countryCode, limit)
	if err != nil {
		c.logger.Error("PostNord service point lookup failed", zap.Error(err))
		return nil, err
	}

	apiPoints := apiResp.ServicePointInformationResponse.ServicePoints
	points := make([]carrier.ServicePoint, len(apiPoints))
	for i, p := range apiPoints {
		points[i] = carrier.ServicePoint{
			ID:          p.ServicePointID,
			Name:        p.Name,
			Address:     joinStreet(p.VisitingAddress.StreetName, p.VisitingAddress.StreetNumber),
			PostalCode:  p.VisitingAddress.PostalCode,
			City:        p.VisitingAddress.City,
			CountryCode: p.VisitingAddress.CountryCode,
		}
	}

	return points, nil
}

// ============================================================================
// Conversion helpers: Garp models -> API models
// ============================================================================

// buildBookingRequest assembles the Booking API payload. Postal codes
// travel verbatim; PostNord accepts country-prefixed codes.
func (c *Client) buildBookingRequest(shipment *garp.Shipment) *BookingRequest {
	recv := shipment.Receiver

	var container *garp.Container
	if len(shipment.Containers) > 0 {
		container = &shipment.Containers[0]
	}

	weight := 1.0
	volume := 0.0
	copies := 1
	contents := ""
	if container != nil {
		weight = container.Weight
		volume = container.Volume
		copies = container.Copies
		contents = container.Contents
	}

	addons := []string{}
	if shipment.Service.Addon != "" {
		addons = []string{shipment.Service.Addon}
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

	return &BookingRequest{
		Shipment: BookingShipment{
			Service: BookingService{
				BasicServiceCode:      shipment.Service.ProductCode,
				AdditionalServiceCode: addons,
			},
			Parties: BookingParties{
				Sender: BookingParty{
					Name1:        sender.Name,
					AddressLine1: sender.Address,
					PostalCode:   sender.PostalCode,
					City:         sender.City,
					CountryCode:  senderCountry,
					Contact: Contact{
						EmailAddress: sender.Email,
						PhoneNo:      sender.Phone,
					},
				},
				Receiver: BookingParty{
					Name1:        recv.Name,
					AddressLine1: recv.Address1,
					AddressLine2: recv.Address2,
					PostalCode:   recv.Zipcode,
					City:         recv.City,
					CountryCode:  recv.Country,
					Contact: Contact{
						Name:         recv.Contact,
						EmailAddress: recv.Email,
						PhoneNo:      recv.Phone,
					},
				},
			},
			Parcels: []Parcel{
				{
					Weight:           Measurement{Value: weight, Unit: "kg"},
					Volume:           Measurement{Value: volume, Unit: "m3"},
					Contents:         contents,
					NumberOfPackages: copies,
				},
			},
			OrderReference: reference,
			CustomerNumber: c.config.CustomerNumber,
		},
		PrintConfig: PrintConfig{
			Target: PrintTarget{Media: "PDF"},
		},
	}
}

func joinStreet(name, number string) string {
	switch {
	case name == "":
		return number
	case number == "":
		return name
	default:
		return name + " " + number
	}
}

// ============================================================================
// Label cache
// ============================================================================

func (c *Client) storeLabel(shipmentID string, label []byte) {
	if shipmentID == "" || len(label) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.labels[shipmentID] = label
}

func (c *Client) cachedLabel(shipmentID string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	label, ok := c.labels[shipmentID]
	return label, ok
}

// Interface conformance
var (
	_ carrier.Carrier            = (*Client)(nil)
	_ carrier.ServicePointFinder = (*Client)(nil)
)
