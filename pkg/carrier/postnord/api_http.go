package postnord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/felixwingard/garp-shipping-connector/pkg/carrier"
)

// DefaultBaseURL is the PostNord API gateway.
const DefaultBaseURL = "https://api2.postnord.com/rest"

const (
	pathBooking       = "/shipment/v3/booking"
	pathLabels        = "/shipment/v3/labels"
	pathServicePoints = "/businesslocation/v5/servicepoints/nearest"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL string
	APIKey  string
	HTTP    carrier.HTTPClientConfig
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &HTTPAPIClient{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: carrier.NewHTTPClient(cfg.HTTP),
	}
}

// CreateBooking books a shipment and renders its label in one call.
func (c *HTTPAPIClient) CreateBooking(ctx context.Context, req *BookingRequest) (*BookingResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, pathBooking, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result BookingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode booking response: %w", err)
	}

	return &result, nil
}

// GetLabel fetches the raw label bytes for a booked shipment.
func (c *HTTPAPIClient) GetLabel(ctx context.Context, shipmentID, format string) ([]byte, error) {
	if format == "" {
		format = "pdf"
	}

	params := url.Values{}
	params.Set("shipmentId", shipmentID)
	params.Set("format", strings.ToUpper(format))

	resp, err := c.doRequest(ctx, http.MethodGet, pathLabels+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	label, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read label response: %w", err)
	}

	return label, nil
}

// FindServicePoints locates the nearest PostNord service points.
// The business location API authenticates via an apikey query parameter
// in addition to the header.
func (c *HTTPAPIClient) FindServicePoints(ctx context.Context, postalCode, countryCode string, maxResults int) (*ServicePointsResponse, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("countryCode", countryCode)
	params.Set("postalCode", postalCode)
	params.Set("numberOfServicePoints", strconv.Itoa(maxResults))

	resp, err := c.doRequest(ctx, http.MethodGet, pathServicePoints+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result ServicePointsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode service points response: %w", err)
	}

	return &result, nil
}

// doRequest performs an HTTP request with proper headers.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("User-Agent", "garp-shipping-connector/1.0")

	return c.httpClient.Do(req)
}

// parseError extracts error information from an HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	code := fmt.Sprintf("HTTP_%d", resp.StatusCode)

	msg := ""
	var composite struct {
		CompositeFault struct {
			Faults []struct {
				FaultCode       string `json:"faultCode"`
				ExplanationText string `json:"explanationText"`
			} `json:"faults"`
		} `json:"compositeFault"`
	}
	if err := json.Unmarshal(body, &composite); err == nil && len(composite.CompositeFault.Faults) > 0 {
		fault := composite.CompositeFault.Faults[0]
		msg = fault.ExplanationText
		if fault.FaultCode != "" {
			code = fault.FaultCode
		}
	}

	if msg == "" {
		var simpleErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &simpleErr); err == nil {
			msg = simpleErr.Error
			if msg == "" {
				msg = simpleErr.Message
			}
		}
	}

	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	return carrier.NewCarrierError(carrierName, code, msg).
		WithStatusCode(resp.StatusCode).
		WithRetryable(carrier.RetryableStatus(resp.StatusCode))
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
