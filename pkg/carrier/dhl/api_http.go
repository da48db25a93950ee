package dhl

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

// DefaultBaseURL is the DHL Freight API gateway.
const DefaultBaseURL = "https://api.freight-logistics.dhl.com"

const (
	pathTransportInstruction = "/transportinstructionapi/v1/transportinstruction/sendtransportinstruction"
	pathPrintDocuments       = "/printapi/v1/print/printdocuments"
	pathPrintDocumentsByID   = "/printapi/v1/print/printdocumentsbyid"
	pathServicePoints        = "/servicepointlocatorapi/v1/servicepoint/findnearestservicepoints"
	pathPickupRequest        = "/pickuprequestapi/v1/pickuprequest/pickuprequest"
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

// SendTransportInstruction books a shipment via the TransportInstruction API.
func (c *HTTPAPIClient) SendTransportInstruction(ctx context.Context, req *TransportInstruction) (*TransportInstructionResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, pathTransportInstruction, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transport instruction response: %w", err)
	}

	var result TransportInstructionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode transport instruction response: %w", err)
	}
	result.Raw = body

	return &result, nil
}

// PrintDocuments generates documents from full shipment data.
func (c *HTTPAPIClient) PrintDocuments(ctx context.Context, req *PrintRequest) (*PrintResponse, error) {
	return c.print(ctx, pathPrintDocuments, req)
}

// PrintDocumentsByID generates documents for an already booked shipment.
func (c *HTTPAPIClient) PrintDocumentsByID(ctx context.Context, req *PrintByIDRequest) (*PrintResponse, error) {
	return c.print(ctx, pathPrintDocumentsByID, req)
}

// print posts a document request and returns the raw response body with
// its content type. The Print API mixes JSON report envelopes and direct
// binary responses, so interpretation is left to the caller.
func (c *HTTPAPIClient) print(ctx context.Context, path string, body interface{}) (*PrintResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read print response: %w", err)
	}

	return &PrintResponse{
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// FindServicePoints locates the nearest DHL parcel shops.
func (c *HTTPAPIClient) FindServicePoints(ctx context.Context, postalCode, countryCode string, maxResults int) (*ServicePointsResponse, error) {
	params := url.Values{}
	params.Set("postalCode", postalCode)
	params.Set("countryCode", countryCode)
	params.Set("maxResults", strconv.Itoa(maxResults))

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

// RequestPickup books a pickup for a created shipment.
func (c *HTTPAPIClient) RequestPickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, pathPickupRequest, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result PickupResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode pickup response: %w", err)
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
	req.Header.Set("client-key", c.apiKey)
	req.Header.Set("User-Agent", "garp-shipping-connector/1.0")

	return c.httpClient.Do(req)
}

// parseError extracts error information from an HTTP response.
// DHL error bodies come in two flavors: an RFC 7807 style problem
// document and a plain {error, message} object. Anything else is
// surfaced raw.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	code := fmt.Sprintf("HTTP_%d", resp.StatusCode)

	msg := ""
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &problem); err == nil && problem.Title != "" {
		msg = problem.Title
		if problem.Detail != "" {
			msg = problem.Title + ": " + problem.Detail
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
