package carrier

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPClientConfig bounds outbound HTTP behavior for carrier API clients.
type HTTPClientConfig struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// NewHTTPClient builds the retrying HTTP client shared by carrier API
// clients. Retries cover transient transport errors and the transient
// status codes 429, 502, 503 and 504 with exponential backoff; 500 is
// terminal because the carrier APIs return it for validation failures
// a retry cannot fix. Only GET and POST are issued through this
// client, so request bodies are safe to replay.
func NewHTTPClient(cfg HTTPClientConfig) *http.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = time.Second
	}
	if cfg.RetryWaitMax <= 0 {
		cfg.RetryWaitMax = 30 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.Logger = nil
	rc.CheckRetry = checkRetry
	// Per-attempt timeout; the retry schedule bounds the total.
	rc.HTTPClient.Timeout = cfg.Timeout

	return rc.StandardClient()
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		// The default policy knows which transport errors are permanent
		// (TLS verification, too many redirects, invalid scheme).
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return RetryableStatus(resp.StatusCode), nil
}

var retryStatusCodes = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// RetryableStatus reports whether an HTTP status code is transient.
func RetryableStatus(code int) bool {
	return retryStatusCodes[code]
}
