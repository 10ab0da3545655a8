package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPOptions controls the outbound HTTP policy shared by all gateways.
type HTTPOptions struct {
	// Timeout bounds a single attempt, including reading the response body.
	Timeout time.Duration
	// RetryMax is the number of retries after the first attempt.
	RetryMax int
	Logger   *slog.Logger
}

// NewHTTPClient returns a client that retries connection errors and 5xx responses
// up to opts.RetryMax times and never retries a 4xx.
func NewHTTPClient(opts HTTPOptions, base http.RoundTripper) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.CheckRetry = retryPolicy
	// Hand the last response back to the caller so SDKs can decode provider errors.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	if opts.Logger != nil {
		rc.Logger = opts.Logger
	}
	if base == nil {
		base = http.DefaultTransport
	}
	rc.HTTPClient = &http.Client{Timeout: opts.Timeout, Transport: base}
	return rc.StandardClient()
}

func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil && resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// headerTransport sets fixed headers on every outgoing request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
