package fetcher

import (
	"time"

	"resty.dev/v3"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; pricefetch/1.0)"
)

// NewHTTPClient creates an HTTP client for a quote provider.
//
// The client never retries on its own: Fetcher owns the retry loop so that attempt
// counts and backoff delays stay observable.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", defaultUserAgent).
		SetRetryCount(0)
}
