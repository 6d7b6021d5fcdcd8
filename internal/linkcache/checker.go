package linkcache

import (
	"context"
	"net/http"
	"time"
)

// Checker performs one outbound verification of a candidate URL and
// reports the HTTP status. A transport-level failure (timeout, refused
// connection, DNS) comes back as an error; the cache records it as a
// short-lived Invalid verdict rather than propagating it.
type Checker interface {
	Check(ctx context.Context, rawURL string) (int, error)
}

// HTTPChecker issues a plain GET with browser-like headers. Upstream
// image hosts reject bare requests, so the headers matter.
type HTTPChecker struct {
	Client    *http.Client
	UserAgent string
	Referer   string
	Timeout   time.Duration
}

func NewHTTPChecker(userAgent, referer string, timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
		Referer:   referer,
		Timeout:   timeout,
	}
}

func (c *HTTPChecker) Check(ctx context.Context, rawURL string) (int, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8")
	if c.Referer != "" {
		req.Header.Set("Referer", c.Referer)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
