package app

import (
	"net"
	"net/http"
	"time"
)

// newBrowserHTTPClient returns the HTTP client shared by the page fetcher.
// Pooling is tuned for a handful of job boards hit repeatedly rather than a
// broad crawl: generous per-host keep-alives, HTTP/2 where offered. The
// client-level timeout is a backstop; per-request deadlines come from the
// fetcher's own context.
func newBrowserHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout + 5*time.Second,
	}
}
