// Package fetch retrieves job-posting pages over HTTP with browser-like
// headers and converts the transport result into the typed FetchOutcome the
// orchestrator consumes. Nothing in here raises past the package boundary:
// timeouts, hostile status codes and blocked pages all come back as data.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"

	"github.com/applypilot/jobextract/internal/cache"
	"github.com/applypilot/jobextract/internal/detect"
	"github.com/applypilot/jobextract/internal/posting"
)

// DefaultTimeout bounds a single page fetch end to end.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is a current Chrome desktop identity. Job boards serve
// heavily degraded pages to anything that looks like a script.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

const defaultMaxBodyBytes = 10 << 20

// Client wraps http.Client with browser headers, a per-fetch timeout, bounded
// retry on transient transport errors, and an optional on-disk response cache.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxAttempts includes the initial attempt. Minimum 1. Timeouts are never
	// retried; the caller wants its answer inside one timeout window.
	MaxAttempts int

	// RedirectMaxHops caps redirect following to avoid loops. Zero means
	// default (5).
	RedirectMaxHops int

	// MaxBodyBytes caps how much of a response body is read. Zero means 10MB.
	MaxBodyBytes int64

	// Optional on-disk cache for bodies and revalidation headers.
	Cache *cache.HTTPCache
	// If true, skip conditional headers and fetch fresh, but still save the
	// latest response to cache.
	BypassCache bool

	// Limiter, when set, smooths the request rate per host.
	Limiter *HostLimiter

	// MaxConcurrent limits concurrent in-flight requests per client instance.
	// Zero means unlimited.
	MaxConcurrent int

	sem     chan struct{}
	semOnce sync.Once
}

// Fetch retrieves rawURL and classifies the result per the pipeline contract:
// 2xx bodies come back with a CAPTCHA assessment, the hostile trio 403/429/503
// gets a content-rescue pass before being declared blocked, and everything
// else is a typed error string. The site family matters only on hostile
// statuses: a known job board answering with a hostile code and no content is
// assumed to want human verification.
func (c *Client) Fetch(ctx context.Context, rawURL string, site posting.Source) posting.FetchOutcome {
	body, contentType, status, err := c.get(ctx, rawURL)
	if err != nil {
		if isTimeoutErr(err) {
			return posting.FetchOutcome{Err: "Request timeout"}
		}
		return posting.FetchOutcome{Err: err.Error()}
	}
	markup := decodeBody(body, contentType)
	switch {
	case status >= 200 && status < 300:
		return posting.FetchOutcome{
			HTML:            markup,
			CaptchaDetected: detect.CaptchaBlocked(markup),
			Status:          status,
		}
	case status == http.StatusForbidden || status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
		if detect.HasJobContent(markup) {
			// The block was already satisfied upstream; the body is usable.
			log.Debug().Str("url", rawURL).Int("status", status).
				Msg("hostile status but body carries job content, keeping it")
			return posting.FetchOutcome{HTML: markup, Status: status}
		}
		if detect.CaptchaBlocked(markup) || site != posting.SourceGeneric {
			return posting.FetchOutcome{CaptchaDetected: true, Status: status}
		}
		return posting.FetchOutcome{Err: fmt.Sprintf("HTTP error: %d", status), Status: status}
	default:
		return posting.FetchOutcome{Err: fmt.Sprintf("HTTP error: %d", status), Status: status}
	}
}

// get issues the GET with conditional revalidation against the cache and
// bounded retry for transient transport errors. It returns the raw body and
// status; non-2xx statuses are data here, not errors, because the hostile
// status codes still need their bodies inspected.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, string, int, error) {
	var etag, lastMod, cachedCT string
	if c.Cache != nil && !c.BypassCache {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
			cachedCT = meta.ContentType
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		body, ct, newETag, newLastMod, status, err := c.tryOnce(ctx, rawURL, etag, lastMod)
		if err == nil {
			if status == http.StatusNotModified && c.Cache != nil {
				cached, cerr := c.Cache.LoadBody(ctx, rawURL)
				if cerr == nil {
					// 304 responses routinely omit Content-Type.
					if ct == "" {
						ct = cachedCT
					}
					return cached, ct, http.StatusOK, nil
				}
				// Revalidated but the cached body is gone; refetch fresh.
				etag, lastMod = "", ""
				lastErr = errors.New("revalidated without cached body")
				continue
			}
			if c.Cache != nil && status == http.StatusOK {
				_ = c.Cache.Save(ctx, rawURL, ct, newETag, newLastMod, body)
			}
			return body, ct, status, nil
		}
		lastErr = err
		if isTimeoutErr(err) || !isTransient(err) || i == attempts-1 {
			return nil, "", 0, err
		}
		time.Sleep(time.Duration(i+1) * 200 * time.Millisecond)
	}
	return nil, "", 0, lastErr
}

func (c *Client) tryOnce(ctx context.Context, rawURL, etag, lastMod string) (body []byte, ct, newETag, newLastMod string, status int, err error) {
	c.acquire()
	defer c.release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", "", "", 0, fmt.Errorf("new request: %w", err)
	}
	if req.URL == nil || !isHTTPScheme(req.URL) {
		return nil, "", "", "", 0, fmt.Errorf("unsupported URL scheme: %q", req.URL.Scheme)
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx, req.URL.Hostname()); err != nil {
			return nil, "", "", "", 0, fmt.Errorf("rate limit: %w", err)
		}
	}
	c.setBrowserHeaders(req)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rctx, cancel := context.WithTimeout(req.Context(), timeout)
	defer cancel()
	req = req.WithContext(rctx)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, "", "", "", 0, err
	}
	defer resp.Body.Close()

	ct = resp.Header.Get("Content-Type")
	if resp.StatusCode == http.StatusNotModified {
		return nil, ct, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), resp.StatusCode, nil
	}
	// The content-type gate applies to success responses only; hostile-status
	// bodies are read regardless so the rescue pass can inspect them.
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && !isHTMLContentType(ct) {
		return nil, "", "", "", resp.StatusCode, fmt.Errorf("unsupported content type: %s", ct)
	}
	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body, err = io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, "", "", "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, ct, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), resp.StatusCode, nil
}

func (c *Client) setBrowserHeaders(req *http.Request) {
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client.
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

// decodeBody converts the raw bytes to UTF-8 using the charset from the
// Content-Type header or the document's own meta declaration. Undecodable
// input falls back to a raw byte-for-byte string.
func decodeBody(body []byte, contentType string) string {
	if len(body) == 0 {
		return ""
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout exceeded")
}

func isTransient(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset")
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" {
		// Some career sites omit the header; sniffing happens at decode.
		return true
	}
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.semOnce.Do(func() {
		c.sem = make(chan struct{}, c.MaxConcurrent)
	})
	c.sem <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.sem == nil {
		return
	}
	select {
	case <-c.sem:
	default:
	}
}
