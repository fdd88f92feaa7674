// Package notify delivers side-channel events to an operator webhook. The
// only producer today is the quota-exceeded path: extraction itself degrades
// gracefully when the model account runs dry, but someone has to find out and
// top it up, and that someone is not the user who pasted a job URL.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout bounds one webhook delivery. Deliveries are fire-and-forget
// from the pipeline's point of view; nothing waits longer than this.
const DefaultTimeout = 5 * time.Second

// QuotaEvent describes one quota refusal observed by the extractor.
type QuotaEvent struct {
	URL        string    `json:"url"`
	UserID     string    `json:"user_id,omitempty"`
	UserEmail  string    `json:"user_email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type quotaPayload struct {
	Event string `json:"event"`
	QuotaEvent
}

// Webhook posts JSON events to a configured endpoint. The zero value is a
// disabled notifier; Enabled gates every send.
type Webhook struct {
	// URL receives the POSTed events. Empty disables delivery.
	URL string

	// Secret, when set, signs each payload with HMAC-SHA256. The hex digest
	// is sent as "sha256=<hex>" in X-Signature-256 so the receiver can verify
	// origin.
	Secret string

	// Client defaults to http.DefaultClient.
	Client *http.Client

	// Timeout bounds one delivery. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Enabled reports whether a target endpoint is configured.
func (w *Webhook) Enabled() bool {
	return w != nil && w.URL != ""
}

// QuotaExceeded delivers ev to the endpoint. The caller decides whether to
// block on the result; the pipeline runs it on a detached context so a slow
// webhook never delays the user's response.
func (w *Webhook) QuotaExceeded(ctx context.Context, ev QuotaEvent) error {
	if !w.Enabled() {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(quotaPayload{Event: "quota_exceeded", QuotaEvent: ev})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.Secret != "" {
		req.Header.Set("X-Signature-256", "sha256="+signBody(w.Secret, body))
	}

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
