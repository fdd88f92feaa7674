package app

import (
	"net/http"
	"reflect"
	"testing"
	"time"
)

func TestNewBrowserHTTPClientConfig(t *testing.T) {
	c := newBrowserHTTPClient(10 * time.Second)
	if c.Timeout <= 10*time.Second {
		t.Fatalf("client timeout %v should exceed the per-request deadline", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected http.Transport")
	}
	if tr.MaxIdleConnsPerHost <= 2 {
		t.Fatalf("expected a keep-alive pool per host, got %d", tr.MaxIdleConnsPerHost)
	}
	if !tr.ForceAttemptHTTP2 {
		t.Fatalf("expected HTTP/2 enabled")
	}
	// Ensure we didn't return the default client's transport
	if reflect.ValueOf(http.DefaultTransport).Pointer() == reflect.ValueOf(tr).Pointer() {
		t.Fatalf("transport should not be default")
	}
}
