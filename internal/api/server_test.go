package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/applypilot/jobextract/internal/app"
	"github.com/applypilot/jobextract/internal/posting"
)

type stubExtractor struct {
	mu   sync.Mutex
	last app.Request
	resp app.Response
}

func (s *stubExtractor) ExtractJob(ctx context.Context, req app.Request) app.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = req
	return s.resp
}

func (s *stubExtractor) lastReq() app.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func newTestServer(resp app.Response) (*httptest.Server, *stubExtractor) {
	stub := &stubExtractor{resp: resp}
	srv := &Server{Extractor: stub, Version: "test"}
	return httptest.NewServer(srv.Router()), stub
}

func TestExtractEndpoint(t *testing.T) {
	want := app.Response{
		Success:          true,
		URL:              "https://www.linkedin.com/jobs/view/42",
		Company:          "Acme Robotics",
		JobTitle:         "Staff Firmware Engineer",
		FullDescription:  "Design and ship embedded control software.",
		HiringManager:    "",
		AdSource:         "linkedin",
		ExtractionMethod: posting.MethodStructured,
	}
	ts, stub := newTestServer(want)
	defer ts.Close()

	body := `{"url":"https://www.linkedin.com/jobs/view/42","user_id":"u-1"}`
	res, err := http.Post(ts.URL+"/api/extract", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}

	var got app.Response
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("response = %+v, want %+v", got, want)
	}
	if stub.lastReq().URL != "https://www.linkedin.com/jobs/view/42" || stub.lastReq().UserID != "u-1" {
		t.Fatalf("request not forwarded: %+v", stub.lastReq())
	}
}

// The response keys are a wire contract: snake_case except extractionMethod.
func TestExtractResponseKeyCasing(t *testing.T) {
	ts, _ := newTestServer(app.Response{
		Success:          false,
		URL:              "https://example.com/j/1",
		Company:          posting.NotSpecified,
		JobTitle:         posting.NotSpecified,
		FullDescription:  posting.NotSpecified,
		AdSource:         "generic",
		ExtractionMethod: posting.MethodError,
		Message:          "HTTP error: 404",
	})
	defer ts.Close()

	res, err := http.Post(ts.URL+"/api/extract", "application/json", strings.NewReader(`{"url":"https://example.com/j/1"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer res.Body.Close()

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"success", "url", "company", "job_title", "full_description", "hiring_manager", "ad_source", "extractionMethod", "message"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("missing key %q in %v", key, raw)
		}
	}
	if _, ok := raw["extraction_method"]; ok {
		t.Fatalf("extractionMethod must not be snake_cased")
	}
}

func TestExtractEndpointBadJSON(t *testing.T) {
	ts, _ := newTestServer(app.Response{})
	defer ts.Close()

	res, err := http.Post(ts.URL+"/api/extract", "application/json", strings.NewReader(`{"url":`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}

	var e apiError
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if e.Error.Code != "bad_request" {
		t.Fatalf("code = %q", e.Error.Code)
	}
	if e.Error.RequestID == "" {
		t.Fatalf("error envelope should carry the request id")
	}
}

func TestExtractEndpointMissingURL(t *testing.T) {
	ts, stub := newTestServer(app.Response{})
	defer ts.Close()

	res, err := http.Post(ts.URL+"/api/extract", "application/json", strings.NewReader(`{"html":"<html></html>"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
	if stub.lastReq().HTML != "" {
		t.Fatalf("extractor must not run without a url")
	}
}

func TestExtractEndpointMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(app.Response{})
	defer ts.Close()

	res, err := http.Get(ts.URL + "/api/extract")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", res.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(app.Response{})
	defer ts.Close()

	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Fatalf("body = %v", body)
	}
}

func TestRequestIDEchoedAndGenerated(t *testing.T) {
	ts, _ := newTestServer(app.Response{})
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set("X-Request-ID", "upstream-7")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	res.Body.Close()
	if got := res.Header.Get("X-Request-ID"); got != "upstream-7" {
		t.Fatalf("upstream id not echoed, got %q", got)
	}

	res2, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	res2.Body.Close()
	if res2.Header.Get("X-Request-ID") == "" {
		t.Fatalf("request id should be generated when absent")
	}
}
