package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/applypilot/jobextract/internal/posting"
)

type fakeClient struct {
	resp    openai.ChatCompletionResponse
	err     error
	lastReq openai.ChatCompletionRequest
	calls   int
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	f.lastReq = req
	return f.resp, f.err
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestExtractMapsFields(t *testing.T) {
	fake := &fakeClient{resp: reply(`{
		"company": "Acme",
		"job_title": "Backend Engineer",
		"full_description": "Own the API surface end to end.",
		"hiring_manager": "",
		"ad_source": "indeed"
	}`)}
	x := &Extractor{Client: fake, Model: "test-model"}

	got, err := x.Extract(context.Background(), "page text", posting.SourceGeneric)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Method != posting.MethodModel {
		t.Errorf("method = %q, want %q", got.Method, posting.MethodModel)
	}
	if got.AdSource != posting.SourceGeneric {
		t.Errorf("ad source must come from the classifier, got %q", got.AdSource)
	}
	if got.Company != "Acme" || got.JobTitle != "Backend Engineer" {
		t.Errorf("fields = %+v", got)
	}
	if got.HiringManager != "" {
		t.Errorf("absent hiring manager should stay empty, got %q", got.HiringManager)
	}
	if !got.Complete {
		t.Errorf("company + description should be complete")
	}
}

func TestExtractRecoveredMethod(t *testing.T) {
	fake := &fakeClient{resp: reply(`{"company":"Acme","full_description":"The reply stops mid senten`)}
	x := &Extractor{Client: fake, Model: "test-model"}

	got, err := x.Extract(context.Background(), "page text", posting.SourceLinkedIn)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Method != posting.MethodModelRecovered {
		t.Errorf("method = %q, want %q", got.Method, posting.MethodModelRecovered)
	}
	if !strings.HasSuffix(got.JobDescription, truncatedMarker) {
		t.Errorf("description = %q", got.JobDescription)
	}
}

func TestExtractQuotaAPIError(t *testing.T) {
	fake := &fakeClient{err: &openai.APIError{
		HTTPStatusCode: 429,
		Code:           "insufficient_quota",
		Type:           "insufficient_quota",
		Message:        "You exceeded your current quota, please check your plan and billing details.",
	}}
	x := &Extractor{Client: fake, Model: "test-model"}

	_, err := x.Extract(context.Background(), "page text", posting.SourceGeneric)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestExtractQuotaStringFallback(t *testing.T) {
	fake := &fakeClient{err: errors.New("status 429: You exceeded your current quota")}
	x := &Extractor{Client: fake, Model: "test-model"}

	_, err := x.Extract(context.Background(), "page text", posting.SourceGeneric)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestExtractTransportErrorIsNotQuota(t *testing.T) {
	fake := &fakeClient{err: errors.New("dial tcp 127.0.0.1:9099: connect: connection refused")}
	x := &Extractor{Client: fake, Model: "test-model"}

	_, err := x.Extract(context.Background(), "page text", posting.SourceGeneric)
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("connection refusal misclassified as quota: %v", err)
	}
}

func TestExtractUnparseableReply(t *testing.T) {
	fake := &fakeClient{resp: reply("I could not find a job posting on this page.")}
	x := &Extractor{Client: fake, Model: "test-model"}

	if _, err := x.Extract(context.Background(), "page text", posting.SourceGeneric); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestExtractNoChoices(t *testing.T) {
	fake := &fakeClient{resp: openai.ChatCompletionResponse{}}
	x := &Extractor{Client: fake, Model: "test-model"}

	if _, err := x.Extract(context.Background(), "page text", posting.SourceGeneric); err == nil {
		t.Fatalf("expected error on empty choices")
	}
}

func TestExtractPromptContract(t *testing.T) {
	fake := &fakeClient{resp: reply(`{"company":"Acme","full_description":"d"}`)}
	x := &Extractor{Client: fake, Model: "test-model", MaxTokens: 1024}

	if _, err := x.Extract(context.Background(), "UNIQUE-PAGE-MARKER", posting.SourceIndeed); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	req := fake.lastReq
	if req.Model != "test-model" {
		t.Errorf("model = %q", req.Model)
	}
	if req.Temperature != 0.1 {
		t.Errorf("temperature = %v, want 0.1", req.Temperature)
	}
	if req.MaxTokens != 1024 {
		t.Errorf("max tokens = %d", req.MaxTokens)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("messages = %+v", req.Messages)
	}
	user := req.Messages[1].Content
	for _, want := range []string{`"full_description"`, `"hiring_manager"`, "show more", "UNIQUE-PAGE-MARKER"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
}

func TestTrimToModelInputRuneSafe(t *testing.T) {
	long := strings.Repeat("é", maxModelInputBytes) // two bytes per rune
	got := trimToModelInput(long)
	if len(got) > maxModelInputBytes {
		t.Fatalf("trimmed length %d exceeds cap", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("trim split a rune")
	}
	short := "short page"
	if trimToModelInput(short) != short {
		t.Errorf("short input must pass through unchanged")
	}
}
