package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/applypilot/jobextract/internal/posting"
)

// ErrQuotaExceeded reports that the model backend refused the request because
// the account's quota or billing limit is exhausted. Callers treat it as a
// distinct failure class with its own side channel.
var ErrQuotaExceeded = errors.New("model quota exceeded")

// DefaultCallTimeout bounds a single chat completion round trip.
const DefaultCallTimeout = 90 * time.Second

// maxModelInputBytes caps how much page text a single extraction request
// carries. The cap keeps requests inside context limits for OpenAI-compatible
// backends; postings long enough to hit it lose only trailing boilerplate.
const maxModelInputBytes = 150_000

const extractionSystemPrompt = "You extract structured job posting data from web page text. " +
	"Respond with a single JSON object and nothing else: no markdown fences, no commentary."

// Extractor asks a chat model for the posting fields the heuristics could
// not find. The zero value is not usable; Client and Model must be set.
type Extractor struct {
	Client Client
	Model  string

	// CallTimeout bounds each completion call. Zero means DefaultCallTimeout.
	CallTimeout time.Duration

	// MaxTokens caps the reply length when positive. Replies that hit the cap
	// are repaired by the truncation recovery in ParseModelJSON.
	MaxTokens int
}

// Extract sends the page text to the model and decodes the reply into an
// extraction result. The ad source always comes from the classifier, not the
// model; a model that mislabels the source cannot corrupt it. Quota refusals
// surface as ErrQuotaExceeded, every other failure as a plain error.
func (x *Extractor) Extract(ctx context.Context, pageText string, src posting.Source) (posting.Extraction, error) {
	if x.Client == nil {
		return posting.Extraction{}, errors.New("llm: no client configured")
	}
	timeout := x.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       x.Model,
		Temperature: 0.1,
		MaxTokens:   x.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildExtractionPrompt(pageText)},
		},
	}
	resp, err := x.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		if isQuotaErr(err) {
			return posting.Extraction{}, fmt.Errorf("chat completion: %w", ErrQuotaExceeded)
		}
		return posting.Extraction{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return posting.Extraction{}, errors.New("chat completion returned no choices")
	}

	fields, recovered, perr := ParseModelJSON(resp.Choices[0].Message.Content)
	if perr != nil {
		return posting.Extraction{}, fmt.Errorf("decode model reply: %w", perr)
	}
	method := posting.MethodModel
	if recovered {
		method = posting.MethodModelRecovered
	}
	ext := posting.Extraction{
		Company:        fieldOrEmpty(fields, "company"),
		JobTitle:       fieldOrEmpty(fields, "job_title"),
		JobDescription: fieldOrEmpty(fields, "full_description"),
		HiringManager:  fieldOrEmpty(fields, "hiring_manager"),
		AdSource:       src,
		Method:         method,
	}
	return ext.Finalize(), nil
}

func buildExtractionPrompt(pageText string) string {
	var b strings.Builder
	b.WriteString("Extract the following fields from the job posting page text below and return them as a JSON object:\n")
	b.WriteString("- \"company\": the name of the hiring company\n")
	b.WriteString("- \"job_title\": the title of the position\n")
	b.WriteString("- \"full_description\": the complete job description text\n")
	b.WriteString("- \"hiring_manager\": the hiring manager or recruiter name, if one is mentioned\n")
	b.WriteString("- \"ad_source\": one of \"linkedin\", \"indeed\", \"glassdoor\" or \"generic\"\n\n")
	b.WriteString("If the description is collapsed behind a \"show more\" control, include every part of it that appears in the text. ")
	b.WriteString("Use \"Not specified\" for any field the page does not contain.\n\n")
	b.WriteString("Page text:\n")
	b.WriteString(trimToModelInput(pageText))
	return b.String()
}

// trimToModelInput returns a prefix of s no longer than maxModelInputBytes,
// never splitting a UTF-8 rune.
func trimToModelInput(s string) string {
	if len(s) <= maxModelInputBytes {
		return s
	}
	idx := 0
	for i := range s {
		if i > maxModelInputBytes {
			break
		}
		idx = i
	}
	return s[:idx]
}

// isQuotaErr classifies quota refusals. The structured check reads the
// OpenAI error envelope; the string check catches proxies and compatible
// backends that only preserve the message text.
func isQuotaErr(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, ok := apiErr.Code.(string); ok && strings.EqualFold(code, "insufficient_quota") {
			return true
		}
		if strings.EqualFold(apiErr.Type, "insufficient_quota") {
			return true
		}
		msg := strings.ToLower(apiErr.Message)
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests &&
			(strings.Contains(msg, "quota") || strings.Contains(msg, "billing")) {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "insufficient_quota") || strings.Contains(msg, "exceeded your current quota")
}
