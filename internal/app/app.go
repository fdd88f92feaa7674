// Package app wires the extraction pipeline together: site classification,
// fetching, block detection, the structured and heuristic passes, the
// model-assisted fallback, the result store and the quota webhook.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/applypilot/jobextract/internal/cache"
	"github.com/applypilot/jobextract/internal/classify"
	"github.com/applypilot/jobextract/internal/detect"
	"github.com/applypilot/jobextract/internal/fetch"
	"github.com/applypilot/jobextract/internal/llm"
	"github.com/applypilot/jobextract/internal/notify"
	"github.com/applypilot/jobextract/internal/posting"
	"github.com/applypilot/jobextract/internal/sites"
	"github.com/applypilot/jobextract/internal/store"
)

// Request carries one extraction job. HTML is optional: when the caller
// already has the page markup (for example copied from a logged-in browser
// session) the pipeline uses it verbatim and skips the network fetch.
type Request struct {
	URL       string `json:"url"`
	HTML      string `json:"html,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// Response is the wire-level extraction result. Field values are never
// empty strings except hiring_manager; absent fields carry the
// "Not specified" placeholder instead.
type Response struct {
	Success          bool   `json:"success"`
	URL              string `json:"url"`
	Company          string `json:"company"`
	JobTitle         string `json:"job_title"`
	FullDescription  string `json:"full_description"`
	HiringManager    string `json:"hiring_manager"`
	AdSource         string `json:"ad_source"`
	ExtractionMethod string `json:"extractionMethod"`
	Message          string `json:"message,omitempty"`
}

// User-facing messages for the known failure shapes. Kept as constants so
// the HTTP layer and the CLI report blocks identically.
const (
	msgInvalidURL = "Invalid URL: only http and https job posting links are supported"

	msgCaptcha = "This site is asking for human verification. Open the posting in your browser, " +
		"complete the check, then retry - or paste the job description manually."

	msgLoginWall = "LinkedIn requires sign-in to view this posting. Paste the job description manually, " +
		"or supply the page HTML from a logged-in browser session."

	msgInsufficient = "Could not extract enough job data. The page may not be a valid job posting, " +
		"or its structure has changed."

	msgQuota = "AI-assisted extraction is temporarily unavailable: the model quota is exhausted. " +
		"The account owner has been notified."
)

// errModelUnavailable marks extractions attempted without a configured
// model. Distinct from ErrQuotaExceeded: no webhook fires for it.
var errModelUnavailable = errors.New("model extractor not configured")

type App struct {
	cfg Config

	fetcher   *fetch.Client
	extractor *llm.Extractor
	results   *store.Store
	webhook   *notify.Webhook
}

func New(cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = DefaultLLMTimeout
	}
	if cfg.StoreTTL <= 0 {
		cfg.StoreTTL = DefaultStoreTTL
	}

	a := &App{cfg: cfg}

	a.fetcher = &fetch.Client{
		HTTPClient: newBrowserHTTPClient(cfg.FetchTimeout),
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.FetchTimeout,
	}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			_ = cache.ClearDir(cfg.CacheDir)
		}
		if cfg.CacheMaxAge > 0 {
			_, _ = cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge)
		}
		a.fetcher.Cache = &cache.HTTPCache{Dir: cfg.CacheDir}
		a.fetcher.BypassCache = cfg.BypassCache
	}
	if cfg.HostRPS > 0 {
		burst := cfg.HostBurst
		if burst <= 0 {
			burst = 1
		}
		a.fetcher.Limiter = fetch.NewHostLimiter(cfg.HostRPS, burst)
	}

	// The model is optional. Without one the pipeline still runs the
	// structured and heuristic passes and reports the model pass as
	// unavailable.
	if strings.TrimSpace(cfg.LLMModel) != "" {
		provider := llm.NewOpenAI(cfg.LLMBaseURL, cfg.LLMAPIKey)
		a.extractor = &llm.Extractor{
			Client:      provider,
			Model:       cfg.LLMModel,
			CallTimeout: cfg.LLMTimeout,
			MaxTokens:   cfg.LLMMaxTokens,
		}
	} else {
		log.Warn().Msg("no model configured; extraction limited to structured data and heuristics")
	}

	if cfg.StorePath != "" {
		st, err := store.Open(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("open result store: %w", err)
		}
		a.results = st
	}

	if cfg.WebhookURL != "" {
		a.webhook = &notify.Webhook{URL: cfg.WebhookURL, Secret: cfg.WebhookSecret}
	}

	return a, nil
}

func (a *App) Close() error {
	if a.results != nil {
		return a.results.Close()
	}
	return nil
}

// ExtractJob runs the full pipeline for one posting and always returns a
// well-formed Response; failures are reported in-band through Success,
// ExtractionMethod and Message. Safe for concurrent use.
func (a *App) ExtractJob(ctx context.Context, req Request) Response {
	rawURL := strings.TrimSpace(req.URL)
	src := classify.Site(rawURL)

	log.Debug().Str("url", rawURL).Str("source", string(src)).Msg("extraction started")

	// 1) Validate the scheme before any network or store activity.
	if !isSupportedURL(rawURL) {
		return failureResponse(rawURL, src, posting.MethodError, msgInvalidURL)
	}
	canonical := classify.CanonicalURL(rawURL)

	// 2) Reuse a fresh stored success. Caller-supplied markup always
	// re-extracts: the caller went out of their way to provide it.
	if a.results != nil && req.HTML == "" {
		if rec, err := a.results.Get(ctx, canonical); err == nil && rec.Success && a.fresh(rec) {
			log.Debug().Str("url", rawURL).Msg("serving stored extraction")
			return responseFromRecord(rec, rawURL)
		}
	}

	// 3) Acquire markup: caller-supplied or fetched.
	markup := req.HTML
	fetched := markup == ""
	if fetched {
		outcome := a.fetcher.Fetch(ctx, rawURL, src)
		if outcome.CaptchaDetected {
			return a.persist(ctx, canonical, failureResponse(rawURL, src, posting.MethodCaptcha, msgCaptcha))
		}
		if !outcome.OK() {
			return a.persist(ctx, canonical, failureResponse(rawURL, src, posting.MethodError, outcome.Err))
		}
		markup = outcome.HTML
	}

	// 4) A fetched LinkedIn page may be the sign-in shell rather than the
	// posting. Checked before any model call. Caller-supplied markup skips
	// the check: a user pasting from a logged-in session sees the real page.
	if fetched && src == posting.SourceLinkedIn && detect.LinkedInLoginWall(markup) {
		return a.persist(ctx, canonical, failureResponse(rawURL, src, posting.MethodLoginWall, msgLoginWall))
	}

	// 5) Structured data and site heuristics. Complete results return
	// without touching the model.
	var heuristic posting.Extraction
	if !a.cfg.ModelFirst {
		heuristic = sites.For(src).Parse(markup, rawURL)
		if heuristic.Complete {
			log.Debug().Str("url", rawURL).Str("method", heuristic.Method).Msg("extraction complete without model")
			return a.persist(ctx, canonical, a.buildResponse(rawURL, src, heuristic))
		}
		log.Debug().Str("url", rawURL).Str("method", heuristic.Method).Msg("heuristics incomplete, trying model")
	}

	// 6) Model-assisted fallback, merged over whatever the cheap passes
	// found.
	modelExt, err := a.modelExtract(ctx, markup, src)
	switch {
	case err == nil:
		final := modelExt
		if !a.cfg.ModelFirst {
			final = posting.Merge(heuristic, modelExt)
		}
		return a.persist(ctx, canonical, a.buildResponse(rawURL, src, final))
	case errors.Is(err, llm.ErrQuotaExceeded):
		log.Warn().Str("url", rawURL).Msg("model quota exhausted")
		a.notifyQuota(ctx, req)
		return a.persist(ctx, canonical, a.degradedResponse(rawURL, src, heuristic, msgQuota))
	case errors.Is(err, errModelUnavailable):
		return a.persist(ctx, canonical, a.degradedResponse(rawURL, src, heuristic, ""))
	default:
		log.Warn().Err(err).Str("url", rawURL).Msg("model extraction failed")
		return a.persist(ctx, canonical, a.degradedResponse(rawURL, src, heuristic, ""))
	}
}

// PurgeStale deletes stored results older than the configured TTL and
// reports how many rows were removed.
func (a *App) PurgeStale(ctx context.Context) (int64, error) {
	if a.results == nil {
		return 0, nil
	}
	return a.results.Purge(ctx, time.Now().Add(-a.cfg.StoreTTL))
}

func (a *App) modelExtract(ctx context.Context, markup string, src posting.Source) (posting.Extraction, error) {
	if a.extractor == nil {
		return posting.Extraction{}, errModelUnavailable
	}
	// The model receives flattened text rather than raw markup so the
	// input byte cap is spent on content instead of tags.
	return a.extractor.Extract(ctx, sites.FlattenHTML(markup), src)
}

// degradedResponse reports what the cheap passes managed when the model
// pass could not run. Partial heuristic fields are kept under their own
// provenance tag; a non-empty reason overrides the generic
// insufficient-data message.
func (a *App) degradedResponse(rawURL string, src posting.Source, heuristic posting.Extraction, reason string) Response {
	if !heuristic.HasAnyData() {
		heuristic = posting.Extraction{AdSource: src, Method: posting.MethodModelUnavailable}
	}
	resp := a.buildResponse(rawURL, src, heuristic)
	if reason != "" {
		resp.Message = reason
	}
	return resp
}

func (a *App) buildResponse(rawURL string, src posting.Source, e posting.Extraction) Response {
	e = e.Finalize()
	resp := Response{
		Success:          e.Complete,
		URL:              rawURL,
		Company:          e.Company,
		JobTitle:         e.JobTitle,
		FullDescription:  e.JobDescription,
		HiringManager:    e.HiringManager,
		AdSource:         string(src),
		ExtractionMethod: e.Method,
	}
	if !resp.Success {
		resp.Message = msgInsufficient
	}
	return resp
}

// persist stores the outcome under the canonical URL. Failures are kept
// too, for inspection; only successes are ever served back from the store.
func (a *App) persist(ctx context.Context, canonical string, resp Response) Response {
	if a.results == nil {
		return resp
	}
	rec := store.Record{
		CanonicalURL:   canonical,
		URL:            resp.URL,
		Company:        resp.Company,
		JobTitle:       resp.JobTitle,
		JobDescription: resp.FullDescription,
		HiringManager:  resp.HiringManager,
		AdSource:       posting.Source(resp.AdSource),
		Method:         resp.ExtractionMethod,
		Success:        resp.Success,
		Message:        resp.Message,
	}
	if err := a.results.Put(ctx, rec); err != nil {
		log.Warn().Err(err).Str("url", resp.URL).Msg("store write failed")
	}
	return resp
}

func (a *App) fresh(rec *store.Record) bool {
	return time.Since(rec.UpdatedAt) < a.cfg.StoreTTL
}

// notifyQuota fires the quota webhook without holding up the response.
// Delivery is bounded by the webhook's own timeout, so the goroutine
// cannot outlive it.
func (a *App) notifyQuota(ctx context.Context, req Request) {
	if !a.webhook.Enabled() {
		return
	}
	ev := notify.QuotaEvent{
		URL:       req.URL,
		UserID:    req.UserID,
		UserEmail: req.UserEmail,
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := a.webhook.QuotaExceeded(detached, ev); err != nil {
			log.Warn().Err(err).Msg("quota webhook delivery failed")
		}
	}()
}

func failureResponse(rawURL string, src posting.Source, method, message string) Response {
	e := posting.Extraction{AdSource: src, Method: method}.Finalize()
	return Response{
		Success:          false,
		URL:              rawURL,
		Company:          e.Company,
		JobTitle:         e.JobTitle,
		FullDescription:  e.JobDescription,
		HiringManager:    e.HiringManager,
		AdSource:         string(src),
		ExtractionMethod: method,
		Message:          message,
	}
}

func responseFromRecord(rec *store.Record, rawURL string) Response {
	return Response{
		Success:          rec.Success,
		URL:              rawURL,
		Company:          rec.Company,
		JobTitle:         rec.JobTitle,
		FullDescription:  rec.JobDescription,
		HiringManager:    rec.HiringManager,
		AdSource:         string(rec.AdSource),
		ExtractionMethod: rec.Method,
		Message:          rec.Message,
	}
}

func isSupportedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
