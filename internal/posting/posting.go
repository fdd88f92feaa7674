// Package posting defines the value objects threaded through the extraction
// pipeline: the site family enum, the extraction result, and the outcome of a
// page fetch. Every pipeline stage consumes and produces these by value; a
// fresh Extraction is built per attempt and never mutated across stages.
package posting

import "strings"

// Source identifies the site family a job-posting URL belongs to. It is a
// closed enum: the classifier maps every URL to exactly one of these values,
// and the final response always carries the classifier's value regardless of
// what any later stage infers.
type Source string

const (
	SourceLinkedIn  Source = "linkedin"
	SourceIndeed    Source = "indeed"
	SourceGlassdoor Source = "glassdoor"
	SourceGeneric   Source = "generic"
)

// ParseSource maps a free-form source string (e.g. from model output) back
// onto the closed enum, defaulting to generic for anything unrecognized.
func ParseSource(s string) Source {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceLinkedIn:
		return SourceLinkedIn
	case SourceIndeed:
		return SourceIndeed
	case SourceGlassdoor:
		return SourceGlassdoor
	default:
		return SourceGeneric
	}
}

// NotSpecified is the placeholder value for a field no extractor could fill.
// The response contract uses this literal string rather than null/absent, so
// callers can render partial results without nil checks.
const NotSpecified = "Not specified"

// Provenance tags recorded in Extraction.Method. The orchestrator emits them
// unchanged as the response's extractionMethod.
const (
	MethodStructured       = "structured-jsonld"
	MethodHeuristicPrefix  = "heuristic-" // completed with the site name, e.g. "heuristic-indeed"
	MethodModel            = "model-assisted"
	MethodModelRecovered   = "model-assisted-recovered"
	MethodModelUnavailable = "model-assisted-unavailable"
	MethodCaptcha          = "captcha-required"
	MethodLoginWall        = "linkedin-login-wall"
	MethodError            = "error"
)

// HeuristicMethod returns the provenance tag for a heuristic pass over the
// given site family.
func HeuristicMethod(src Source) string {
	return MethodHeuristicPrefix + string(src)
}

// Extraction is the single result value produced by every extractor strategy.
// String fields use "" for absent; Company and JobDescription may also carry
// the NotSpecified placeholder when an extractor explicitly gave up on them.
// HiringManager is empty-string-for-absent by contract: callers must not
// distinguish "unknown" from "explicitly empty".
type Extraction struct {
	Company        string
	JobTitle       string
	JobDescription string
	HiringManager  string

	// AdSource is set from the classifier, never trusted from model output,
	// so downstream routing stays deterministic.
	AdSource Source

	// Method is the provenance tag for how the fields were obtained.
	Method string

	// Complete mirrors HasMinimumData at the moment the result leaves an
	// extractor. Strategies must never claim Complete when either company or
	// description is missing or a placeholder.
	Complete bool
}

// HasMinimumData reports whether the extraction carries the two fields the
// downstream document generator cannot work without: a real company name and
// a real description. Placeholder values do not count.
func (e Extraction) HasMinimumData() bool {
	return fieldPresent(e.Company) && fieldPresent(e.JobDescription)
}

// HasAnyData reports whether at least one field carries a real value. Used
// when deciding whether a degraded result is worth returning at all.
func (e Extraction) HasAnyData() bool {
	return fieldPresent(e.Company) || fieldPresent(e.JobTitle) ||
		fieldPresent(e.JobDescription) || strings.TrimSpace(e.HiringManager) != ""
}

func fieldPresent(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != NotSpecified
}

// Finalize applies the placeholder contract and recomputes the Complete
// flag. Company, JobTitle and JobDescription fall back to NotSpecified when
// blank; HiringManager normalizes to the empty string, which is its own
// "absent" marker by contract. Idempotent; strategies call it before
// returning a result.
func (e Extraction) Finalize() Extraction {
	if strings.TrimSpace(e.Company) == "" {
		e.Company = NotSpecified
	}
	if strings.TrimSpace(e.JobTitle) == "" {
		e.JobTitle = NotSpecified
	}
	if strings.TrimSpace(e.JobDescription) == "" {
		e.JobDescription = NotSpecified
	}
	if hm := strings.TrimSpace(e.HiringManager); hm == "" || hm == NotSpecified {
		e.HiringManager = ""
	}
	e.Complete = e.HasMinimumData()
	return e
}

// Merge overlays a model-assisted result on top of a structured/heuristic one.
// The model's non-placeholder fields take priority: model output recovers
// expandable and lazy-loaded content that static parsing misses. AdSource and
// Method are taken from the model result, which by construction already carry
// the classifier's source and the model provenance tag.
func Merge(heuristic, model Extraction) Extraction {
	out := model
	if !fieldPresent(out.Company) && fieldPresent(heuristic.Company) {
		out.Company = heuristic.Company
	}
	if !fieldPresent(out.JobTitle) && fieldPresent(heuristic.JobTitle) {
		out.JobTitle = heuristic.JobTitle
	}
	if !fieldPresent(out.JobDescription) && fieldPresent(heuristic.JobDescription) {
		out.JobDescription = heuristic.JobDescription
	}
	if strings.TrimSpace(out.HiringManager) == "" {
		out.HiringManager = heuristic.HiringManager
	}
	return out.Finalize()
}

// FetchOutcome is the typed result of one page fetch. It is transient: the
// orchestrator consumes it once and never persists it. Exactly one of HTML or
// Err is meaningful; CaptchaDetected may accompany either.
type FetchOutcome struct {
	HTML            string
	Err             string
	CaptchaDetected bool

	// Status is the HTTP status observed, for logging only. Zero when the
	// request never completed.
	Status int
}

// OK reports whether the fetch produced usable markup.
func (o FetchOutcome) OK() bool {
	return o.Err == "" && o.HTML != ""
}
