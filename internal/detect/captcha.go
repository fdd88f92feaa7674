// Package detect classifies fetched markup as CAPTCHA-blocked or behind a
// login wall. Both heuristics are content-aware: markers of real job content
// suppress false positives, because a challenge page that has been solved is
// followed by real content, so content presence is stronger evidence than any
// CAPTCHA artifact left in the DOM.
package detect

import (
	"regexp"
	"strings"
)

// jobContentMarkers are lexical markers of a rendered job posting. Any hit
// short-circuits the CAPTCHA classification to "not blocked".
var jobContentMarkers = []string{
	"job description",
	"responsibilities",
	"qualifications",
	"requirements",
	"apply now",
	"about the role",
	"about this role",
	"about the job",
	"what you'll do",
	"who you are",
	// site-specific
	"seniority level",   // LinkedIn job panel
	"employment type",   // LinkedIn job panel
	"job details",       // Indeed
	"easy apply",        // LinkedIn / Indeed
	"base pay range",    // Glassdoor
	"hiringorganization", // embedded JobPosting JSON-LD
}

// strongCaptchaMarkers identify a specific challenge vendor or an explicit
// verification prompt.
var strongCaptchaMarkers = []string{
	"verify you are human",
	"verifying you are human",
	"verify you're human",
	"checking your browser",
	"checking if the site connection is secure",
	"enable javascript and cookies to continue",
	"access to this page has been denied",
	"request unsuccessful. incapsula",
	"challenges.cloudflare.com",
	"challenge-platform",
	"cf-chl-widget",
	"hcaptcha.com/1/api.js",
	"recaptcha/api.js",
	"px-captcha",
	"perimeterx",
	"datadome",
	"are you a robot",
	"additional verification required",
}

// Structural patterns: a challenge widget embedded as an iframe/div, or a
// site-key attribute for one of the common widget families.
var structuralCaptchaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<iframe[^>]+src="[^"]*(recaptcha|hcaptcha|turnstile|challenge)[^"]*"`),
	regexp.MustCompile(`(?i)<div[^>]+class="[^"]*(g-recaptcha|h-captcha|cf-turnstile)[^"]*"`),
	regexp.MustCompile(`(?i)data-sitekey\s*=`),
}

// weakCaptchaMarkers are generic phrases that appear on challenge pages but
// also in ordinary prose ("our captcha policy"). They only decide the outcome
// when nothing stronger matched and no job content is present.
var weakCaptchaMarkers = []string{
	"captcha",
	"security check",
	"bot detection",
	"unusual traffic",
	"automated access",
	"prove you are not a robot",
}

// HasJobContent reports whether the markup contains any job-content marker.
// The fetcher uses this to rescue 403/429/503 responses that nonetheless
// delivered the posting (cached or partial content behind a soft block).
func HasJobContent(markup string) bool {
	lower := strings.ToLower(markup)
	for _, m := range jobContentMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// CaptchaBlocked classifies markup as CAPTCHA-blocked using a layered check.
// Priority order matters: the job-content override in step 1 can never be
// undone by a later step. Content evidence always wins.
func CaptchaBlocked(markup string) bool {
	lower := strings.ToLower(markup)

	// 1. Real content present: not blocked, regardless of any leftover
	// challenge artifacts in the DOM.
	for _, m := range jobContentMarkers {
		if strings.Contains(lower, m) {
			return false
		}
	}

	// 2. Strong vendor markers.
	for _, m := range strongCaptchaMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}

	// 3. Structural widget embeddings.
	for _, p := range structuralCaptchaPatterns {
		if p.MatchString(markup) {
			return true
		}
	}

	// 4. Weak generic markers.
	for _, m := range weakCaptchaMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}

	return false
}
