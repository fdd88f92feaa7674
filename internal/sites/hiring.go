package sites

import (
	"regexp"
	"strings"
)

// hiringManagerRe anchors on the phrases postings use to introduce a contact
// person and captures the 2-4 capitalized words that follow. Only the anchor
// is case-insensitive; the capture must stay case-sensitive so lowercase
// prose after the anchor is not mistaken for a name. findHiringManager
// filters the obvious junk afterwards.
var hiringManagerRe = regexp.MustCompile(
	`(?i:meet the hiring team|hiring manager|your recruiter|recruiter)[:\s\-]*` +
		`([A-Z][A-Za-z'.\-]+(?:\s+[A-Z][A-Za-z'.\-]+){1,3})`)

// hiringJunkWords are capitalized words that start phrases the anchor regex
// tends to swallow ("Recruiter Will Review...", "Hiring Manager Job Description").
var hiringJunkWords = map[string]bool{
	"Job":         true,
	"Jobs":        true,
	"Apply":       true,
	"About":       true,
	"The":         true,
	"This":        true,
	"Will":        true,
	"View":        true,
	"Sign":        true,
	"Description": true,
	"Position":    true,
	"Role":        true,
}

// findHiringManager scans flattened page text for a named contact. The field
// is best-effort throughout the pipeline, so a miss returns "" rather than
// an error.
func findHiringManager(text string) string {
	for _, m := range hiringManagerRe.FindAllStringSubmatch(text, 4) {
		name := strings.TrimSpace(m[1])
		words := strings.Fields(name)
		if len(words) < 2 || len(words) > 4 {
			continue
		}
		if hiringJunkWords[words[0]] || hiringJunkWords[words[1]] {
			continue
		}
		return name
	}
	return ""
}
