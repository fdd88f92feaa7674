// Package sites implements the structured/heuristic extraction strategies,
// one per site family plus a generic fallback. Every strategy follows the
// same contract: try embedded JSON-LD JobPosting data first (highest
// confidence, zero heuristics), then an ordered list of site-specific
// selectors with length floors, and finally an opportunistic hiring-manager
// scan. A strategy never claims a complete result unless both company and
// description were found.
package sites

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/applypilot/jobextract/internal/posting"
)

// Strategy parses page markup into an extraction result. Implementations are
// stateless; the zero value of each is usable.
type Strategy interface {
	Parse(markup, rawURL string) posting.Extraction
}

// For returns the strategy for a site family. The switch is exhaustive over
// the closed Source enum; unknown values get the generic strategy.
func For(src posting.Source) Strategy {
	switch src {
	case posting.SourceLinkedIn:
		return LinkedIn{}
	case posting.SourceIndeed:
		return Indeed{}
	case posting.SourceGlassdoor:
		return Glassdoor{}
	case posting.SourceGeneric:
		return Generic{}
	default:
		return Generic{}
	}
}

// Field length guards. Selector hits shorter than these are navigation chrome
// or boilerplate, not the field we were after.
const (
	minTitleLen   = 3
	maxTitleLen   = 200
	minCompanyLen = 2
	maxCompanyLen = 120

	// minDescriptionLen applies to targeted site selectors.
	minDescriptionLen = 120
	// broadMinDescriptionLen applies to the generic strategy's wildcard
	// class/id matching, which is far noisier.
	broadMinDescriptionLen = 200
)

// parseDoc wraps goquery parsing. A nil document means the markup was
// unreadable; callers fall through to an empty (incomplete) result.
func parseDoc(markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	return doc
}

// selectorSet holds one site family's ordered selector lists. Earlier entries
// are more specific; the first hit inside the length bounds wins.
type selectorSet struct {
	title       []string
	company     []string
	description []string
	descMin     int
}

// extract runs the shared pass order: JSON-LD first, then the site's
// selectors, with an opportunistic hiring-manager scan over the flattened
// page either way.
func extract(src posting.Source, markup string, sel selectorSet) posting.Extraction {
	doc := parseDoc(markup)
	if doc == nil {
		return posting.Extraction{AdSource: src, Method: posting.HeuristicMethod(src)}.Finalize()
	}
	pageText := FlattenHTML(markup)
	if ext, ok := fromJSONLD(doc); ok {
		ext.AdSource = src
		if ext.HiringManager == "" {
			ext.HiringManager = findHiringManager(pageText)
		}
		return ext.Finalize()
	}
	ext := posting.Extraction{
		AdSource:       src,
		Method:         posting.HeuristicMethod(src),
		JobTitle:       firstText(doc, sel.title, minTitleLen, maxTitleLen),
		Company:        firstText(doc, sel.company, minCompanyLen, maxCompanyLen),
		JobDescription: firstBlock(doc, sel.description, sel.descMin),
		HiringManager:  findHiringManager(pageText),
	}
	return ext.Finalize()
}

// firstText returns the first selector whose text lands inside the length
// bounds, cleaned of whitespace noise.
func firstText(doc *goquery.Document, selectors []string, minLen, maxLen int) string {
	for _, sel := range selectors {
		s := cleanText(doc.Find(sel).First().Text())
		if len(s) >= minLen && len(s) <= maxLen {
			return s
		}
	}
	return ""
}

// firstBlock returns the flattened text of the first selector whose rendered
// text meets the minimum length. Unlike firstText it preserves paragraph and
// list structure, which matters for multi-section descriptions.
func firstBlock(doc *goquery.Document, selectors []string, minLen int) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		raw, err := node.Html()
		if err != nil || raw == "" {
			continue
		}
		text := FlattenHTML(raw)
		if len(text) >= minLen {
			return text
		}
	}
	return ""
}
