package sites

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/applypilot/jobextract/internal/posting"
)

// Generic handles company career sites and boards we have no dedicated
// strategy for. Beyond the shared JSON-LD pass it leans on Open Graph meta
// tags and broad class/id wildcard matching; the wildcard pass uses a higher
// description floor because it is the noisiest.
type Generic struct{}

var genericSelectors = selectorSet{
	title: []string{
		"h1[class*=job-title]",
		"h1[class*=jobTitle]",
		`[itemprop="title"]`,
		"h1",
	},
	company: []string{
		`[itemprop="hiringOrganization"]`,
		"[class*=company-name]",
		"[class*=companyName]",
		"[class*=employer-name]",
		"[class*=company]",
	},
	description: []string{
		`[itemprop="description"]`,
		"[class*=job-description]",
		"[id*=job-description]",
		"[class*=jobDescription]",
		"[id*=jobDescription]",
		"[class*=job-details]",
		"[id*=job-details]",
		"[class*=description]",
		"[id*=description]",
		"article",
		"main",
	},
	descMin: broadMinDescriptionLen,
}

func (Generic) Parse(markup, rawURL string) posting.Extraction {
	ext := extract(posting.SourceGeneric, markup, genericSelectors)
	if ext.Method == posting.MethodStructured {
		return ext
	}
	doc := parseDoc(markup)
	if doc == nil {
		return ext
	}
	// Meta tags backfill whatever the selector pass missed. og:description
	// is usually a truncated teaser, so it only ever fills an empty slot.
	if !fieldSet(ext.JobTitle) {
		if t := metaContent(doc, `meta[property="og:title"]`); len(t) >= minTitleLen && len(t) <= maxTitleLen {
			ext.JobTitle = t
		}
	}
	if !fieldSet(ext.Company) {
		if c := metaContent(doc, `meta[property="og:site_name"]`); len(c) >= minCompanyLen && len(c) <= maxCompanyLen {
			ext.Company = c
		}
	}
	if !fieldSet(ext.JobDescription) {
		if d := metaContent(doc, `meta[property="og:description"]`, `meta[name="description"]`); len(d) >= minDescriptionLen {
			ext.JobDescription = d
		}
	}
	return ext.Finalize()
}

func fieldSet(s string) bool {
	return s != "" && s != posting.NotSpecified
}

// metaContent returns the first non-empty content attribute among selectors.
func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = cleanText(v); v != "" {
				return v
			}
		}
	}
	return ""
}
