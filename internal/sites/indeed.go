package sites

import "github.com/applypilot/jobextract/internal/posting"

// Indeed parses Indeed job pages. The data-testid attributes are the stable
// hooks; the jobsearch-* classes back them up on older page variants.
type Indeed struct{}

var indeedSelectors = selectorSet{
	title: []string{
		`h1[data-testid="jobsearch-JobInfoHeader-title"]`,
		"h1.jobsearch-JobInfoHeader-title",
		".jobsearch-JobInfoHeader-title-container h1",
		"h1",
	},
	company: []string{
		`[data-testid="inlineHeader-companyName"]`,
		`[data-company-name="true"]`,
		`a[data-tn-element="companyName"]`,
		".jobsearch-CompanyInfoContainer a",
		".jobsearch-InlineCompanyRating div",
	},
	description: []string{
		"#jobDescriptionText",
		".jobsearch-jobDescriptionText",
		".jobsearch-JobComponent-description",
	},
	descMin: minDescriptionLen,
}

func (Indeed) Parse(markup, rawURL string) posting.Extraction {
	return extract(posting.SourceIndeed, markup, indeedSelectors)
}
