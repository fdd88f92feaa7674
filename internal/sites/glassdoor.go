package sites

import "github.com/applypilot/jobextract/internal/posting"

// Glassdoor parses Glassdoor job pages. Glassdoor hashes its CSS module
// class names, so the stable data-test attributes come first and the hashed
// prefixes are matched with contains selectors.
type Glassdoor struct{}

var glassdoorSelectors = selectorSet{
	title: []string{
		`[data-test="job-title"]`,
		`h1[id^="jd-job-title"]`,
		`[class*="JobDetails_jobTitle"]`,
		"h1",
	},
	company: []string{
		`[data-test="employer-name"]`,
		`[class*="EmployerProfile_employerName"]`,
		".employerName",
		`[class*="employer-name"]`,
	},
	description: []string{
		`[data-test="jobDescriptionContent"]`,
		".jobDescriptionContent",
		"#JobDescriptionContainer",
		`[class*="JobDetails_jobDescription"]`,
	},
	descMin: minDescriptionLen,
}

func (Glassdoor) Parse(markup, rawURL string) posting.Extraction {
	return extract(posting.SourceGlassdoor, markup, glassdoorSelectors)
}
