package sites

import "github.com/applypilot/jobextract/internal/posting"

// LinkedIn parses public (logged-out) LinkedIn job pages. Selectors cover
// both the current top-card layout and the older topcard classes that still
// appear on cached pages.
type LinkedIn struct{}

var linkedinSelectors = selectorSet{
	title: []string{
		"h1.top-card-layout__title",
		"h1.topcard__title",
		".job-details-jobs-unified-top-card__job-title h1",
		"h1",
	},
	company: []string{
		"a.topcard__org-name-link",
		`a[data-tracking-control-name="public_jobs_topcard-org-name"]`,
		".job-details-jobs-unified-top-card__company-name a",
		".job-details-jobs-unified-top-card__company-name",
		".topcard__flavor a",
		"span.topcard__flavor",
	},
	description: []string{
		".show-more-less-html__markup",
		".description__text",
		"#job-details",
		".jobs-description__content",
		"section.description",
	},
	descMin: minDescriptionLen,
}

func (LinkedIn) Parse(markup, rawURL string) posting.Extraction {
	return extract(posting.SourceLinkedIn, markup, linkedinSelectors)
}
