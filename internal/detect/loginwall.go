package detect

import "strings"

// linkedInLoginMarkers indicate LinkedIn served its sign-in interstitial
// instead of the posting.
var linkedInLoginMarkers = []string{
	"sign in to linkedin",
	"sign in to view",
	"join linkedin",
	"join now",
	"authwall",
	"uas/login",
	"session_key",
}

// linkedInContentMarkers are phrases that only appear when the job panel
// actually rendered.
var linkedInContentMarkers = []string{
	"job description",
	"about the job",
	"about the role",
	"seniority level",
	"employment type",
	"meet the hiring team",
	"show more",
	"hiringorganization",
}

// loginWallMinBytes is the size below which a LinkedIn response cannot be a
// full job page. The interstitial is a small shell; real postings run well
// past this even before client-side hydration.
const loginWallMinBytes = 2048

// LinkedInLoginWall reports whether LinkedIn markup is a login wall: a
// sign-in prompt with none of the job-content markers, or a response too
// small to be a posting that also lacks content markers. Distinct from a
// CAPTCHA block because a login wall is not solvable by proving "not a
// robot", so the orchestrator surfaces different guidance for it.
func LinkedInLoginWall(markup string) bool {
	lower := strings.ToLower(markup)

	hasContent := false
	for _, m := range linkedInContentMarkers {
		if strings.Contains(lower, m) {
			hasContent = true
			break
		}
	}
	if hasContent {
		return false
	}

	for _, m := range linkedInLoginMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}

	return len(markup) < loginWallMinBytes
}
