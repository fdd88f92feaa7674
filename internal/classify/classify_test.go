package classify

import (
	"testing"

	"github.com/applypilot/jobextract/internal/posting"
)

func TestSite(t *testing.T) {
	cases := []struct {
		url  string
		want posting.Source
	}{
		{"https://www.linkedin.com/jobs/view/3754012345", posting.SourceLinkedIn},
		{"https://uk.linkedin.com/jobs/view/99", posting.SourceLinkedIn},
		{"https://www.indeed.com/viewjob?jk=abc123", posting.SourceIndeed},
		{"https://de.indeed.com/viewjob?jk=abc123", posting.SourceIndeed},
		{"https://www.glassdoor.com/job-listing/backend-engineer", posting.SourceGlassdoor},
		{"https://careers.example.com/openings/42", posting.SourceGeneric},
		{"https://boards.greenhouse.io/acme/jobs/123", posting.SourceGeneric},
		{"not a url at all", posting.SourceGeneric},
		{"", posting.SourceGeneric},
	}
	for _, tc := range cases {
		if got := Site(tc.url); got != tc.want {
			t.Fatalf("Site(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestCanonicalURLDropsTracking(t *testing.T) {
	in := "https://Careers.Example.com/jobs/42?utm_source=newsletter&utm_medium=email&gclid=xyz&id=7#apply"
	got := CanonicalURL(in)
	want := "https://careers.example.com/jobs/42?id=7"
	if got != want {
		t.Fatalf("CanonicalURL = %q, want %q", got, want)
	}
}

func TestCanonicalURLLinkedInKeepsJobID(t *testing.T) {
	in := "https://www.linkedin.com/jobs/search/?currentJobId=3754012345&refId=tracking&position=3"
	got := CanonicalURL(in)
	want := "https://www.linkedin.com/jobs/search/?currentJobId=3754012345"
	if got != want {
		t.Fatalf("CanonicalURL = %q, want %q", got, want)
	}
}

func TestCanonicalURLPassthroughOnGarbage(t *testing.T) {
	in := "::not::parsable::"
	if got := CanonicalURL(in); got != in {
		t.Fatalf("expected passthrough for unparseable input, got %q", got)
	}
}
