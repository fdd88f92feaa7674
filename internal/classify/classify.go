// Package classify maps job-posting URLs onto the closed site-family enum and
// normalizes URLs for cache keys. Both functions are pure and perform no I/O.
package classify

import (
	"net/url"
	"sort"
	"strings"

	"github.com/applypilot/jobextract/internal/posting"
)

// Site returns the site family for a URL. Host matching is substring-based so
// subdomains and regional hosts (uk.indeed.com, de.linkedin.com) classify the
// same as the primary domain. Unparseable URLs fall through to generic; there
// is no error condition. The returned value is authoritative for the final
// response's ad_source regardless of what any later stage infers.
func Site(rawURL string) posting.Source {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return posting.SourceGeneric
	}
	host := strings.ToLower(u.Host)
	switch {
	case strings.Contains(host, "linkedin.com"):
		return posting.SourceLinkedIn
	case strings.Contains(host, "indeed.com"):
		return posting.SourceIndeed
	case strings.Contains(host, "glassdoor.com"):
		return posting.SourceGlassdoor
	default:
		return posting.SourceGeneric
	}
}

// CanonicalURL normalizes a URL for use as a cache/store key: lowercased
// scheme and host, fragment dropped, tracking parameters removed, query keys
// sorted for determinism. LinkedIn keeps only currentJobId, which is the one
// query parameter that changes which posting the page shows. The canonical
// form is never used for fetching; the fetcher always receives the URL as
// the caller supplied it.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") ||
			lk == "gclid" || lk == "fbclid" || lk == "msclkid" ||
			lk == "mc_cid" || lk == "mc_eid" ||
			lk == "mkt_tok" || lk == "ref" || lk == "refid" {
			q.Del(k)
		}
	}

	if strings.Contains(u.Host, "linkedin.com") {
		keep := url.Values{}
		if v := q.Get("currentJobId"); v != "" {
			keep.Set("currentJobId", v)
		}
		q = keep
	}

	for k := range q {
		vals := q[k]
		sort.Strings(vals)
		q[k] = vals
	}
	u.RawQuery = q.Encode()
	return u.String()
}
