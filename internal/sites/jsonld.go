package sites

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/applypilot/jobextract/internal/posting"
)

// ldObject is the subset of a schema.org JobPosting node we care about.
// "@type" and "hiringOrganization" are kept raw because publishers emit them
// as either scalars or arrays/objects.
type ldObject struct {
	Type               json.RawMessage   `json:"@type"`
	Graph              []json.RawMessage `json:"@graph"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	HiringOrganization json.RawMessage   `json:"hiringOrganization"`
}

// fromJSONLD scans every ld+json script block for a JobPosting node and
// returns the first one that carries both an organization name and a
// description. That pair is the bar for trusting structured data outright;
// title is taken when present but does not gate the match.
func fromJSONLD(doc *goquery.Document) (posting.Extraction, bool) {
	var (
		found posting.Extraction
		ok    bool
	)
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		if ext, hit := scanLDBlock([]byte(raw)); hit {
			found, ok = ext, true
			return false
		}
		return true
	})
	return found, ok
}

// scanLDBlock handles the three shapes publishers use: a bare object, a
// top-level array of objects, and an object wrapping a "@graph" array.
func scanLDBlock(raw []byte) (posting.Extraction, bool) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		for _, item := range arr {
			if ext, ok := scanLDObject(item); ok {
				return ext, true
			}
		}
		return posting.Extraction{}, false
	}
	return scanLDObject(raw)
}

func scanLDObject(raw json.RawMessage) (posting.Extraction, bool) {
	var obj ldObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return posting.Extraction{}, false
	}
	for _, item := range obj.Graph {
		if ext, ok := scanLDObject(item); ok {
			return ext, true
		}
	}
	if !obj.isJobPosting() {
		return posting.Extraction{}, false
	}
	org := obj.orgName()
	desc := ""
	if strings.TrimSpace(obj.Description) != "" {
		// JSON-LD descriptions are routinely HTML fragments.
		desc = FlattenHTML(obj.Description)
	}
	if org == "" || desc == "" {
		return posting.Extraction{}, false
	}
	return posting.Extraction{
		Company:        org,
		JobTitle:       cleanText(obj.Title),
		JobDescription: desc,
		Method:         posting.MethodStructured,
	}, true
}

func (o ldObject) isJobPosting() bool {
	if len(o.Type) == 0 {
		return false
	}
	var single string
	if err := json.Unmarshal(o.Type, &single); err == nil {
		return strings.EqualFold(single, "JobPosting")
	}
	var multi []string
	if err := json.Unmarshal(o.Type, &multi); err == nil {
		for _, t := range multi {
			if strings.EqualFold(t, "JobPosting") {
				return true
			}
		}
	}
	return false
}

// orgName accepts both the object form {"@type":"Organization","name":...}
// and the sloppy string form some boards emit.
func (o ldObject) orgName() string {
	if len(o.HiringOrganization) == 0 {
		return ""
	}
	var org struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(o.HiringOrganization, &org); err == nil && strings.TrimSpace(org.Name) != "" {
		return cleanText(org.Name)
	}
	var name string
	if err := json.Unmarshal(o.HiringOrganization, &name); err == nil {
		return cleanText(name)
	}
	return ""
}
