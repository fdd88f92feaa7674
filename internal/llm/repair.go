package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// modelFields are the reply keys the extraction prompt contracts for.
var modelFields = []string{"company", "job_title", "full_description", "hiring_manager", "ad_source"}

// truncatedMarker is appended to a description whose closing quote never
// arrived, so downstream consumers can tell a clipped description from a
// complete one.
const truncatedMarker = " ... [description truncated]"

// errNoJSON reports a reply with nothing recoverable in it.
var errNoJSON = errors.New("no parseable JSON object in model reply")

// ParseModelJSON decodes a model reply into the contracted field map,
// repairing the damage models actually produce: markdown fences around the
// object, prose before or after it, replies cut off mid-string by token
// limits, and invalid escape sequences. The recovered flag reports whether
// any repair beyond fence stripping was needed; callers surface that in the
// extraction method. Field recovery order: strict parse, close-and-reparse,
// then per-field regex salvage.
func ParseModelJSON(raw string) (map[string]string, bool, error) {
	s := stripFences(raw)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil, false, errNoJSON
	}

	// Strict pass over the outermost object, ignoring surrounding prose.
	if end := strings.LastIndexByte(s, '}'); end > start {
		if fields, ok := parseObject(s[start : end+1]); ok {
			return fields, false, nil
		}
	}

	// Truncation pass: balance the dangling string and braces, then reparse.
	closedStr, repaired := closeTruncated(s[start:])
	if fields, ok := parseObject(repaired); ok {
		if closedStr {
			markClippedField(repaired, fields)
		}
		return fields, true, nil
	}

	// Last resort: pull individual "key": "value" pairs out of the wreckage.
	fields := recoverFields(s[start:])
	if len(fields) == 0 {
		return nil, false, errNoJSON
	}
	return fields, true, nil
}

// parseObject unmarshals candidate and flattens it to lowercase string keys.
// Non-string scalars are stringified; nulls and nested values are dropped.
func parseObject(candidate string) (map[string]string, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(candidate), &m); err != nil {
		return nil, false
	}
	fields := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			fields[strings.ToLower(k)] = val
		case float64:
			fields[strings.ToLower(k)] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			fields[strings.ToLower(k)] = strconv.FormatBool(val)
		}
	}
	return fields, true
}

// stripFences removes a markdown code fence wrapper, with or without a
// language tag, from around the reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && len(strings.TrimSpace(s[:i])) <= 8 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// closeTruncated balances a reply that was cut off mid-object: an unfinished
// string gets its closing quote, then unclosed brackets and braces are closed
// in nesting order. Returns whether a dangling string was closed and the
// balanced candidate.
func closeTruncated(s string) (closedString bool, out string) {
	var (
		inString bool
		escaped  bool
		stack    []byte
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				stack = append(stack, c)
			}
		case '}', ']':
			if !inString && len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if inString {
		// A trailing lone backslash would escape the quote we add.
		if escaped {
			s = s[:len(s)-1]
		}
		s += `"`
		closedString = true
	} else {
		// A trailing comma before a brace we add breaks the parse.
		s = strings.TrimRight(s, " \t\r\n,")
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			s += "}"
		} else {
			s += "]"
		}
	}
	return closedString, s
}

// markClippedField appends the truncation marker to the description when the
// description was the field still open at the cut. The clipped field is the
// contracted key appearing last in the candidate.
func markClippedField(candidate string, fields map[string]string) {
	lastKey, lastPos := "", -1
	for _, key := range modelFields {
		if pos := strings.LastIndex(candidate, `"`+key+`"`); pos > lastPos {
			lastKey, lastPos = key, pos
		}
	}
	if lastKey == "full_description" && fields[lastKey] != "" {
		fields[lastKey] += truncatedMarker
	}
}

// closedFieldRe matches a complete "key": "value" pair; openFieldRe matches
// one whose closing quote never arrived.
var (
	closedFieldRe = map[string]*regexp.Regexp{}
	openFieldRe   = map[string]*regexp.Regexp{}
)

func init() {
	for _, key := range modelFields {
		closedFieldRe[key] = regexp.MustCompile(`"` + key + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
		openFieldRe[key] = regexp.MustCompile(`"` + key + `"\s*:\s*"((?:[^"\\]|\\.)*)$`)
	}
}

// recoverFields salvages whatever contracted pairs survive in an unparseable
// reply. A field matched in its open form was clipped; if that field is the
// description it gets the truncation marker.
func recoverFields(s string) map[string]string {
	fields := make(map[string]string)
	for _, key := range modelFields {
		if m := closedFieldRe[key].FindStringSubmatch(s); m != nil {
			fields[key] = decodeJSONString(m[1])
			continue
		}
		if m := openFieldRe[key].FindStringSubmatch(s); m != nil && m[1] != "" {
			v := decodeJSONString(m[1])
			if key == "full_description" {
				v += truncatedMarker
			}
			fields[key] = v
		}
	}
	return fields
}

// escapeReplacer handles the common JSON escapes when strconv.Unquote rejects
// the value, which happens when models emit raw control characters or broken
// \u sequences inside strings.
var escapeReplacer = strings.NewReplacer(
	`\\`, "\\",
	`\"`, `"`,
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\/`, "/",
)

// decodeJSONString interprets the escape sequences of a JSON string body.
func decodeJSONString(s string) string {
	if unquoted, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return unquoted
	}
	return escapeReplacer.Replace(s)
}

// fieldOrEmpty is a nil-safe map lookup used when assembling extractions.
func fieldOrEmpty(fields map[string]string, key string) string {
	if fields == nil {
		return ""
	}
	return strings.TrimSpace(fields[key])
}
