package sites

import (
	"strings"

	"golang.org/x/net/html"
)

// skipTags are elements whose subtree carries no posting text.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"form":     true,
	"button":   true,
}

// blockTags force a line break around their content so that flattened text
// keeps paragraph and list boundaries readable.
var blockTags = map[string]bool{
	"p":       true,
	"div":     true,
	"section": true,
	"article": true,
	"br":      true,
	"li":      true,
	"ul":      true,
	"ol":      true,
	"tr":      true,
	"h1":      true,
	"h2":      true,
	"h3":      true,
	"h4":      true,
	"h5":      true,
	"h6":      true,
}

// FlattenHTML renders markup to plain text. Script, style and page chrome
// subtrees are dropped, block elements become newlines, entities are decoded
// by the parser, and runs of whitespace collapse to single spaces within a
// line. Input that is already plain text passes through unchanged apart from
// whitespace normalization.
func FlattenHTML(markup string) string {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return cleanText(markup)
	}
	var b strings.Builder
	collectText(root, &b)
	return tidyLines(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && skipTags[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	isBlock := n.Type == html.ElementNode && blockTags[n.Data]
	if isBlock {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
	if isBlock {
		b.WriteByte('\n')
	}
}

// tidyLines collapses intra-line whitespace and squeezes blank-line runs so
// the output reads like paragraphs rather than a DOM dump.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = cleanText(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// cleanText collapses all whitespace runs, including non-breaking spaces, to
// single spaces and trims the ends. Used for single-line fields like titles
// and company names.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
