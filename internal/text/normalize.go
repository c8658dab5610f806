package text

import (
	"regexp"
	"strconv"
	"strings"
)

// Phrases spoken in place of content that cannot be read aloud.
const (
	CodeSnippetPhrase = "code snippet removed."
	URLPhrase         = "URL removed."
	ListItemPhrase    = "Next item, "
)

// Placeholder delimiters live in the Unicode private use area so none of the
// Markdown or URL patterns below can match inside them.
const (
	placeholderOpen  = "\uE000"
	placeholderClose = "\uE001"
)

var (
	// Fences are matched first so a fence's backticks are never taken for
	// an inline span.
	codeSpanRe    = regexp.MustCompile("(?s)```.*?```|`[^`]+`")
	fencedCodeRe  = regexp.MustCompile("(?s)```.*?```")
	urlRe         = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+.\-]*://[^\s\x{E000}]+`)
	placeholderRe = regexp.MustCompile(placeholderOpen + `(\d+)` + placeholderClose)
	headingRe     = regexp.MustCompile(`(?m)^(#+)\s+(.*)$`)
	listItemRe    = regexp.MustCompile(`(?m)^\s*[-*]\s+`)
	linkRe        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	emphasisRe    = regexp.MustCompile(`\*\*(.*?)\*\*|__(.*?)__`)
	leftoverRe    = regexp.MustCompile(`[*#]`)
)

// Normalize prepares raw text for speech synthesis. Inline code spans are
// kept verbatim, fenced code blocks and URLs are replaced with a short spoken
// phrase, and Markdown headings, list markers, links and emphasis are reduced
// to their readable text. Normalize never fails; input without any of these
// constructs is returned unchanged.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	// protect inline code
	var spans []string
	s := codeSpanRe.ReplaceAllStringFunc(raw, func(m string) string {
		if strings.HasPrefix(m, "```") {
			return m
		}
		spans = append(spans, m)
		return placeholderOpen + strconv.Itoa(len(spans)-1) + placeholderClose
	})

	// fenced code
	s = fencedCodeRe.ReplaceAllLiteralString(s, CodeSnippetPhrase)

	// URLs
	s = urlRe.ReplaceAllLiteralString(s, URLPhrase)

	// Markdown cleanup
	s = headingRe.ReplaceAllString(s, "${2}")
	s = listItemRe.ReplaceAllLiteralString(s, ListItemPhrase)
	s = linkRe.ReplaceAllString(s, "${1}")
	s = emphasisRe.ReplaceAllString(s, "${1}${2}")
	s = leftoverRe.ReplaceAllLiteralString(s, "")

	// restore inline code last so the cleanup passes cannot touch it
	return restoreSpans(s, spans)
}

func restoreSpans(s string, spans []string) string {
	if len(spans) == 0 {
		return s
	}
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		idx, err := strconv.Atoi(m[len(placeholderOpen) : len(m)-len(placeholderClose)])
		if err != nil || idx < 0 || idx >= len(spans) {
			return m
		}
		return spans[idx]
	})
}
