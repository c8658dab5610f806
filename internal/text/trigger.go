package text

import (
	"regexp"
	"strings"
)

// DefaultTrigger is the clipboard prefix used when none is configured.
const DefaultTrigger = "TTS"

// Trigger matches a case-insensitive prefix that marks clipboard content as
// a speech request.
type Trigger struct {
	word string
	re   *regexp.Regexp
}

// NewTrigger compiles a trigger for word. An empty word falls back to
// DefaultTrigger.
func NewTrigger(word string) *Trigger {
	word = strings.TrimSpace(word)
	if word == "" {
		word = DefaultTrigger
	}
	return &Trigger{
		word: word,
		re:   regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(word)),
	}
}

// Word returns the configured trigger word.
func (t *Trigger) Word() string { return t.word }

// Match reports whether content starts with the trigger word.
func (t *Trigger) Match(content string) bool {
	return t.re.MatchString(content)
}

// Strip removes the trigger prefix and surrounding whitespace. The second
// return value is false when content does not start with the trigger.
func (t *Trigger) Strip(content string) (string, bool) {
	loc := t.re.FindStringIndex(content)
	if loc == nil {
		return "", false
	}
	return strings.TrimSpace(content[loc[1]:]), true
}
