// Package ssml builds the SSML document sent to Azure neural voices.
package ssml

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/clipspeak/internal/text"
	"github.com/dgnsrekt/clipspeak/internal/voice"
)

// Namespaces used by the speak element.
const (
	SynthesisNS = "http://www.w3.org/2001/10/synthesis"
	MSTTSNS     = "http://www.w3.org/2001/mstts"
)

// Pause lengths inserted by InsertPauses.
const (
	HeadingPause  = `<break time="800ms"/>`
	SentencePause = `<break time="500ms"/>`
)

const minPausedSentence = 30

var (
	headingPauseRe  = regexp.MustCompile(`(:\s*|\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b\s*\n)`)
	sentencePauseRe = regexp.MustCompile(fmt.Sprintf(`([^.]{%d,}?[.?!])(\s+)`, minPausedSentence))
)

// Compose wraps already escaped text in a speak document for settings. The
// text is decorated, paused and placed inside the voice, express-as and
// prosody elements. Compose has no side effects other than logging skipped
// decoration rules.
func Compose(escaped string, settings voice.Settings) string {
	body := InsertPauses(Decorate(escaped, settings.SSMLDecorations))

	var b strings.Builder
	fmt.Fprintf(&b, `<speak version="1.0" xmlns="%s" xmlns:mstts="%s" xml:lang="%s">`, SynthesisNS, MSTTSNS, attr(settings.Locale()))
	fmt.Fprintf(&b, `<voice name="%s">`, attr(settings.VoiceName))
	fmt.Fprintf(&b, `<mstts:express-as style="%s">`, attr(settings.Options.Style))
	fmt.Fprintf(&b, `<prosody rate="%s" pitch="%s">`, attr(settings.Options.Rate), attr(settings.Options.Pitch))
	b.WriteString(body)
	b.WriteString(`</prosody></mstts:express-as></voice></speak>`)
	return b.String()
}

// Decorate applies rules in order. Each rule wraps every literal occurrence
// of its target in s, which is expected to be XML escaped already. Rules of
// an unknown type, or without a target, are skipped.
func Decorate(s string, rules []voice.Decoration) string {
	for _, r := range rules {
		target := text.EscapeXML(r.Target())
		var tag string
		switch r.Type {
		case voice.DecorationPhoneme:
			tag = fmt.Sprintf(`<phoneme alphabet="ipa" ph="%s">%s</phoneme>`, attr(r.Phonetic), target)
		case voice.DecorationSayAs:
			tag = fmt.Sprintf(`<say-as interpret-as="%s">%s</say-as>`, attr(r.InterpretAs), target)
		case voice.DecorationSub:
			tag = fmt.Sprintf(`<sub alias="%s">%s</sub>`, attr(r.Substitute), target)
		default:
			log.Warn("Unsupported SSML decoration type", "type", r.Type)
			continue
		}
		if target == "" {
			log.Warn("Skipping SSML decoration without a target", "type", r.Type)
			continue
		}
		s = strings.ReplaceAll(s, target, tag)
	}
	return s
}

// InsertPauses adds a long break after colons and title-cased lines, and a
// short break after long sentences that contain no comma.
func InsertPauses(s string) string {
	s = headingPauseRe.ReplaceAllString(s, "${1}"+HeadingPause)
	return sentencePauseRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := sentencePauseRe.FindStringSubmatch(m)
		if sub == nil || strings.Contains(sub[1], ",") {
			return m
		}
		return sub[1] + SentencePause + sub[2]
	})
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	`"`, "&quot;",
)

// attr escapes a settings value for use inside a double-quoted attribute.
func attr(s string) string {
	return attrEscaper.Replace(s)
}
