package text

import "strings"

// xmlEscaper replaces the five XML special characters. strings.NewReplacer
// scans the input once, so entities it emits are never escaped a second time.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeXML makes s safe to embed as SSML character data.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// Prepare runs Normalize followed by EscapeXML and trims the result. Every
// input source hands its text to the queue through Prepare, so an empty
// result means there is nothing to read.
func Prepare(raw string) string {
	return strings.TrimSpace(EscapeXML(Normalize(raw)))
}
