package text

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

// DefaultChunkSize keeps each request under the OpenAI speech input limit.
const DefaultChunkSize = 4000

// maxEntityLen is the longest entity EscapeXML emits.
const maxEntityLen = len("&quot;")

// Split breaks raw Markdown into pieces of at most limit bytes, cutting at
// top-level block boundaries where possible so code fences, lists and
// paragraphs stay whole. Oversized blocks are cut at sentence ends, then at
// whitespace, never inside an XML entity. A limit <= 0 disables splitting.
func Split(raw string, limit int) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if limit <= 0 || len(raw) <= limit {
		return []string{raw}
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}

	for _, block := range blocks(raw) {
		if cur.Len()+len(block) <= limit {
			cur.WriteString(block)
			continue
		}
		flush()
		if len(block) <= limit {
			cur.WriteString(block)
			continue
		}
		chunks = append(chunks, cutLong(block, limit)...)
	}
	flush()
	return chunks
}

// blocks slices source at the start of each top-level Markdown block.
func blocks(source string) []string {
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(gtext.NewReader(src))

	cuts := []int{0}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if n == doc.FirstChild() {
			continue
		}
		// The opening fence line is not part of the block's segments.
		if n.Kind() == ast.KindFencedCodeBlock || n.Kind() == ast.KindCodeBlock {
			continue
		}
		start, ok := firstOffset(n)
		if !ok {
			continue
		}
		start = lineStart(src, start)
		if start > cuts[len(cuts)-1] {
			cuts = append(cuts, start)
		}
	}

	out := make([]string, 0, len(cuts))
	for i, c := range cuts {
		end := len(source)
		if i+1 < len(cuts) {
			end = cuts[i+1]
		}
		out = append(out, source[c:end])
	}
	return out
}

func firstOffset(n ast.Node) (int, bool) {
	if n.Type() == ast.TypeBlock {
		if lines := n.Lines(); lines != nil && lines.Len() > 0 {
			return lines.At(0).Start, true
		}
	}
	if t, ok := n.(*ast.Text); ok {
		return t.Segment.Start, true
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off, ok := firstOffset(c); ok {
			return off, true
		}
	}
	return 0, false
}

func lineStart(src []byte, off int) int {
	for off > 0 && src[off-1] != '\n' {
		off--
	}
	return off
}

// cutLong splits a single block that is larger than limit.
func cutLong(s string, limit int) []string {
	var out []string
	s = strings.TrimSpace(s)
	for len(s) > limit {
		cut := lastBoundary(s[:limit])
		if cut <= 0 {
			cut = entityFloor(s, runeFloor(s, limit))
		}
		if piece := strings.TrimSpace(s[:cut]); piece != "" {
			out = append(out, piece)
		}
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// lastBoundary returns the index just past the last sentence end in s, or
// past the last whitespace when there is no sentence end.
func lastBoundary(s string) int {
	best := -1
	for _, sep := range []string{". ", "? ", "! ", ".\n", "?\n", "!\n"} {
		if i := strings.LastIndex(s, sep); i >= 0 && i+1 > best {
			best = i + 1
		}
	}
	if best > 0 {
		return best
	}
	return strings.LastIndexAny(s, " \n\t")
}

func runeFloor(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	if n == 0 {
		_, n = utf8.DecodeRuneInString(s)
	}
	return n
}

// entityFloor moves cut off an XML entity it would split, back before the
// entity or, when the entity opens the run, forward past it.
func entityFloor(s string, cut int) int {
	amp := strings.LastIndexByte(s[:cut], '&')
	if amp < 0 || strings.IndexByte(s[amp:cut], ';') >= 0 {
		return cut
	}
	semi := strings.IndexByte(s[cut:], ';')
	if semi < 0 || cut+semi+1-amp > maxEntityLen {
		return cut
	}
	if amp == 0 {
		return cut + semi + 1
	}
	return amp
}
