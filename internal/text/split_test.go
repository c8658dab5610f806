package text

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  []string
	}{
		{
			name:  "blank",
			in:    "  \n ",
			limit: 10,
			want:  nil,
		},
		{
			name:  "short input is one chunk",
			in:    "Hello world.",
			limit: 100,
			want:  []string{"Hello world."},
		},
		{
			name:  "limit disabled",
			in:    strings.Repeat("word ", 50),
			limit: 0,
			want:  []string{strings.Repeat("word ", 50)},
		},
		{
			name:  "paragraph boundaries",
			in:    "para one is here.\n\npara two is here.\n\npara three.",
			limit: 40,
			want:  []string{"para one is here.\n\npara two is here.", "para three."},
		},
		{
			name:  "fence kept with its neighbour",
			in:    "intro\n\n```\nline1\nline2\n```\n\nouter",
			limit: 30,
			want:  []string{"intro\n\n```\nline1\nline2\n```", "outer"},
		},
		{
			name:  "long paragraph cut at sentences",
			in:    "One sentence here. Another sentence here. Third one.",
			limit: 25,
			want:  []string{"One sentence here.", "Another sentence here.", "Third one."},
		},
		{
			name:  "no whitespace",
			in:    "aaaaaaaaaa",
			limit: 4,
			want:  []string{"aaaa", "aaaa", "aa"},
		},
		{
			name:  "multibyte runes not broken",
			in:    "ééééé",
			limit: 3,
			want:  []string{"é", "é", "é", "é", "é"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.in, tt.limit)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitRespectsLimit(t *testing.T) {
	in := strings.Repeat("This is a reasonably long sentence without much in it. ", 200)
	for _, chunk := range Split(in, 500) {
		if len(chunk) > 500 {
			t.Fatalf("chunk of %d bytes exceeds limit", len(chunk))
		}
	}
}

func TestSplitKeepsEntitiesWhole(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  []string
	}{
		{"aaaa&amp;bbbb", 7, []string{"aaaa", "&amp;bb", "bb"}},
		{"x&lt;y&gt;z", 5, []string{"x&lt;", "y&gt;", "z"}},
		{"ab&quot;cdefgh", 4, []string{"ab", "&quot;", "cdef", "gh"}},
	}
	for _, tt := range tests {
		got := Split(tt.in, tt.limit)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Split(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
