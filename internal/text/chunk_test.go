package text

import (
	"slices"
	"strings"
	"testing"
)

func TestChunkBySentence(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     []string
	}{
		{
			name:     "single sentence",
			text:     "Hello world.",
			maxChars: 100,
			want:     []string{"Hello world."},
		},
		{
			name:     "packs sentences within limit",
			text:     "A. B. C. D.",
			maxChars: 6,
			want:     []string{"A. B.", "C. D."},
		},
		{
			name:     "mixed terminators",
			text:     "First. Second! Third?",
			maxChars: 10,
			want:     []string{"First.", "Second!", "Third?"},
		},
		{
			name:     "collapses inner whitespace",
			text:     "First.   Second.\tThird.",
			maxChars: 100,
			want:     []string{"First. Second. Third."},
		},
		{
			name:     "trailing text without terminator",
			text:     "Done. And then",
			maxChars: 100,
			want:     []string{"Done. And then"},
		},
		{
			name:     "paragraphs never share a chunk",
			text:     "One.\n\nTwo.",
			maxChars: 100,
			want:     []string{"One.", "Two."},
		},
		{
			name:     "single newline joins lines",
			text:     "One\ntwo.",
			maxChars: 100,
			want:     []string{"One two."},
		},
		{
			name:     "long sentence splits at spaces",
			text:     "alpha beta gamma delta",
			maxChars: 11,
			want:     []string{"alpha beta", "gamma delta"},
		},
		{
			name:     "word longer than limit is hard split",
			text:     "abcdefghij",
			maxChars: 4,
			want:     []string{"abcd", "efgh", "ij"},
		},
		{
			name:     "zero limit returns whole text",
			text:     "  First. Second.  ",
			maxChars: 0,
			want:     []string{"First. Second."},
		},
		{
			name:     "empty",
			text:     "   ",
			maxChars: 10,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChunkBySentence(tt.text, tt.maxChars)
			if !slices.Equal(got, tt.want) {
				t.Errorf("ChunkBySentence(%q, %d) = %q, want %q", tt.text, tt.maxChars, got, tt.want)
			}
		})
	}
}

func TestChunkBySentence_RespectsLimit(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20) +
		"\n\nSupercalifragilisticexpialidocious!"

	for _, limit := range []int{8, 16, 40, 120} {
		chunks := ChunkBySentence(text, limit)
		if len(chunks) == 0 {
			t.Fatalf("limit %d: no chunks", limit)
		}
		for i, c := range chunks {
			if len(c) > limit {
				t.Errorf("limit %d: chunk[%d] has %d bytes: %q", limit, i, len(c), c)
			}
			if strings.TrimSpace(c) == "" {
				t.Errorf("limit %d: chunk[%d] is empty", limit, i)
			}
		}
	}
}

func TestChunkBySentence_HardSplitKeepsRunes(t *testing.T) {
	chunks := ChunkBySentence("éééé", 3)
	if got := strings.Join(chunks, ""); got != "éééé" {
		t.Fatalf("rejoined = %q", got)
	}
	for _, c := range chunks {
		if !utf8Valid(c) {
			t.Errorf("chunk %q splits a rune", c)
		}
	}
}

func utf8Valid(s string) bool { return strings.ToValidUTF8(s, "�") == s }
