package text

import "strings"

// ChunkBySentence splits text into chunks at sentence boundaries (., !, ?)
// and blank-line paragraph breaks, packing consecutive sentences together
// while staying within maxChars. A sentence longer than maxChars is split at
// the last space that fits, or hard-split when it has none.
// If maxChars <= 0 the trimmed text is returned as a single chunk.
func ChunkBySentence(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, para := range splitParagraphs(text) {
		for _, s := range splitSentences(para) {
			for _, piece := range splitLong(s, maxChars) {
				if current.Len() > 0 && current.Len()+1+len(piece) > maxChars {
					flush()
				}
				if current.Len() > 0 {
					current.WriteByte(' ')
				}
				current.WriteString(piece)
			}
		}
		// Paragraphs never share a chunk.
		flush()
	}

	return chunks
}

func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			paras = append(paras, p)
		}
	}

	return paras
}

// splitSentences splits text on sentence-ending punctuation (., !, ?),
// keeping the terminator attached to its sentence.
// Empty segments are dropped.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(text[start : i+1])
			if s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}

	if start < len(text) {
		s := strings.TrimSpace(text[start:])
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}

func splitLong(s string, maxChars int) []string {
	var out []string
	for len(s) > maxChars {
		cut := strings.LastIndexByte(s[:maxChars+1], ' ')
		if cut <= 0 {
			cut = runeBoundary(s, maxChars)
		}
		out = append(out, strings.TrimSpace(s[:cut]))
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		out = append(out, s)
	}

	return out
}

// runeBoundary returns the largest index <= n that starts a UTF-8 rune.
func runeBoundary(s string, n int) int {
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	if n == 0 {
		return len(s)
	}

	return n
}
