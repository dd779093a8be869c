package speech

import "strings"

// SplitText breaks text into sentence-sized segments suitable for
// individual synthesis. A segment ends after sentence-final punctuation
// or at a line break. Whitespace-only segments are dropped.
func SplitText(text string) []string {
	var (
		segments []string
		b        strings.Builder
	)
	flush := func() {
		s := strings.TrimSpace(b.String())
		b.Reset()
		if s != "" {
			segments = append(segments, s)
		}
	}

	for _, r := range text {
		if r == '\n' || r == '\r' {
			flush()
			continue
		}
		b.WriteRune(r)
		if isSentenceEnd(r) {
			flush()
		}
	}
	flush()
	return segments
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '。', '．', '！', '？', '!', '?':
		return true
	}
	return false
}
