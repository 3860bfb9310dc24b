package scoring

import (
	"strings"
	"unicode"

	"culture_metrics/internal/domain"
)

// Hits is the keyword-hit count of one review on one dimension.
// Unipolar dimensions only use A.
type Hits struct {
	A int
	B int
}

func (h Hits) Total() int { return h.A + h.B }

// ScoredReview holds the hit counts of one review on every dimension.
type ScoredReview map[domain.Dimension]Hits

// Score counts non-overlapping, word-bounded occurrences of each phrase of each
// pole in text. Empty text yields zero counts on every dimension.
func Score(text string, d *Dictionary) ScoredReview {
	out := make(ScoredReview, len(d.entries))
	norm := normalizeText(text)
	empty := strings.TrimSpace(norm) == ""
	for dim, e := range d.entries {
		var h Hits
		if !empty {
			h.A = countPole(norm, e.Poles[0])
			if len(e.Poles) > 1 {
				h.B = countPole(norm, e.Poles[1])
			}
		}
		out[dim] = h
	}
	return out
}

func countPole(text string, p Pole) int {
	n := 0
	for _, phrase := range p.Phrases {
		n += countPhrase(text, phrase)
	}
	return n
}

// countPhrase expects text from normalizeText: single spaces between tokens
// and a space at both ends, so every token boundary is a space.
func countPhrase(text, phrase string) int {
	if phrase == "" {
		return 0
	}
	n, i := 0, 0
	for i < len(text) {
		j := strings.Index(text[i:], phrase)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(phrase)
		if start > 0 && text[start-1] == ' ' && end < len(text) && text[end] == ' ' {
			n++
			i = end
			continue
		}
		i = start + 1
	}
	return n
}

// normalizeText case-folds and replaces every run of characters that are not
// letters, digits, hyphens or apostrophes with a single space.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	sep := true
	for _, r := range s {
		switch {
		case r == '’' || r == '‘':
			r = '\''
		case r == '‐' || r == '‑':
			r = '-'
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'' {
			b.WriteRune(unicode.ToLower(r))
			sep = false
			continue
		}
		if !sep {
			b.WriteByte(' ')
			sep = true
		}
	}
	if !sep {
		b.WriteByte(' ')
	}
	return b.String()
}

func normalizePhrase(p string) string {
	return strings.TrimSpace(normalizeText(p))
}
