// Package dialect infers the field delimiter of delimited text.
package dialect

import (
	"errors"
	"strings"
)

// SampleSize is how much of the decoded text Sniff looks at.
const SampleSize = 4096

// DefaultDelimiter is used when inference fails.
const DefaultDelimiter = ','

// Candidates are the delimiters considered, in tie-break order.
var Candidates = []rune{',', ';', '\t', '|'}

var errUndetermined = errors.New("could not determine delimiter")

// Detect returns the inferred delimiter of text, or DefaultDelimiter.
func Detect(text string) rune {
	d, err := Sniff(Sample(text))
	if err != nil {
		return DefaultDelimiter
	}
	return d
}

// Sample cuts text to SampleSize bytes, dropping a trailing partial line
// when more lines follow.
func Sample(text string) string {
	if len(text) <= SampleSize {
		return text
	}
	s := text[:SampleSize]
	if i := strings.LastIndexByte(s, '\n'); i > 0 {
		s = s[:i]
	}
	return s
}

// Sniff picks the candidate whose per-line field count is most consistent
// across the sample. A candidate must appear on at least one line; ties go
// to the higher field count, then to the earlier candidate.
func Sniff(sample string) (rune, error) {
	lines := sampleLines(sample)
	if len(lines) == 0 {
		return 0, errUndetermined
	}

	var (
		best      rune
		bestScore float64
		bestCount int
	)
	for _, c := range Candidates {
		counts := make([]int, len(lines))
		for i, l := range lines {
			counts[i] = countOutsideQuotes(l, c)
		}
		mode, freq := modeOf(counts)
		if mode == 0 {
			continue
		}
		score := float64(freq) / float64(len(lines))
		if score > bestScore || (score == bestScore && mode > bestCount) {
			best, bestScore, bestCount = c, score, mode
		}
	}

	// Fewer than half the lines agreeing is not a dialect.
	if best == 0 || bestScore < 0.5 {
		return 0, errUndetermined
	}
	return best, nil
}

func sampleLines(sample string) []string {
	raw := strings.Split(strings.ReplaceAll(sample, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// countOutsideQuotes counts c in l, ignoring double-quoted sections.
func countOutsideQuotes(l string, c rune) int {
	n := 0
	quoted := false
	for _, r := range l {
		switch {
		case r == '"':
			quoted = !quoted
		case r == c && !quoted:
			n++
		}
	}
	return n
}

// modeOf returns the most frequent value and its frequency. Larger values
// win ties so a stray delimiter-free line does not zero the mode.
func modeOf(xs []int) (mode, freq int) {
	seen := make(map[int]int, len(xs))
	for _, x := range xs {
		seen[x]++
	}
	for v, f := range seen {
		if f > freq || (f == freq && v > mode) {
			mode, freq = v, f
		}
	}
	return mode, freq
}
