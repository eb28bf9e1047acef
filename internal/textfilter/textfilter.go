// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textfilter narrows a contract package to the passages around
// search terms so that long document sets fit a model's context window.
package textfilter

import (
	"sort"
	"strings"
)

// Filter keeps WindowSize words centred on every search term match.
// Windows closer than MergeGap words are merged into one section.
type Filter struct {
	Terms      []string
	WindowSize int
	MergeGap   int
}

// Stats describes one filtering pass.
type Stats struct {
	OriginalWords int
	FilteredWords int
	Matches       int
	Sections      int
}

// Reduction returns the percentage of words removed.
func (s Stats) Reduction() float64 {
	if s.OriginalWords == 0 {
		return 0
	}
	return float64(s.OriginalWords-s.FilteredWords) / float64(s.OriginalWords) * 100
}

type window struct {
	start, end int
}

// Apply returns the filtered text. Empty text or an empty term list returns
// text unchanged; text with no matches returns "".
func (f Filter) Apply(text string) (string, Stats) {
	terms := f.normalizedTerms()
	if strings.TrimSpace(text) == "" || len(terms) == 0 {
		return text, Stats{}
	}

	words := strings.Fields(text)
	stats := Stats{OriginalWords: len(words)}

	positions := matchPositions(words, terms)
	stats.Matches = len(positions)
	if len(positions) == 0 {
		return "", stats
	}

	merged := mergeWindows(f.windows(positions, len(words)), f.MergeGap)
	sections := make([]string, 0, len(merged))
	for _, w := range merged {
		sections = append(sections, strings.Join(words[w.start:w.end], " "))
		stats.FilteredWords += w.end - w.start
	}
	stats.Sections = len(merged)
	return strings.Join(sections, "\n\n"), stats
}

func (f Filter) normalizedTerms() [][]string {
	var out [][]string
	for _, t := range f.Terms {
		if parts := strings.Fields(strings.ToLower(t)); len(parts) > 0 {
			out = append(out, parts)
		}
	}
	return out
}

// matchPositions returns the indexes of words where any term starts. Each
// term word must be a substring of the corresponding consecutive word.
func matchPositions(words []string, terms [][]string) []int {
	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
	}

	var positions []int
	for i := range lower {
		for _, term := range terms {
			if matchesAt(lower, i, term) {
				positions = append(positions, i)
				break
			}
		}
	}
	return positions
}

func matchesAt(words []string, i int, term []string) bool {
	if i+len(term) > len(words) {
		return false
	}
	for j, part := range term {
		if !strings.Contains(words[i+j], part) {
			return false
		}
	}
	return true
}

func (f Filter) windows(positions []int, total int) []window {
	half := f.WindowSize / 2
	seen := make(map[window]bool, len(positions))
	var out []window
	for _, p := range positions {
		w := window{start: max(0, p-half), end: min(total, p+half)}
		if w.end <= w.start {
			w.end = min(total, w.start+1)
		}
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].start != out[j].start {
			return out[i].start < out[j].start
		}
		return out[i].end < out[j].end
	})
	return out
}

func mergeWindows(ws []window, gap int) []window {
	if len(ws) == 0 {
		return nil
	}
	merged := []window{ws[0]}
	for _, w := range ws[1:] {
		cur := &merged[len(merged)-1]
		if w.start <= cur.end+gap {
			cur.end = max(cur.end, w.end)
			continue
		}
		merged = append(merged, w)
	}
	return merged
}
