package tracker

import (
	"sort"
	"strings"
)

// ThemeCount is one recurring theme tallied across a batch of summaries.
type ThemeCount struct {
	Theme  string
	Count  int
	Brands []string
}

// TallyThemes counts theme occurrences across a batch, folding case so "Safety" and
// "safety" tally together. The first-seen spelling is the one reported. Results are
// ordered by descending count, ties by first appearance.
func TallyThemes(records []SummaryRecord) []ThemeCount {
	type bucket struct {
		theme  string
		count  int
		order  int
		brands []string
		seen   map[string]bool
	}
	byKey := map[string]*bucket{}
	var buckets []*bucket

	for _, rec := range records {
		for _, theme := range rec.Themes {
			theme = strings.TrimSpace(theme)
			if theme == "" {
				continue
			}
			key := strings.ToLower(theme)
			b := byKey[key]
			if b == nil {
				b = &bucket{theme: theme, order: len(buckets), seen: map[string]bool{}}
				byKey[key] = b
				buckets = append(buckets, b)
			}
			b.count++
			if rec.Humanoid != "" && !b.seen[rec.Humanoid] {
				b.seen[rec.Humanoid] = true
				b.brands = append(b.brands, rec.Humanoid)
			}
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].count != buckets[j].count {
			return buckets[i].count > buckets[j].count
		}
		return buckets[i].order < buckets[j].order
	})

	out := make([]ThemeCount, len(buckets))
	for i, b := range buckets {
		out[i] = ThemeCount{Theme: b.theme, Count: b.count, Brands: b.brands}
	}
	return out
}
