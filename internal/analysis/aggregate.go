package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/deepcogs/deepcogs/internal/discogs"
)

const (
	maxTopGenres  = 8
	maxTopStyles  = 10
	maxTopLabels  = 10
	maxTopFormats = 5
)

var (
	testPressPattern = regexp.MustCompile(`(?i)test\s*press`)
	promoPattern     = regexp.MustCompile(`(?i)promo|white\s*label`)
	limitedPattern   = regexp.MustCompile(`(?i)limited|numbered`)
	repressPattern   = regexp.MustCompile(`(?i)reissue|re-issue|remaster|repress|re-press|2nd\s*press|second\s*press|180\s*g`)
)

// counter accumulates name frequencies while remembering the order names
// were first seen, so that ties rank in encounter order.
type counter struct {
	counts    map[string]int
	firstSeen map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int), firstSeen: make(map[string]int)}
}

func (c *counter) add(name string) {
	if name == "" {
		return
	}
	if _, ok := c.counts[name]; !ok {
		c.firstSeen[name] = len(c.firstSeen)
	}
	c.counts[name]++
}

func (c *counter) ranked(limit int) []NameCount {
	result := make([]NameCount, 0, len(c.counts))
	for name, count := range c.counts {
		result = append(result, NameCount{Name: name, Count: count})
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return c.firstSeen[result[i].Name] < c.firstSeen[result[j].Name]
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Aggregate computes the DNA profile for a collection. It accepts whatever
// shape the releases are in; missing fields simply contribute nothing.
func Aggregate(releases []discogs.Release) DNA {
	genres := newCounter()
	styles := newCounter()
	labels := newCounter()
	formats := newCounter()
	decades := newCounter()

	dna := DNA{TotalReleases: len(releases)}

	for _, release := range releases {
		info := release.BasicInformation
		for _, genre := range info.Genres {
			genres.add(genre)
		}
		for _, style := range info.Styles {
			styles.add(style)
		}
		for _, label := range info.Labels {
			if label.Name == "Not On Label" {
				continue
			}
			labels.add(label.Name)
		}
		for _, format := range info.Formats {
			formats.add(format.Name)
		}

		if info.Year > 1900 {
			decades.add(fmt.Sprintf("%ds", info.Year/10*10))
			if dna.OldestYear == 0 || info.Year < dna.OldestYear {
				dna.OldestYear = info.Year
			}
			if info.Year > dna.NewestYear {
				dna.NewestYear = info.Year
			}
		}

		haystack := formatText(info)
		if testPressPattern.MatchString(haystack) {
			dna.Oddities.TestPressings++
		}
		if promoPattern.MatchString(haystack) {
			dna.Oddities.Promos++
		}
		if limitedPattern.MatchString(haystack) {
			dna.Oddities.Limited++
		}
		if repressPattern.MatchString(haystack) {
			dna.Oddities.Represses++
		}
	}

	dna.UniqueGenres = len(genres.counts)
	dna.UniqueLabels = len(labels.counts)
	dna.TopGenres = genres.ranked(maxTopGenres)
	dna.TopStyles = styles.ranked(maxTopStyles)
	dna.TopLabels = labels.ranked(maxTopLabels)
	dna.TopFormats = formats.ranked(maxTopFormats)

	allDecades := decades.ranked(0)
	sort.Slice(allDecades, func(i, j int) bool {
		return allDecades[i].Name < allDecades[j].Name
	})
	dna.Decades = allDecades

	return dna
}

// formatText flattens a release's format names, free text, and descriptions
// into one searchable string.
func formatText(info discogs.BasicInformation) string {
	var parts []string
	for _, format := range info.Formats {
		parts = append(parts, format.Name)
		parts = append(parts, format.Descriptions...)
	}
	return strings.Join(parts, " ")
}

// StylePercentages maps each style to its share of the collection, as a
// percentage of total releases. An empty collection yields an empty map.
func StylePercentages(releases []discogs.Release) map[string]float64 {
	if len(releases) == 0 {
		return map[string]float64{}
	}
	counts := make(map[string]int)
	for _, release := range releases {
		for _, style := range release.BasicInformation.Styles {
			if style != "" {
				counts[style]++
			}
		}
	}
	percentages := make(map[string]float64, len(counts))
	for style, count := range counts {
		percentages[style] = float64(count) / float64(len(releases)) * 100
	}
	return percentages
}

// ArtistsByStyle maps each style to the artists whose releases carry it,
// ranked by how many of the style's releases each artist appears on. Ties
// keep the order the collection first mentions them.
func ArtistsByStyle(releases []discogs.Release) map[string][]string {
	counters := make(map[string]*counter)
	for _, release := range releases {
		info := release.BasicInformation
		for _, style := range info.Styles {
			if style == "" {
				continue
			}
			if counters[style] == nil {
				counters[style] = newCounter()
			}
			for _, artist := range info.Artists {
				counters[style].add(artist.Name)
			}
		}
	}

	result := make(map[string][]string, len(counters))
	for style, artists := range counters {
		ranked := artists.ranked(0)
		names := make([]string, 0, len(ranked))
		for _, entry := range ranked {
			names = append(names, entry.Name)
		}
		result[style] = names
	}
	return result
}

// OwnedMasters collects the set of known master ids in a collection.
// Releases without a master id contribute nothing.
func OwnedMasters(releases []discogs.Release) map[int]bool {
	owned := make(map[int]bool)
	for _, release := range releases {
		if master, ok := release.Master(); ok {
			owned[master] = true
		}
	}
	return owned
}
