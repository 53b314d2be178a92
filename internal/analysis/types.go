// Package analysis computes collection statistics from Discogs data already
// in memory. Nothing here does I/O: malformed or partial releases contribute
// whatever fields they do carry and are otherwise skipped, never surfaced as
// errors.
package analysis

import "github.com/deepcogs/deepcogs/internal/discogs"

// NameCount is one ranked entry of a frequency table.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Oddities counts the pressing peculiarities hiding in a collection. A
// release can land in more than one bucket.
type Oddities struct {
	TestPressings int `json:"testPressings"`
	Promos        int `json:"promos"`
	Limited       int `json:"limited"`
	Represses     int `json:"represses"`
}

// DNA is the aggregate profile of one collection.
type DNA struct {
	TotalReleases int `json:"totalReleases"`
	UniqueGenres  int `json:"uniqueGenres"`
	UniqueLabels  int `json:"uniqueLabels"`

	// OldestYear and NewestYear are 0 when no release carries a usable year.
	OldestYear int `json:"oldestYear,omitempty"`
	NewestYear int `json:"newestYear,omitempty"`

	TopGenres  []NameCount `json:"topGenres"`
	TopStyles  []NameCount `json:"topStyles"`
	TopLabels  []NameCount `json:"topLabels"`
	TopFormats []NameCount `json:"topFormats"`
	Decades    []NameCount `json:"decades"`

	Oddities Oddities `json:"oddities"`
}

// Rarity is the scored result for a single release.
type Rarity struct {
	Score   int      `json:"score"`
	Factors []string `json:"factors,omitempty"`
}

// RareRelease pairs a release with its rarity score for ranked output.
type RareRelease struct {
	Release discogs.Release `json:"release"`
	Score   int             `json:"score"`
	Factors []string        `json:"factors,omitempty"`
}

// StyleShare is one style's weight in two collections, as percentages of
// each collection's size.
type StyleShare struct {
	Style        string  `json:"style"`
	MyPercent    float64 `json:"myPercent"`
	TheirPercent float64 `json:"theirPercent"`
}

// StyleOverlap is one style's share of the compatibility score.
type StyleOverlap struct {
	Style   string  `json:"style"`
	Percent float64 `json:"percent"`
}

// Comparison is the result of comparing two collections.
type Comparison struct {
	// Score is taste compatibility on a 0 to 100 scale, from the cosine
	// similarity of the two style-percentage vectors.
	Score int `json:"score"`

	OverlapCount    int     `json:"overlapCount"`
	OnlyMineCount   int     `json:"onlyMineCount"`
	OnlyTheirsCount int     `json:"onlyTheirsCount"`
	OverlapRatio    float64 `json:"overlapRatio"`

	SharedStyles       []StyleShare   `json:"sharedStyles"`
	TopOverlaps        []StyleOverlap `json:"topOverlaps"`
	BiggestDifferences []StyleShare   `json:"biggestDifferences"`

	// Overlap holds the caller's copies of the releases both collections
	// share, in the caller's collection order.
	Overlap []discogs.Release `json:"overlap"`
}

// TradeMatch is a record one side owns that the other side wants.
type TradeMatch struct {
	Release discogs.Release       `json:"release"`
	Want    discogs.WantlistEntry `json:"want"`
}
