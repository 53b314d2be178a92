package analysis

import (
	"errors"
	"math"
	"sort"

	"github.com/deepcogs/deepcogs/internal/discogs"
)

// Sentinel errors for the preconditions callers must check before comparing.
// Compare itself never fails; a comparison of two valid collections always
// produces a result.
var (
	ErrSelfCompare     = errors.New("cannot compare a collection with itself")
	ErrEmptyCollection = errors.New("collection is empty or private")
)

const (
	maxSharedStyles = 5
	maxTopOverlaps  = 5
	maxDifferences  = 3

	sharedStyleFloor = 3.0
	differenceFloor  = 3.0
	presenceFloor    = 2.0
)

// Compare measures how compatible two collections are. The headline score
// is the cosine similarity of the two style-percentage vectors, so two
// collections of very different sizes but the same taste still score high.
func Compare(mine, theirs []discogs.Release) Comparison {
	myStyles := StylePercentages(mine)
	theirStyles := StylePercentages(theirs)

	comparison := Comparison{}
	comparison.Score, comparison.TopOverlaps = cosineScore(myStyles, theirStyles)
	comparison.SharedStyles = sharedStyles(myStyles, theirStyles)
	comparison.BiggestDifferences = biggestDifferences(myStyles, theirStyles, comparison.TopOverlaps)

	myMasters := OwnedMasters(mine)
	theirMasters := OwnedMasters(theirs)

	shared := make(map[int]bool)
	union := make(map[int]bool)
	for master := range myMasters {
		union[master] = true
		if theirMasters[master] {
			shared[master] = true
		}
	}
	for master := range theirMasters {
		union[master] = true
	}

	comparison.OverlapCount = len(shared)
	comparison.OnlyMineCount = countOutside(mine, shared)
	comparison.OnlyTheirsCount = countOutside(theirs, shared)
	if len(union) > 0 {
		comparison.OverlapRatio = float64(len(shared)) / float64(len(union))
	}

	seen := make(map[int]bool)
	for _, release := range mine {
		master, ok := release.Master()
		if !ok || !shared[master] || seen[master] {
			continue
		}
		seen[master] = true
		comparison.Overlap = append(comparison.Overlap, release)
	}

	return comparison
}

// countOutside counts the releases not covered by the shared master set.
// Releases without a master id can never be shared, so they always count.
func countOutside(releases []discogs.Release, shared map[int]bool) int {
	count := 0
	for _, release := range releases {
		master, ok := release.Master()
		if !ok || !shared[master] {
			count++
		}
	}
	return count
}

// cosineScore returns the 0 to 100 compatibility score and the styles that
// contribute most of it. When either vector is all zeros there is no angle
// to measure and the score is 0.
func cosineScore(mine, theirs map[string]float64) (int, []StyleOverlap) {
	var dot, myNorm, theirNorm float64
	var overlaps []StyleOverlap

	for style, myPercent := range mine {
		myNorm += myPercent * myPercent
		if theirPercent := theirs[style]; theirPercent > 0 {
			product := myPercent * theirPercent
			dot += product
			overlaps = append(overlaps, StyleOverlap{Style: style, Percent: product})
		}
	}
	for _, theirPercent := range theirs {
		theirNorm += theirPercent * theirPercent
	}

	if myNorm == 0 || theirNorm == 0 || dot == 0 {
		return 0, nil
	}

	score := int(math.Round(dot / (math.Sqrt(myNorm) * math.Sqrt(theirNorm)) * 100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	// Express each overlapping style as its share of the dot product.
	for i := range overlaps {
		overlaps[i].Percent = overlaps[i].Percent / dot * 100
	}
	sort.Slice(overlaps, func(i, j int) bool {
		if overlaps[i].Percent != overlaps[j].Percent {
			return overlaps[i].Percent > overlaps[j].Percent
		}
		return overlaps[i].Style < overlaps[j].Style
	})
	if len(overlaps) > maxTopOverlaps {
		overlaps = overlaps[:maxTopOverlaps]
	}

	return score, overlaps
}

// sharedStyles lists styles that matter to both sides, ranked by the
// smaller of the two shares so marginal interests don't crowd out mutual
// staples.
func sharedStyles(mine, theirs map[string]float64) []StyleShare {
	var shares []StyleShare
	for style, myPercent := range mine {
		theirPercent := theirs[style]
		if myPercent >= sharedStyleFloor && theirPercent >= sharedStyleFloor {
			shares = append(shares, StyleShare{
				Style:        style,
				MyPercent:    myPercent,
				TheirPercent: theirPercent,
			})
		}
	}
	sort.Slice(shares, func(i, j int) bool {
		iMin := math.Min(shares[i].MyPercent, shares[i].TheirPercent)
		jMin := math.Min(shares[j].MyPercent, shares[j].TheirPercent)
		if iMin != jMin {
			return iMin > jMin
		}
		return shares[i].Style < shares[j].Style
	})
	if len(shares) > maxSharedStyles {
		shares = shares[:maxSharedStyles]
	}
	return shares
}

// biggestDifferences finds the styles where the two collections diverge
// most, skipping anything already reported as a top overlap.
func biggestDifferences(mine, theirs map[string]float64, overlaps []StyleOverlap) []StyleShare {
	reported := make(map[string]bool, len(overlaps))
	for _, overlap := range overlaps {
		reported[overlap.Style] = true
	}

	styles := make(map[string]bool, len(mine)+len(theirs))
	for style := range mine {
		styles[style] = true
	}
	for style := range theirs {
		styles[style] = true
	}

	var differences []StyleShare
	for style := range styles {
		if reported[style] {
			continue
		}
		myPercent := mine[style]
		theirPercent := theirs[style]
		diff := math.Abs(myPercent - theirPercent)
		if diff > differenceFloor && (myPercent > presenceFloor || theirPercent > presenceFloor) {
			differences = append(differences, StyleShare{
				Style:        style,
				MyPercent:    myPercent,
				TheirPercent: theirPercent,
			})
		}
	}
	sort.Slice(differences, func(i, j int) bool {
		iDiff := math.Abs(differences[i].MyPercent - differences[i].TheirPercent)
		jDiff := math.Abs(differences[j].MyPercent - differences[j].TheirPercent)
		if iDiff != jDiff {
			return iDiff > jDiff
		}
		return differences[i].Style < differences[j].Style
	})
	if len(differences) > maxDifferences {
		differences = differences[:maxDifferences]
	}
	return differences
}
