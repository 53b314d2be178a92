package analysis

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/deepcogs/deepcogs/internal/discogs"
)

// rarityRule adds points when its pattern appears in a release's format
// text. Every matching rule contributes; a white label promo collects both
// the white label and the promo points.
type rarityRule struct {
	label   string
	pattern *regexp.Regexp
	points  int
}

var rarityRules = []rarityRule{
	{"Acetate", regexp.MustCompile(`(?i)acetate`), 60},
	{"Test pressing", regexp.MustCompile(`(?i)test\s*press`), 50},
	{"White label", regexp.MustCompile(`(?i)white\s*label`), 35},
	{"Promo", regexp.MustCompile(`(?i)\bpromo`), 30},
	{"Limited edition", regexp.MustCompile(`(?i)limited`), 25},
	{"DJ copy", regexp.MustCompile(`(?i)dj\s*copy`), 25},
	{"Numbered", regexp.MustCompile(`(?i)numbered`), 20},
	{"First pressing", regexp.MustCompile(`(?i)first\s*press`), 20},
	{"Bootleg", regexp.MustCompile(`(?i)bootleg`), 20},
	{"Mono", regexp.MustCompile(`(?i)\bmono\b`), 20},
	{"Original pressing", regexp.MustCompile(`(?i)\boriginal\b`), 15},
	{"Picture disc", regexp.MustCompile(`(?i)picture\s*disc`), 15},
	{"Box set", regexp.MustCompile(`(?i)box\s*set`), 15},
	{"Colored vinyl", regexp.MustCompile(`(?i)colou?red|splatter|marble`), 10},
	{"180 gram", regexp.MustCompile(`(?i)180\s*g`), 5},
	{"Gatefold", regexp.MustCompile(`(?i)gatefold`), 5},
	{"Stereo", regexp.MustCompile(`(?i)\bstereo\b`), 5},
	{"Reissue", regexp.MustCompile(`(?i)reissue|re-issue`), -10},
	{"Remaster", regexp.MustCompile(`(?i)remaster`), -5},
}

// ageBands award a single bonus for the oldest band a release clears.
var ageBands = []struct {
	minAge int
	label  string
	points int
}{
	{50, "50+ years old", 25},
	{40, "40+ years old", 20},
	{30, "30+ years old", 15},
	{20, "20+ years old", 10},
}

// ScoreRelease rates how collectible a single pressing is. The score is a
// heuristic over the release's format descriptions and age; it can go
// negative for a run-of-the-mill remastered reissue.
func ScoreRelease(release discogs.Release) Rarity {
	return scoreReleaseAt(release, time.Now().Year())
}

func scoreReleaseAt(release discogs.Release, nowYear int) Rarity {
	info := release.BasicInformation
	haystack := formatText(info)

	var rarity Rarity
	for _, rule := range rarityRules {
		if rule.pattern.MatchString(haystack) {
			rarity.Score += rule.points
			rarity.Factors = append(rarity.Factors, rule.label)
		}
	}

	if info.Year > 1900 && info.Year <= nowYear {
		age := nowYear - info.Year
		for _, band := range ageBands {
			if age >= band.minAge {
				rarity.Score += band.points
				rarity.Factors = append(rarity.Factors, band.label)
				break
			}
		}
	}

	points, labels := singleBonus(info)
	rarity.Score += points
	rarity.Factors = append(rarity.Factors, labels...)

	return rarity
}

// singleBonus detects 7" and 12" vinyl singles. A 12" only counts when the
// descriptions also say Single; plenty of 12" records are plain LPs. The
// two checks are independent, so a release carrying both formats collects
// both bonuses.
func singleBonus(info discogs.BasicInformation) (int, []string) {
	var seven, twelve bool
	for _, format := range info.Formats {
		if !strings.EqualFold(format.Name, "Vinyl") {
			continue
		}
		descriptions := strings.Join(format.Descriptions, " ")
		if strings.Contains(descriptions, `7"`) {
			seven = true
		}
		if strings.Contains(descriptions, `12"`) && strings.Contains(strings.ToLower(descriptions), "single") {
			twelve = true
		}
	}

	var points int
	var labels []string
	if seven {
		points += 5
		labels = append(labels, `7" single`)
	}
	if twelve {
		points += 8
		labels = append(labels, `12" single`)
	}
	return points, labels
}

// RankRarity scores a whole collection and returns the releases that rate
// above zero, highest first. Ties keep collection order.
func RankRarity(releases []discogs.Release) []RareRelease {
	var ranked []RareRelease
	for _, release := range releases {
		rarity := ScoreRelease(release)
		if rarity.Score <= 0 {
			continue
		}
		ranked = append(ranked, RareRelease{
			Release: release,
			Score:   rarity.Score,
			Factors: rarity.Factors,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
