package analysis

import (
	"testing"

	"github.com/deepcogs/deepcogs/internal/discogs"
)

func masterRelease(id, master int, styles ...string) discogs.Release {
	return discogs.Release{
		ID: id,
		BasicInformation: discogs.BasicInformation{
			ID:       id,
			MasterID: master,
			Styles:   styles,
		},
	}
}

func TestCompareIdenticalCollectionsScoreFull(t *testing.T) {
	collection := []discogs.Release{
		masterRelease(1, 10, "Techno"),
		masterRelease(2, 20, "House"),
		masterRelease(3, 30, "Techno", "Ambient"),
	}

	comparison := Compare(collection, collection)
	if comparison.Score != 100 {
		t.Errorf("Score = %d, want 100 for identical collections", comparison.Score)
	}
	if comparison.OverlapCount != 3 {
		t.Errorf("OverlapCount = %d, want 3", comparison.OverlapCount)
	}
	if comparison.OnlyMineCount != 0 || comparison.OnlyTheirsCount != 0 {
		t.Errorf("only counts = %d/%d, want 0/0",
			comparison.OnlyMineCount, comparison.OnlyTheirsCount)
	}
	if comparison.OverlapRatio != 1 {
		t.Errorf("OverlapRatio = %v, want 1", comparison.OverlapRatio)
	}
}

func TestCompareDisjointStylesScoreZero(t *testing.T) {
	mine := []discogs.Release{masterRelease(1, 10, "Techno")}
	theirs := []discogs.Release{masterRelease(2, 20, "Country")}

	comparison := Compare(mine, theirs)
	if comparison.Score != 0 {
		t.Errorf("Score = %d, want 0 for disjoint styles", comparison.Score)
	}
	if comparison.OverlapCount != 0 || comparison.OverlapRatio != 0 {
		t.Errorf("overlap = %d ratio %v, want none",
			comparison.OverlapCount, comparison.OverlapRatio)
	}
}

func TestCompareNoStylesScoreZero(t *testing.T) {
	mine := []discogs.Release{masterRelease(1, 10)}
	theirs := []discogs.Release{masterRelease(1, 10)}

	comparison := Compare(mine, theirs)
	if comparison.Score != 0 {
		t.Errorf("Score = %d, want 0 when a style vector has no magnitude", comparison.Score)
	}
	// The records still overlap even though taste can't be measured.
	if comparison.OverlapCount != 1 {
		t.Errorf("OverlapCount = %d, want 1", comparison.OverlapCount)
	}
}

func TestCompareScoreIgnoresCollectionSize(t *testing.T) {
	mine := []discogs.Release{masterRelease(1, 10, "Techno")}
	var theirs []discogs.Release
	for i := 0; i < 50; i++ {
		theirs = append(theirs, masterRelease(100+i, 0, "Techno"))
	}

	comparison := Compare(mine, theirs)
	if comparison.Score != 100 {
		t.Errorf("Score = %d, want 100: both collections are pure Techno", comparison.Score)
	}
}

func TestCompareUnknownMastersNeverOverlap(t *testing.T) {
	mine := []discogs.Release{masterRelease(1, 0, "Techno")}
	theirs := []discogs.Release{masterRelease(2, 0, "Techno")}

	comparison := Compare(mine, theirs)
	if comparison.OverlapCount != 0 {
		t.Errorf("OverlapCount = %d, want 0: master id 0 means unknown", comparison.OverlapCount)
	}
	if comparison.OnlyMineCount != 1 || comparison.OnlyTheirsCount != 1 {
		t.Errorf("only counts = %d/%d, want 1/1",
			comparison.OnlyMineCount, comparison.OnlyTheirsCount)
	}
}

func TestCompareOverlapReleases(t *testing.T) {
	mine := []discogs.Release{
		masterRelease(1, 10, "Techno"),
		masterRelease(2, 20, "House"),
		masterRelease(3, 20, "House"), // second copy of the same master
	}
	theirs := []discogs.Release{
		masterRelease(4, 20, "House"),
		masterRelease(5, 30, "Ambient"),
	}

	comparison := Compare(mine, theirs)
	if len(comparison.Overlap) != 1 {
		t.Fatalf("len(Overlap) = %d, want 1", len(comparison.Overlap))
	}
	if comparison.Overlap[0].ID != 2 {
		t.Errorf("Overlap[0].ID = %d, want 2 (my first copy of master 20)", comparison.Overlap[0].ID)
	}
	if comparison.OverlapRatio != 1.0/3.0 {
		t.Errorf("OverlapRatio = %v, want 1/3", comparison.OverlapRatio)
	}
}

func TestCompareSharedStylesNeedBothAboveFloor(t *testing.T) {
	// Mine: Techno 50%, Dub 50%. Theirs: Techno 50%, Dub 2% (1 in 50).
	mine := []discogs.Release{
		masterRelease(1, 10, "Techno"),
		masterRelease(2, 20, "Dub"),
	}
	var theirs []discogs.Release
	for i := 0; i < 25; i++ {
		theirs = append(theirs, masterRelease(100+i, 0, "Techno"))
	}
	theirs = append(theirs, masterRelease(200, 0, "Dub"))
	for i := 0; i < 24; i++ {
		theirs = append(theirs, masterRelease(300+i, 0, "Jazz"))
	}

	comparison := Compare(mine, theirs)
	if len(comparison.SharedStyles) != 1 || comparison.SharedStyles[0].Style != "Techno" {
		t.Errorf("SharedStyles = %v, want only Techno (Dub is marginal on their side)",
			comparison.SharedStyles)
	}
}

func TestCompareBiggestDifferences(t *testing.T) {
	// Mine is all Techno, theirs is all Country: both styles differ by 100
	// points, but Techno and Country are also not top overlaps (there are
	// none), so both qualify.
	mine := []discogs.Release{masterRelease(1, 10, "Techno")}
	theirs := []discogs.Release{masterRelease(2, 20, "Country")}

	comparison := Compare(mine, theirs)
	if len(comparison.BiggestDifferences) != 2 {
		t.Fatalf("BiggestDifferences = %v, want 2 entries", comparison.BiggestDifferences)
	}
	for _, share := range comparison.BiggestDifferences {
		if share.Style != "Techno" && share.Style != "Country" {
			t.Errorf("unexpected difference style %q", share.Style)
		}
	}
}

func TestCompareTopOverlapsExcludedFromDifferences(t *testing.T) {
	// Both collect Techno heavily; mine adds Jazz, theirs adds Country.
	mine := []discogs.Release{
		masterRelease(1, 0, "Techno"),
		masterRelease(2, 0, "Techno"),
		masterRelease(3, 0, "Jazz"),
	}
	theirs := []discogs.Release{
		masterRelease(4, 0, "Techno"),
		masterRelease(5, 0, "Country"),
	}

	comparison := Compare(mine, theirs)
	if len(comparison.TopOverlaps) != 1 || comparison.TopOverlaps[0].Style != "Techno" {
		t.Fatalf("TopOverlaps = %v, want just Techno", comparison.TopOverlaps)
	}
	for _, share := range comparison.BiggestDifferences {
		if share.Style == "Techno" {
			t.Error("Techno is a top overlap and must not appear as a difference")
		}
	}
}

func TestCompareScoreBounds(t *testing.T) {
	collections := [][]discogs.Release{
		nil,
		{masterRelease(1, 10, "Techno")},
		{masterRelease(2, 20, "Techno", "House", "Ambient")},
		{masterRelease(3, 0)},
	}
	for _, mine := range collections {
		for _, theirs := range collections {
			score := Compare(mine, theirs).Score
			if score < 0 || score > 100 {
				t.Errorf("score %d out of bounds", score)
			}
		}
	}
}
