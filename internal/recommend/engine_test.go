package recommend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/deepcogs/deepcogs/internal/discogs"
	"github.com/deepcogs/deepcogs/internal/lastfm"
)

type fakeSearch struct {
	results map[string][]discogs.SearchResult
	errs    map[string]error
	calls   []discogs.SearchQuery
}

func searchKey(artist, style string) string {
	return artist + "|" + style
}

func (f *fakeSearch) Search(ctx context.Context, q discogs.SearchQuery) ([]discogs.SearchResult, error) {
	f.calls = append(f.calls, q)
	key := searchKey(q.Artist, q.Style)
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.results[key], nil
}

type fakeSimilar struct {
	similars []lastfm.SimilarArtist
	err      error
	calls    [][]string
}

func (f *fakeSimilar) SimilarArtists(ctx context.Context, seeds []string, perArtist int) ([]lastfm.SimilarArtist, error) {
	f.calls = append(f.calls, seeds)
	if f.err != nil {
		return nil, f.err
	}
	if len(seeds) == 0 {
		return nil, lastfm.ErrNoArtists
	}
	return f.similars, nil
}

func similarArtist(name, source string, match float64) lastfm.SimilarArtist {
	return lastfm.SimilarArtist{Name: name, Match: match, SourceArtist: source}
}

func collectionRelease(id, master int, artist string, styles ...string) discogs.Release {
	return discogs.Release{
		ID: id,
		BasicInformation: discogs.BasicInformation{
			ID:       id,
			MasterID: master,
			Styles:   styles,
			Artists:  []discogs.Artist{{Name: artist}},
		},
	}
}

func searchResult(id, master int, title string, wantCount int) discogs.SearchResult {
	return discogs.SearchResult{
		ID:        id,
		MasterID:  master,
		Title:     title,
		Community: discogs.Community{Want: wantCount},
	}
}

func newTestEngine(search *fakeSearch, similar *fakeSimilar) *Engine {
	engine := New(search, similar)
	engine.SetSpacing(0)
	return engine
}

func TestRecommendHappyPath(t *testing.T) {
	collection := []discogs.Release{
		collectionRelease(1, 10, "Can", "Krautrock"),
	}
	similar := &fakeSimilar{similars: []lastfm.SimilarArtist{
		similarArtist("Neu!", "Can", 0.9),
	}}
	search := &fakeSearch{results: map[string][]discogs.SearchResult{
		searchKey("Neu!", "Krautrock"): {
			searchResult(100, 1000, "Neu! - Neu! 75", 5000),
		},
	}}

	result, err := newTestEngine(search, similar).Recommend(context.Background(), collection)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result.Styles) != 1 {
		t.Fatalf("got %d groups, want 1", len(result.Styles))
	}
	group := result.Styles[0]
	if group.Style != "Krautrock" {
		t.Errorf("Style = %q, want Krautrock", group.Style)
	}
	if group.Reason != "Based on Can in your collection" {
		t.Errorf("Reason = %q", group.Reason)
	}
	if len(group.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(group.Recommendations))
	}
	rec := group.Recommendations[0]
	if rec.Artist != "Neu!" || rec.Title != "Neu! 75" || rec.MasterID != 1000 {
		t.Errorf("rec = %+v", rec)
	}
	if rec.SimilarTo != "Can" {
		t.Errorf("SimilarTo = %q, want the collection artist Can", rec.SimilarTo)
	}
	if !result.UsedExternalSimilarity {
		t.Error("UsedExternalSimilarity = false after a successful lookup")
	}
	if len(result.AnalyzedStyles) != 1 || result.AnalyzedStyles[0] != "Krautrock" {
		t.Errorf("AnalyzedStyles = %v, want [Krautrock]", result.AnalyzedStyles)
	}
}

func TestRecommendPoolsSeedsIntoOneLookup(t *testing.T) {
	// Two artists in each of six styles: twelve candidate seeds, which the
	// pool caps at ten, all handed to the similarity provider in one call.
	var collection []discogs.Release
	for i := 0; i < 6; i++ {
		style := fmt.Sprintf("Style %d", i)
		collection = append(collection,
			collectionRelease(i*2+1, i*20+10, fmt.Sprintf("Artist %dA", i), style),
			collectionRelease(i*2+2, i*20+11, fmt.Sprintf("Artist %dB", i), style),
		)
	}
	similar := &fakeSimilar{}
	search := &fakeSearch{}

	if _, err := newTestEngine(search, similar).Recommend(context.Background(), collection); err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(similar.calls) != 1 {
		t.Fatalf("similar provider called %d times, want one pooled call", len(similar.calls))
	}
	seeds := similar.calls[0]
	if len(seeds) != maxSeedPool {
		t.Errorf("pooled %d seeds, want %d", len(seeds), maxSeedPool)
	}
	unique := make(map[string]bool)
	for _, seed := range seeds {
		unique[seed] = true
	}
	if len(unique) != len(seeds) {
		t.Errorf("pool has duplicate seeds: %v", seeds)
	}
}

func TestRecommendAttributesSimilarsToSeedStyle(t *testing.T) {
	collection := []discogs.Release{
		collectionRelease(1, 10, "Can", "Krautrock"),
		collectionRelease(2, 20, "Can", "Krautrock"),
		collectionRelease(3, 30, "Cluster", "Ambient"),
	}
	similar := &fakeSimilar{similars: []lastfm.SimilarArtist{
		similarArtist("Neu!", "Can", 0.9),
		similarArtist("Roedelius", "Cluster", 0.8),
	}}
	search := &fakeSearch{results: map[string][]discogs.SearchResult{
		searchKey("Neu!", "Krautrock"): {
			searchResult(100, 1000, "Neu! - Neu! 75", 5000),
		},
		searchKey("Roedelius", "Ambient"): {
			searchResult(200, 2000, "Roedelius - Durch Die Wüste", 300),
		},
	}}

	result, err := newTestEngine(search, similar).Recommend(context.Background(), collection)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result.Styles) != 2 {
		t.Fatalf("got %d groups, want 2", len(result.Styles))
	}
	byStyle := make(map[string]StyleGroup)
	for _, group := range result.Styles {
		byStyle[group.Style] = group
	}
	if rec := byStyle["Krautrock"].Recommendations[0]; rec.Artist != "Neu!" || rec.SimilarTo != "Can" {
		t.Errorf("Krautrock rec = %+v, want Neu! attributed to Can", rec)
	}
	if rec := byStyle["Ambient"].Recommendations[0]; rec.Artist != "Roedelius" || rec.SimilarTo != "Cluster" {
		t.Errorf("Ambient rec = %+v, want Roedelius attributed to Cluster", rec)
	}
}

func TestRecommendExcludesOwnedMasters(t *testing.T) {
	collection := []discogs.Release{
		collectionRelease(1, 10, "Can", "Krautrock"),
	}
	similar := &fakeSimilar{similars: []lastfm.SimilarArtist{
		similarArtist("Neu!", "Can", 0.9),
	}}
	search := &fakeSearch{results: map[string][]discogs.SearchResult{
		searchKey("Neu!", "Krautrock"): {
			searchResult(100, 10, "Neu! - Already Owned", 100), // owned master
			searchResult(102, 1002, "Neu! - Neu! 2", 800),
		},
	}}

	result, err := newTestEngine(search, similar).Recommend(context.Background(), collection)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result.Styles) != 1 || len(result.Styles[0].Recommendations) != 1 {
		t.Fatalf("styles = %+v, want one group with one recommendation", result.Styles)
	}
	if result.Styles[0].Recommendations[0].MasterID != 1002 {
		t.Errorf("kept master %d, want 1002", result.Styles[0].Recommendations[0].MasterID)
	}
}

func TestRecommendKeepsUnownedReleasesByOwnedArtists(t *testing.T) {
	// Owning one Can record must not suppress other Can pressings the
	// collector doesn't have; only exact owned masters are excluded.
	collection := []discogs.Release{
		collectionRelease(1, 10, "Can", "Krautrock"),
	}
	similar := &fakeSimilar{similars: []lastfm.SimilarArtist{
		similarArtist("Neu!", "Can", 0.9),
	}}
	search := &fakeSearch{results: map[string][]discogs.SearchResult{
		searchKey("Neu!", "Krautrock"): {
			searchResult(101, 1001, "Can - Tago Mago", 900),
		},
	}}

	result, err := newTestEngine(search, similar).Recommend(context.Background(), collection)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result.Styles) != 1 || len(result.Styles[0].Recommendations) != 1 {
		t.Fatalf("styles = %+v, want the Tago Mago result kept", result.Styles)
	}
	if result.Styles[0].Recommendations[0].MasterID != 1001 {
		t.Errorf("kept master %d, want 1001", result.Styles[0].Recommendations[0].MasterID)
	}
}

func TestRecommendFiltersOwnedSimilarArtists(t *testing.T) {
	collection := []discogs.Release{
		collectionRelease(1, 10, "Can", "Krautrock"),
		collectionRelease(2, 20, "Faust", "Krautrock"),
	}
	// The lookup suggests Faust back, but the collection already holds
	// Faust, so only Neu! gets searched.
	similar := &fakeSimilar{similars: []lastfm.SimilarArtist{
		similarArtist("Faust", "Can", 0.95),
		similarArtist("Neu!", "Can", 0.9),
	}}
	search := &fakeSearch{results: map[string][]discogs.SearchResult{
		searchKey("Neu!", "Krautrock"): {
			searchResult(100, 1000, "Neu! - Neu! 75", 5000),
		},
	}}

	result, err := newTestEngine(search, similar).Recommend(context.Background(), collection)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	for _, call := range search.calls {
		if call.Artist == "Faust" {
			t.Error("searched a similar artist the collection already holds")
		}
	}
	if len(result.Styles) != 1 || result.Styles[0].Recommendations[0].Artist != "Neu!" {
		t.Errorf("styles = %+v, want only the Neu! result", result.Styles)
	}
}

func TestRecommendFairnessCapPerSource(t *testing.T) {
	collection := []discogs.Release{
		collectionRelease(1, 10, "Can", "Krautrock"),
		collectionRelease(2, 20, "Cluster", "Krautrock"),
	}
	// Can sources two similar artists; its cap of two is spent on the
	// first, so the second never gets searched. Cluster still contributes.
	similar := &fakeSimilar{similars: []lastfm.SimilarArtist{
		similarArtist("Neu!", "Can", 0.9),
		similarArtist("Harmonia", "Can", 0.8),
		similarArtist("Roedelius", "Cluster", 0.7),
	}}
	var prolific []discogs.SearchResult
	for i := 0; i < 5; i++ {
		prolific = append(prolific,
			searchResult(100+i, 1000+i, fmt.Sprintf("Neu! - Album %d", i), 500-i))
	}
	search := &fakeSearch{results: map[string][]discogs.SearchResult{
		searchKey("Neu!", "Krautrock"): prolific,
		searchKey("Roedelius", "Krautrock"): {
			searchResult(200, 2000, "Roedelius - Selbstportrait", 400),
		},
	}}

	result, err := newTestEngine(search, similar).Recommend(context.Background(), collection)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	recs := result.Styles[0].Recommendations
	canCount := 0
	for _, rec := range recs {
		if rec.SimilarTo == "Can" {
			canCount++
		}
	}
	if canCount != 2 {
		t.Errorf("Can sourced %d releases, want cap of 2", canCount)
	}
	if len(recs) != 3 {
		t.Errorf("got %d recommendations, want 3 (2 via Can + 1 via Cluster)", len(recs))
	}
	for _, call := range search.calls {
		if call.Artist == "Harmonia" {
			t.Error("searched Harmonia after its source artist was already at cap")
		}
	}
}

func TestRecommendStopsAfterThreeSourcesAtCap(t *testing.T) {
	var collection []discogs.Release
	var similars []lastfm.SimilarArtist
	results := map[string][]discogs.SearchResult{}
	for i := 0; i < 5; i++ {
		seed := fmt.Sprintf("Seed %d", i)
		name := fmt.Sprintf("Artist %d", i)
		collection = append(collection, collectionRelease(i+1, (i+1)*10, seed, "Krautrock"))
		similars = append(similars, similarArtist(name, seed, 0.9-float64(i)*0.1))
		results[searchKey(name, "Krautrock")] = []discogs.SearchResult{
			searchResult(100+i*2, 1000+i*2, name+" - One", 500),
			searchResult(101+i*2, 1001+i*2, name+" - Two", 400),
		}
	}
	similar := &fakeSimilar{similars: similars}
	search := &fakeSearch{results: results}

	result, err := newTestEngine(search, similar).Recommend(context.Background(), collection)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result.Styles[0].Recommendations) != 6 {
		t.Errorf("got %d recommendations, want 6", len(result.Styles[0].Recommendations))
	}
	for _, call := range search.calls {
		if call.Artist == "Artist 3" || call.Artist == "Artist 4" {
			t.Errorf("searched %q after three sources were already at their cap", call.Artist)
		}
	}
}

func TestRecommendUnfilteredRetryWithStyleSubstring(t *testing.T) {
	collection := []discogs.Release{
		collectionRelease(1, 10, "Nas", "Hip Hop"),
	}
	similar := &fakeSimilar{similars: []lastfm.SimilarArtist{
		similarArtist("Mos Def", "Nas", 0.9),
	}}
	search := &fakeSearch{results: map[string][]discogs.SearchResult{
		// Style-filtered search finds nothing; unfiltered search does.
		searchKey("Mos Def", ""): {
			{ID: 100, MasterID: 1000, Title: "Mos Def - Black On Both Sides",
				Style: []string{"Conscious Hip Hop"}},
			{ID: 101, MasterID: 1001, Title: "Mos Def - Jazz Thing",
				Style: []string{"Jazz"}},
		},
	}}

	result, err := newTestEngine(search, similar).Recommend(context.Background(), collection)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result.Styles) != 1 || len(result.Styles[0].Recommendations) != 1 {
		t.Fatalf("styles = %+v, want one group with one recommendation", result.Styles)
	}
	if result.Styles[0].Recommendations[0].MasterID != 1000 {
		t.Errorf("kept master %d, want 1000 (style substring match)",
			result.Styles[0].Recommendations[0].MasterID)
	}
}

func TestRecommendFallsBackToStyleSearch(t *testing.T) {
	collection := []discogs.Release{
		collectionRelease(1, 10, "Can", "Krautrock"),
	}
	similar := &fakeSimilar{err: errors.New("last.fm is down")}
	search := &fakeSearch{results: map[string][]discogs.SearchResult{
		searchKey("", "Krautrock"): {
			searchResult(100, 1000, "Neu! - Neu!", 900),
			searchResult(101, 1001, "Harmonia - Musik Von Harmonia", 800),
		},
	}}

	result, err := newTestEngine(search, similar).Recommend(context.Background(), collection)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result.Styles) != 1 {
		t.Fatalf("got %d groups, want 1", len(result.Styles))
	}
	group := result.Styles[0]
	if group.Reason != "Popular Krautrock releases you might like" {
		t.Errorf("Reason = %q", group.Reason)
	}
	for _, rec := range group.Recommendations {
		if rec.SimilarTo != "" {
			t.Errorf("fallback recommendation %q should not name a source artist", rec.Title)
		}
	}
	if result.UsedExternalSimilarity {
		t.Error("UsedExternalSimilarity = true even though the lookup failed")
	}
}

func TestRecommendFallbackCapped(t *testing.T) {
	collection := []discogs.Release{
		collectionRelease(1, 10, "Can", "Krautrock"),
	}
	var many []discogs.SearchResult
	for i := 0; i < 10; i++ {
		many = append(many, searchResult(100+i, 1000+i, fmt.Sprintf("Band %d - Album", i), 100))
	}
	similar := &fakeSimilar{err: errors.New("last.fm is down")}
	search := &fakeSearch{results: map[string][]discogs.SearchResult{
		searchKey("", "Krautrock"): many,
	}}

	result, err := newTestEngine(search, similar).Recommend(context.Background(), collection)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result.Styles[0].Recommendations) != fallbackLimit {
		t.Errorf("got %d fallback recommendations, want %d",
			len(result.Styles[0].Recommendations), fallbackLimit)
	}
}

func TestRecommendDropsEmptyStylesButReportsThemAnalyzed(t *testing.T) {
	collection := []discogs.Release{
		collectionRelease(1, 10, "Can", "Krautrock"),
		collectionRelease(2, 20, "Aphex Twin", "IDM"),
		collectionRelease(3, 30, "Aphex Twin", "IDM"),
	}
	similar := &fakeSimilar{similars: []lastfm.SimilarArtist{
		similarArtist("Autechre", "Aphex Twin", 0.9),
		similarArtist("Neu!", "Can", 0.9),
	}}
	// Only IDM produces anything; Krautrock searches all come back empty.
	search := &fakeSearch{results: map[string][]discogs.SearchResult{
		searchKey("Autechre", "IDM"): {
			searchResult(100, 1000, "Autechre - Amber", 700),
		},
	}}

	result, err := newTestEngine(search, similar).Recommend(context.Background(), collection)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result.Styles) != 1 || result.Styles[0].Style != "IDM" {
		t.Errorf("styles = %+v, want only IDM", result.Styles)
	}
	if len(result.AnalyzedStyles) != 2 {
		t.Fatalf("AnalyzedStyles = %v, want both examined styles", result.AnalyzedStyles)
	}
	analyzed := make(map[string]bool)
	for _, style := range result.AnalyzedStyles {
		analyzed[style] = true
	}
	if !analyzed["Krautrock"] || !analyzed["IDM"] {
		t.Errorf("AnalyzedStyles = %v, want Krautrock and IDM", result.AnalyzedStyles)
	}
}

func TestRecommendDedupesAcrossStyles(t *testing.T) {
	collection := []discogs.Release{
		collectionRelease(1, 10, "Can", "Krautrock"),
		collectionRelease(2, 20, "Can", "Krautrock"),
		collectionRelease(3, 30, "Cluster", "Ambient"),
	}
	// Two suggestion paths land on the same master from different styles.
	similar := &fakeSimilar{similars: []lastfm.SimilarArtist{
		similarArtist("Harmonia", "Can", 0.9),
		similarArtist("Harmonia & Eno", "Cluster", 0.8),
	}}
	shared := searchResult(100, 1000, "Harmonia - Deluxe", 900)
	search := &fakeSearch{results: map[string][]discogs.SearchResult{
		searchKey("Harmonia", "Krautrock"):     {shared},
		searchKey("Harmonia & Eno", "Ambient"): {shared},
	}}

	result, err := newTestEngine(search, similar).Recommend(context.Background(), collection)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	total := 0
	for _, group := range result.Styles {
		for _, rec := range group.Recommendations {
			if rec.MasterID == 1000 {
				total++
			}
		}
	}
	if total != 1 {
		t.Errorf("master 1000 recommended %d times across styles, want 1", total)
	}
}

func TestRecommendSkipsPlaceholderSeeds(t *testing.T) {
	collection := []discogs.Release{
		{
			ID: 1,
			BasicInformation: discogs.BasicInformation{
				ID:       1,
				MasterID: 10,
				Styles:   []string{"Disco"},
				Artists: []discogs.Artist{
					{Name: "Various"},
					{Name: "Various Artists"},
					{Name: "Chic"},
				},
			},
		},
	}
	similar := &fakeSimilar{}
	search := &fakeSearch{}

	if _, err := newTestEngine(search, similar).Recommend(context.Background(), collection); err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(similar.calls) != 1 {
		t.Fatalf("similar provider called %d times, want 1", len(similar.calls))
	}
	for _, seed := range similar.calls[0] {
		if isPlaceholderArtist(seed) {
			t.Errorf("placeholder artist %q used as a seed", seed)
		}
	}
}

func TestRecommendSearchFailureSkipsArtist(t *testing.T) {
	collection := []discogs.Release{
		collectionRelease(1, 10, "Can", "Krautrock"),
		collectionRelease(2, 20, "Cluster", "Krautrock"),
	}
	similar := &fakeSimilar{similars: []lastfm.SimilarArtist{
		similarArtist("Neu!", "Can", 0.9),
		similarArtist("Roedelius", "Cluster", 0.8),
	}}
	search := &fakeSearch{
		results: map[string][]discogs.SearchResult{
			searchKey("Roedelius", "Krautrock"): {
				searchResult(200, 2000, "Roedelius - Selbstportrait", 400),
			},
		},
		errs: map[string]error{
			searchKey("Neu!", "Krautrock"): errors.New("discogs 500"),
			searchKey("Neu!", ""):          errors.New("discogs 500"),
		},
	}

	result, err := newTestEngine(search, similar).Recommend(context.Background(), collection)
	if err != nil {
		t.Fatalf("Recommend should tolerate a failed search: %v", err)
	}
	if len(result.Styles) != 1 || len(result.Styles[0].Recommendations) != 1 {
		t.Fatalf("styles = %+v, want the Roedelius result", result.Styles)
	}
	if result.Styles[0].Recommendations[0].SimilarTo != "Cluster" {
		t.Errorf("SimilarTo = %q, want Cluster", result.Styles[0].Recommendations[0].SimilarTo)
	}
}

func TestRecommendCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	collection := []discogs.Release{
		collectionRelease(1, 10, "Can", "Krautrock"),
	}
	engine := newTestEngine(&fakeSearch{}, &fakeSimilar{})
	if _, err := engine.Recommend(ctx, collection); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRecommendEmptyCollection(t *testing.T) {
	similar := &fakeSimilar{}
	result, err := newTestEngine(&fakeSearch{}, similar).Recommend(context.Background(), nil)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result.Styles) != 0 {
		t.Errorf("got %d groups from an empty collection", len(result.Styles))
	}
	if len(similar.calls) != 0 {
		t.Error("similarity provider consulted for an empty collection")
	}
	if result.UsedExternalSimilarity {
		t.Error("UsedExternalSimilarity = true for an empty collection")
	}
}
