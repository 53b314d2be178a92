// Package recommend suggests vinyl releases a collector doesn't own yet,
// by walking from their most-collected styles through similar artists to
// sought-after pressings.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/deepcogs/deepcogs/internal/analysis"
	"github.com/deepcogs/deepcogs/internal/discogs"
	"github.com/deepcogs/deepcogs/internal/lastfm"
)

const (
	maxStyles        = 6
	maxSeedsPerStyle = 5
	maxSeedPool      = 10
	perArtistLimit   = 10
	maxPerSource     = 2
	maxSourcesAtCap  = 3
	maxPerStyle      = 6
	fallbackLimit    = 6

	searchPageSize = 10
	searchSpacing  = 100 * time.Millisecond
)

// SearchProvider runs Discogs database searches. *discogs.Client satisfies
// it.
type SearchProvider interface {
	Search(ctx context.Context, q discogs.SearchQuery) ([]discogs.SearchResult, error)
}

// SimilarProvider finds artists similar to the given seeds. *lastfm.Client
// satisfies it.
type SimilarProvider interface {
	SimilarArtists(ctx context.Context, seeds []string, perArtist int) ([]lastfm.SimilarArtist, error)
}

// Recommendation is one suggested release.
type Recommendation struct {
	ID       int      `json:"id"`
	MasterID int      `json:"masterId"`
	Artist   string   `json:"artist"`
	Title    string   `json:"title"`
	Year     int      `json:"year,omitempty"`
	Thumb    string   `json:"thumb,omitempty"`
	Styles   []string `json:"styles,omitempty"`
	Have     int      `json:"have"`
	Want     int      `json:"want"`

	// SimilarTo names the collection artist this suggestion traces back
	// to. Empty for fallback suggestions found by style alone.
	SimilarTo string `json:"similarTo,omitempty"`
}

// StyleGroup is the set of suggestions for one collected style.
type StyleGroup struct {
	Style           string           `json:"style"`
	Reason          string           `json:"reason"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Result is one full recommendation run. AnalyzedStyles lists every style
// examined, including ones whose group came up empty and was dropped.
type Result struct {
	Styles                 []StyleGroup `json:"styles"`
	AnalyzedStyles         []string     `json:"analyzedStyles"`
	UsedExternalSimilarity bool         `json:"usedExternalSimilarity"`
}

// Engine produces recommendations. Lookups run sequentially with a small
// delay between Discogs searches; a failed search is logged and skipped
// rather than retried, so a flaky upstream degrades the output instead of
// failing it.
type Engine struct {
	search  SearchProvider
	similar SimilarProvider
	limiter *rate.Limiter
	logger  *slog.Logger
}

func New(search SearchProvider, similar SimilarProvider) *Engine {
	return &Engine{
		search:  search,
		similar: similar,
		limiter: rate.NewLimiter(rate.Every(searchSpacing), 1),
		logger:  slog.Default(),
	}
}

// Recommend builds per-style suggestion groups from a collection. Seed
// artists from every top style are pooled into one similar-artist lookup,
// and the answers flow back to the style whose seed produced them. Styles
// that end up with nothing to suggest are dropped. The only hard failure
// is context cancellation; everything else degrades to fewer results.
func (e *Engine) Recommend(ctx context.Context, collection []discogs.Release) (Result, error) {
	dna := analysis.Aggregate(collection)
	styles := dna.TopStyles
	if len(styles) > maxStyles {
		styles = styles[:maxStyles]
	}

	styleArtists := analysis.ArtistsByStyle(collection)
	owned := analysis.OwnedMasters(collection)
	ownedArtists := artistSet(collection)

	var result Result
	seedsByStyle := make(map[string][]string, len(styles))
	for _, style := range styles {
		result.AnalyzedStyles = append(result.AnalyzedStyles, style.Name)
		seedsByStyle[style.Name] = seedArtists(styleArtists[style.Name])
	}

	pool, seedStyle := seedPool(result.AnalyzedStyles, seedsByStyle)
	similarsByStyle, used := e.lookupSimilar(ctx, pool, seedStyle, ownedArtists)
	result.UsedExternalSimilarity = used

	seen := make(map[int]bool) // masters already recommended, across styles
	for _, style := range styles {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		group, err := e.recommendStyle(ctx, style.Name, seedsByStyle[style.Name], similarsByStyle[style.Name], owned, seen)
		if err != nil {
			return result, err
		}
		if len(group.Recommendations) > 0 {
			result.Styles = append(result.Styles, group)
		}
	}

	return result, nil
}

// seedPool flattens the per-style seeds into one deduplicated pool, taking
// one seed per style per round so late styles still get a voice before the
// cap. It also remembers which style contributed each seed.
func seedPool(styles []string, seedsByStyle map[string][]string) ([]string, map[string]string) {
	var pool []string
	seedStyle := make(map[string]string)
	for round := 0; len(pool) < maxSeedPool; round++ {
		advanced := false
		for _, style := range styles {
			seeds := seedsByStyle[style]
			if round >= len(seeds) {
				continue
			}
			advanced = true
			key := strings.ToLower(seeds[round])
			if _, ok := seedStyle[key]; ok {
				continue
			}
			seedStyle[key] = style
			pool = append(pool, seeds[round])
			if len(pool) >= maxSeedPool {
				break
			}
		}
		if !advanced {
			break
		}
	}
	return pool, seedStyle
}

// lookupSimilar runs the single similar-artist lookup for the whole pool
// and buckets the answers under the style that contributed each source
// artist. Similar artists the collection already holds are dropped here. A
// failed lookup just means every style falls through to the popularity
// fallback.
func (e *Engine) lookupSimilar(ctx context.Context, pool []string, seedStyle map[string]string, ownedArtists map[string]bool) (map[string][]lastfm.SimilarArtist, bool) {
	if len(pool) == 0 {
		return nil, false
	}
	similars, err := e.similar.SimilarArtists(ctx, pool, perArtistLimit)
	if err != nil {
		e.logger.Warn("similar artist lookup failed", "seeds", len(pool), "error", err)
		return nil, false
	}

	byStyle := make(map[string][]lastfm.SimilarArtist)
	for _, similar := range similars {
		if ownedArtists[strings.ToLower(similar.Name)] {
			continue
		}
		style, ok := seedStyle[strings.ToLower(similar.SourceArtist)]
		if !ok {
			continue
		}
		byStyle[style] = append(byStyle[style], similar)
	}
	return byStyle, len(similars) > 0
}

func (e *Engine) recommendStyle(ctx context.Context, style string, seeds []string, similars []lastfm.SimilarArtist, owned, seen map[int]bool) (StyleGroup, error) {
	group := StyleGroup{Style: style}

	perSource := make(map[string]int)
	sourcesAtCap := 0

	for _, similar := range similars {
		if len(group.Recommendations) >= maxPerStyle || sourcesAtCap >= maxSourcesAtCap {
			break
		}
		if perSource[similar.SourceArtist] >= maxPerSource {
			continue
		}

		results, err := e.searchArtist(ctx, similar.Name, style)
		if err != nil {
			if ctx.Err() != nil {
				return group, ctx.Err()
			}
			e.logger.Warn("release search failed", "artist", similar.Name, "style", style, "error", err)
			continue
		}

		e.takeResults(results, similar.SourceArtist, perSource, owned, seen, &group)
		if perSource[similar.SourceArtist] >= maxPerSource {
			sourcesAtCap++
		}
	}

	if len(group.Recommendations) > 0 {
		group.Reason = basedOnReason(seeds)
		return group, nil
	}

	// Nothing came out of the similarity path; fall back to whatever the
	// marketplace wants most in this style.
	if err := e.limiter.Wait(ctx); err != nil {
		return group, err
	}
	results, err := e.search.Search(ctx, discogs.SearchQuery{Style: style, PerPage: searchPageSize})
	if err != nil {
		if ctx.Err() != nil {
			return group, ctx.Err()
		}
		e.logger.Warn("fallback style search failed", "style", style, "error", err)
		return group, nil
	}
	for _, result := range results {
		if len(group.Recommendations) >= fallbackLimit {
			break
		}
		appendResult(result, "", owned, seen, &group)
	}
	group.Reason = fmt.Sprintf("Popular %s releases you might like", style)
	return group, nil
}

// searchArtist looks for the artist's releases in the given style. When the
// style-filtered search comes back empty it retries unfiltered and keeps
// only results whose styles loosely match, since Discogs style filters are
// stricter than its style tags.
func (e *Engine) searchArtist(ctx context.Context, artist, style string) ([]discogs.SearchResult, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	results, err := e.search.Search(ctx, discogs.SearchQuery{
		Artist:  artist,
		Style:   style,
		PerPage: searchPageSize,
	})
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return results, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	results, err = e.search.Search(ctx, discogs.SearchQuery{
		Artist:  artist,
		PerPage: searchPageSize,
	})
	if err != nil {
		return nil, err
	}

	var filtered []discogs.SearchResult
	for _, result := range results {
		if styleMatches(result.Style, style) {
			filtered = append(filtered, result)
		}
	}
	return filtered, nil
}

// takeResults appends acceptable results until the source artist's cap or
// the style's cap is hit, and tracks the source's running total.
func (e *Engine) takeResults(results []discogs.SearchResult, source string, perSource map[string]int, owned, seen map[int]bool, group *StyleGroup) {
	for _, result := range results {
		if perSource[source] >= maxPerSource || len(group.Recommendations) >= maxPerStyle {
			break
		}
		if appendResult(result, source, owned, seen, group) {
			perSource[source]++
		}
	}
}

// appendResult converts one search result into a recommendation unless the
// master is already owned or already recommended.
func appendResult(result discogs.SearchResult, source string, owned, seen map[int]bool, group *StyleGroup) bool {
	master := result.Master()
	if master <= 0 || owned[master] || seen[master] {
		return false
	}
	artist, title := result.SplitTitle()

	seen[master] = true
	group.Recommendations = append(group.Recommendations, Recommendation{
		ID:        result.ID,
		MasterID:  master,
		Artist:    artist,
		Title:     title,
		Year:      result.YearInt(),
		Thumb:     result.Thumb,
		Styles:    result.Style,
		Have:      result.Community.Have,
		Want:      result.Community.Want,
		SimilarTo: source,
	})
	return true
}

// seedArtists picks the first few artists associated with a style,
// skipping compilation placeholders that would poison a similarity lookup.
func seedArtists(artists []string) []string {
	var seeds []string
	for _, artist := range artists {
		if isPlaceholderArtist(artist) {
			continue
		}
		seeds = append(seeds, artist)
		if len(seeds) >= maxSeedsPerStyle {
			break
		}
	}
	return seeds
}

func isPlaceholderArtist(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return lower == "various" ||
		strings.HasPrefix(lower, "various artist") ||
		lower == "unknown artist"
}

// artistSet collects lowercased artist names already in the collection.
func artistSet(releases []discogs.Release) map[string]bool {
	set := make(map[string]bool)
	for _, release := range releases {
		for _, artist := range release.BasicInformation.Artists {
			if artist.Name != "" {
				set[strings.ToLower(artist.Name)] = true
			}
		}
	}
	return set
}

// styleMatches is a loose, case-insensitive containment check in both
// directions, so "Hip Hop" still matches a "Conscious Hip Hop" tag.
func styleMatches(styles []string, want string) bool {
	wantLower := strings.ToLower(want)
	for _, style := range styles {
		styleLower := strings.ToLower(style)
		if strings.Contains(styleLower, wantLower) || strings.Contains(wantLower, styleLower) {
			return true
		}
	}
	return false
}

// basedOnReason names the collection artists the suggestions trace back to.
func basedOnReason(seeds []string) string {
	if len(seeds) == 0 {
		return "Based on your collection"
	}
	if len(seeds) > 3 {
		seeds = seeds[:3]
	}
	return fmt.Sprintf("Based on %s in your collection", strings.Join(seeds, ", "))
}

// SetSpacing overrides the delay between searches. Tests use it to run
// without real pauses.
func (e *Engine) SetSpacing(d time.Duration) {
	e.limiter = rate.NewLimiter(rate.Every(d), 1)
}
