// Package lastfm finds artists similar to the ones in a collection, via the
// Last.fm artist.getSimilar endpoint.
package lastfm

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	lastfmgo "github.com/ademuri/lastfm-go/lastfm"
	"golang.org/x/time/rate"
)

// ErrNoArtists means there was nothing to look up.
var ErrNoArtists = errors.New("no artists to look up")

const (
	// maxSeedArtists bounds how many collection artists get queried; past
	// the first handful the suggestions stop improving and the request
	// budget doesn't.
	maxSeedArtists = 8
	maxResults     = 20

	requestSpacing = 200 * time.Millisecond
)

// SimilarArtist is one suggestion, with the 0 to 1 match strength Last.fm
// assigns it.
type SimilarArtist struct {
	Name  string  `json:"name"`
	Match float64 `json:"match"`

	// SourceArtist is the queried seed this suggestion came from. When the
	// same name comes back for several seeds, the seed of the strongest
	// match wins along with its match value.
	SourceArtist string `json:"sourceArtist,omitempty"`

	MBID string `json:"mbid,omitempty"`
	URL  string `json:"url,omitempty"`
}

// rawSimilar is one artist as the wire reports it, match weight still a
// string.
type rawSimilar struct {
	Name  string
	Mbid  string
	Match string
	Url   string
}

type similarFetcher interface {
	getSimilar(artist string, limit int) ([]rawSimilar, error)
}

type apiFetcher struct {
	api *lastfmgo.Api
}

func (f apiFetcher) getSimilar(artist string, limit int) ([]rawSimilar, error) {
	response, err := f.api.Artist.GetSimilar(lastfmgo.P{
		"artist": artist,
		"limit":  limit,
	})
	if err != nil {
		return nil, err
	}
	similars := make([]rawSimilar, 0, len(response.Similars))
	for _, similar := range response.Similars {
		similars = append(similars, rawSimilar{
			Name:  similar.Name,
			Mbid:  similar.Mbid,
			Match: similar.Match,
			Url:   similar.Url,
		})
	}
	return similars, nil
}

// Client queries Last.fm sequentially, spacing requests out so a burst of
// seed artists doesn't trip their rate limiting.
type Client struct {
	fetcher similarFetcher
	limiter *rate.Limiter
	logger  *slog.Logger
}

func New(apiKey, apiSecret string) *Client {
	api := lastfmgo.New(apiKey, apiSecret)
	api.SetUserAgent("DeepCogs/1.0")
	return &Client{
		fetcher: apiFetcher{api: api},
		limiter: rate.NewLimiter(rate.Every(requestSpacing), 1),
		logger:  slog.Default(),
	}
}

// SimilarArtists looks up similar artists for up to the first eight seeds
// and merges the answers. Individual lookup failures are logged and
// skipped; as long as one seed succeeds there is a result. Duplicates
// across seeds keep their highest match strength.
func (c *Client) SimilarArtists(ctx context.Context, seeds []string, perArtist int) ([]SimilarArtist, error) {
	if len(seeds) == 0 {
		return nil, ErrNoArtists
	}
	if len(seeds) > maxSeedArtists {
		seeds = seeds[:maxSeedArtists]
	}
	if perArtist <= 0 {
		perArtist = 10
	}

	best := make(map[string]SimilarArtist)
	for _, seed := range seeds {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		similars, err := c.fetcher.getSimilar(seed, perArtist)
		if err != nil {
			c.logger.Warn("similar artist lookup failed", "artist", seed, "error", err)
			continue
		}
		for _, similar := range similars {
			if similar.Name == "" {
				continue
			}
			match := parseMatch(similar.Match)
			key := strings.ToLower(similar.Name)
			if existing, ok := best[key]; !ok || match > existing.Match {
				best[key] = SimilarArtist{
					Name:         similar.Name,
					Match:        match,
					SourceArtist: seed,
					MBID:         similar.Mbid,
					URL:          similar.Url,
				}
			}
		}
	}

	results := make([]SimilarArtist, 0, len(best))
	for _, artist := range best {
		results = append(results, artist)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Match != results[j].Match {
			return results[i].Match > results[j].Match
		}
		return results[i].Name < results[j].Name
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// parseMatch turns Last.fm's string match weight into a float, treating
// junk as zero rather than failing the whole lookup.
func parseMatch(raw string) float64 {
	match, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || match < 0 {
		return 0
	}
	return match
}

// setSpacing overrides the request pacing. Tests use it to avoid real delays.
func (c *Client) setSpacing(d time.Duration) {
	c.limiter = rate.NewLimiter(rate.Every(d), 1)
}
