package discogs

import (
	"strconv"
	"strings"
)

// User is the subset of a Discogs user profile that the dashboard consumes.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	ResourceURL  string `json:"resource_url"`
	ConsumerName string `json:"consumer_name,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
}

// Release is one entry in a user's collection folder.
type Release struct {
	ID               int              `json:"id"`
	InstanceID       int              `json:"instance_id,omitempty"`
	DateAdded        string           `json:"date_added,omitempty"`
	Rating           float64          `json:"rating,omitempty"`
	BasicInformation BasicInformation `json:"basic_information"`
}

// BasicInformation mirrors the nested Discogs shape. Every field may be
// absent in the wire payload; zero values contribute nothing downstream.
type BasicInformation struct {
	ID         int      `json:"id"`
	MasterID   int      `json:"master_id,omitempty"`
	MasterURL  string   `json:"master_url,omitempty"`
	Title      string   `json:"title"`
	Year       int      `json:"year,omitempty"`
	Thumb      string   `json:"thumb,omitempty"`
	CoverImage string   `json:"cover_image,omitempty"`
	Formats    []Format `json:"formats,omitempty"`
	Labels     []Label  `json:"labels,omitempty"`
	Artists    []Artist `json:"artists,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	Styles     []string `json:"styles,omitempty"`
}

type Format struct {
	Name         string   `json:"name"`
	Qty          string   `json:"qty,omitempty"`
	Descriptions []string `json:"descriptions,omitempty"`
}

type Label struct {
	ID     int    `json:"id,omitempty"`
	Name   string `json:"name"`
	CatNo  string `json:"catno,omitempty"`
	ResURL string `json:"resource_url,omitempty"`
}

type Artist struct {
	ID     int    `json:"id,omitempty"`
	Name   string `json:"name"`
	ResURL string `json:"resource_url,omitempty"`
}

// Master returns the master recording id and whether it is known. Discogs
// reports 0 for releases without a master; two unknown masters are never
// considered equal, so callers must check ok before comparing.
func (b BasicInformation) Master() (int, bool) {
	if b.MasterID <= 0 {
		return 0, false
	}
	return b.MasterID, true
}

// Master is a convenience passthrough to BasicInformation.Master.
func (r Release) Master() (int, bool) {
	return r.BasicInformation.Master()
}

// WantlistEntry is a desired-but-not-owned master. Structurally it carries
// the same basic_information subset as a collection release.
type WantlistEntry struct {
	ID               int              `json:"id"`
	Rating           int              `json:"rating,omitempty"`
	BasicInformation BasicInformation `json:"basic_information"`
}

func (w WantlistEntry) Master() (int, bool) {
	return w.BasicInformation.Master()
}

// Pagination is the envelope Discogs wraps all list endpoints in.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

// CollectionPage is one page of /users/{u}/collection/folders/{f}/releases.
type CollectionPage struct {
	Pagination Pagination `json:"pagination"`
	Releases   []Release  `json:"releases"`
}

// WantlistPage is one page of /users/{u}/wants.
type WantlistPage struct {
	Pagination Pagination      `json:"pagination"`
	Wants      []WantlistEntry `json:"wants"`
}

// Community holds the have/want counters Discogs attaches to search results.
type Community struct {
	Have int `json:"have"`
	Want int `json:"want"`
}

// SearchResult is one row of /database/search. Titles come back as
// "Artist - Title" and years as numeric strings.
type SearchResult struct {
	ID        int       `json:"id"`
	MasterID  int       `json:"master_id,omitempty"`
	Title     string    `json:"title"`
	Year      string    `json:"year,omitempty"`
	Thumb     string    `json:"thumb,omitempty"`
	Genre     []string  `json:"genre,omitempty"`
	Style     []string  `json:"style,omitempty"`
	Community Community `json:"community"`
}

type searchResponse struct {
	Pagination Pagination     `json:"pagination"`
	Results    []SearchResult `json:"results"`
}

// Master returns the canonical id for a search result, falling back to the
// release id when Discogs omits master_id.
func (s SearchResult) Master() int {
	if s.MasterID > 0 {
		return s.MasterID
	}
	return s.ID
}

// SplitTitle separates the conventional "Artist - Title" search title. Both
// halves fall back to placeholders when the convention doesn't hold.
func (s SearchResult) SplitTitle() (artist, title string) {
	artist, title, found := strings.Cut(s.Title, " - ")
	if !found {
		title = strings.TrimSpace(s.Title)
		if title == "" {
			title = "Unknown"
		}
		return "Unknown Artist", title
	}
	artist = strings.TrimSpace(artist)
	title = strings.TrimSpace(title)
	if artist == "" {
		artist = "Unknown Artist"
	}
	if title == "" {
		title = "Unknown"
	}
	return artist, title
}

// YearInt parses the numeric-string year, returning 0 when absent or junk.
func (s SearchResult) YearInt() int {
	y, err := strconv.Atoi(strings.TrimSpace(s.Year))
	if err != nil || y < 0 {
		return 0
	}
	return y
}
